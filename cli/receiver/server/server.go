package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/domain"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

const maxLineLen = 512

var errInvalidLine = errors.New("строка не соответствует формату IDENTITY;LAT;LON[;UNIX_TS]")

// Server прием местоположений от трекеров по TCP, одна запись на строку
type Server struct {
	addr      string
	ttl       time.Duration
	whiteList []string
	submit    *domain.SubmitPosition

	l       net.Listener
	stopped atomic.Bool
	wg      sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func New(srvAddress string, ttl time.Duration, whiteList []string, submit *domain.SubmitPosition) *Server {
	return &Server{
		addr:      srvAddress,
		ttl:       ttl,
		whiteList: whiteList,
		submit:    submit,
		conns:     make(map[net.Conn]struct{}),
	}
}

// Listen после Stop ничего не делает
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped.Load() {
		return nil
	}

	var err error
	if s.l, err = net.Listen("tcp", s.addr); err != nil {
		return fmt.Errorf("не удалось открыть соединение: %w", err)
	}
	return nil
}

func (s *Server) listener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l
}

func (s *Server) Addr() net.Addr {
	if l := s.listener(); l != nil {
		return l.Addr()
	}
	return nil
}

func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) Serve() error {
	l := s.listener()
	if l == nil {
		return nil
	}

	log.Infof("Запущен сервер %s", l.Addr())
	log.Debug("TTL: ", s.ttl)

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.stopped.Load() {
				return nil
			}
			log.WithField("err", err).Error("Ошибка соединения")
			continue
		}

		ip := remoteIP(conn.RemoteAddr())
		if len(s.whiteList) > 0 && !isInWhiteList(ip, s.whiteList) {
			log.WithField("ip", ip).Warn("Соединение с адреса не из белого списка отклонено")
			_ = conn.Close()
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.untrack(conn)
			s.handleConn(conn)
		}()
	}
}

func (s *Server) Stop() error {
	s.mu.Lock()
	s.stopped.Store(true)

	var err error
	if s.l != nil {
		err = s.l.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) setDeadline(conn net.Conn) {
	if s.ttl > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.ttl))
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log.WithField("ip", conn.RemoteAddr()).Info("Установлено соединение")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, maxLineLen), maxLineLen)

	for {
		s.setDeadline(conn)
		if !scanner.Scan() {
			err := scanner.Err()
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				log.WithField("ip", conn.RemoteAddr()).Warn("Таймаут чтения")
			} else if err == nil || errors.Is(err, io.EOF) {
				log.WithField("ip", conn.RemoteAddr()).Info("Клиент закрыл соединение")
			} else if !s.stopped.Load() {
				log.WithField("err", err).Error("Ошибка при получении")
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply := s.handleLine(line)
		if _, err := io.WriteString(conn, reply+"\n"); err != nil {
			log.WithField("err", err).Error("Ошибка отправки ответа")
			return
		}
	}
}

func (s *Server) handleLine(line string) string {
	submission, err := parseLine(line)
	if err != nil {
		log.WithField("line", line).Debug("Принята некорректная строка")
		return "ERR invalid_input"
	}

	ctx := context.Background()
	if s.ttl > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ttl)
		defer cancel()
	}

	result, err := s.submit.Run(ctx, submission)
	if err != nil {
		code := types.Code(err)
		if code == "internal_error" {
			log.WithField("err", err).Error("Ошибка приема местоположения")
		}
		return "ERR " + code
	}

	return "OK " + string(result.Status)
}

func parseLine(line string) (domain.Submission, error) {
	fields := strings.Split(line, ";")
	if len(fields) != 3 && len(fields) != 4 {
		return domain.Submission{}, errInvalidLine
	}

	identity := strings.TrimSpace(fields[0])
	if identity == "" {
		return domain.Submission{}, errInvalidLine
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return domain.Submission{}, errInvalidLine
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return domain.Submission{}, errInvalidLine
	}

	submission := domain.Submission{
		Device:    types.DeviceIdentity(identity),
		Latitude:  lat,
		Longitude: lon,
	}

	if len(fields) == 4 {
		ts, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if err != nil || ts <= 0 {
			return domain.Submission{}, errInvalidLine
		}
		submission.ObservedAt = time.Unix(ts, 0).UTC()
	}

	return submission, nil
}

func remoteIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// isInWhiteList поддерживает точные адреса и шаблоны вида "10.20.*"
func isInWhiteList(ip string, whiteList []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return false
	}

	for _, pattern := range whiteList {
		star := strings.Index(pattern, "*")
		if star == -1 {
			if pattern == ip {
				return true
			}
			continue
		}

		// звездочка допустима только в конце после точки
		if star != len(pattern)-1 || !strings.HasSuffix(pattern, ".*") {
			continue
		}
		if strings.HasPrefix(ip, pattern[:star]) {
			return true
		}
	}

	return false
}
