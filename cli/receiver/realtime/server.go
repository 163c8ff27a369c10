package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/broadcast"
	"github.com/daniil11ru/livefleet/cli/receiver/domain"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	repliesSize    = 16
)

// Server канал живых обновлений: подписки и прием местоположений от водителей
type Server struct {
	registry *broadcast.Registry
	submit   *domain.SubmitPosition
	upgrader websocket.Upgrader

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
}

func NewServer(registry *broadcast.Registry, submit *domain.SubmitPosition, allowedOrigins []string) *Server {
	s := &Server{
		registry:       registry,
		submit:         submit,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// checkOrigin без списка разрешенных источников принимает только тот же хост
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if s.allowedOrigins["*"] || s.allowedOrigins[origin] {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if len(s.allowedOrigins) > 0 {
		return s.allowedHosts[parsed.Host]
	}
	return parsed.Host == r.Host
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Connect()
	if err != nil {
		log.WithField("ip", r.RemoteAddr).Warn("Отклонено подключение: превышено количество сессий")
		http.Error(w, types.Code(err), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.registry.Disconnect(session.ID)
		log.WithField("err", err).Warn("Ошибка установки WebSocket соединения")
		return
	}

	log.WithFields(log.Fields{"ip": r.RemoteAddr, "session": session.ID}).Info("Установлено соединение наблюдателя")

	c := &connection{
		server:  s,
		conn:    conn,
		session: session,
		replies: make(chan Outbound, repliesSize),
		done:    make(chan struct{}),
	}
	go c.writePump()
	c.readPump(r)
}

type connection struct {
	server  *Server
	conn    *websocket.Conn
	session *broadcast.Session
	replies chan Outbound
	done    chan struct{}
}

func (c *connection) readPump(r *http.Request) {
	defer func() {
		c.server.registry.Disconnect(c.session.ID)
		<-c.done
		log.WithFields(log.Fields{"ip": r.RemoteAddr, "session": c.session.ID}).Info("Наблюдатель отключен")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithField("err", err).Debug("Соединение наблюдателя прервано")
			}
			return
		}

		reply := c.handle(r, data)

		select {
		case c.replies <- reply:
		case <-c.done:
			return
		}
	}
}

func (c *connection) handle(r *http.Request, data []byte) Outbound {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return failure("", "invalid_input", err)
	}

	switch msg.Type {
	case MsgSubscribe, MsgUnsubscribe:
		topic, ok := msg.topic()
		if !ok {
			return failure(msg.Type, "invalid_input", errors.New("не задан vehicle_id"))
		}

		var err error
		if msg.Type == MsgSubscribe {
			err = c.server.registry.Subscribe(c.session.ID, topic)
		} else {
			err = c.server.registry.Unsubscribe(c.session.ID, topic)
		}
		if err != nil {
			return failure(msg.Type, types.Code(err), err)
		}
		return ack(msg.Type, "ok")

	case MsgUpdateLocation:
		if msg.Latitude == nil || msg.Longitude == nil {
			return failure(msg.Type, "invalid_input", errors.New("не заданы координаты"))
		}

		submission := domain.Submission{
			Device:    types.DeviceIdentity(msg.MobileNo),
			Latitude:  *msg.Latitude,
			Longitude: *msg.Longitude,
		}
		if msg.ObservedAt != nil {
			submission.ObservedAt = msg.ObservedAt.UTC()
		}

		result, err := c.server.submit.Run(r.Context(), submission)
		if err != nil {
			if types.Code(err) == "internal_error" {
				log.WithField("err", err).Error("Ошибка приема местоположения")
			}
			return failure(msg.Type, types.Code(err), err)
		}

		reply := ack(msg.Type, string(result.Status))
		reply.VehicleID = string(result.VehicleID)
		reply.Latitude = &result.Latitude
		reply.Longitude = &result.Longitude
		return reply

	default:
		return failure(msg.Type, "invalid_input", errors.New("неизвестный тип сообщения"))
	}
}

func (c *connection) write(msg Outbound) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.server.registry.Disconnect(c.session.ID)
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case ev, ok := <-c.session.Events():
			if !ok {
				c.writeClose()
				return
			}
			if err := c.write(locationUpdated(ev)); err != nil {
				return
			}
		case reply := <-c.replies:
			if err := c.write(reply); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) writeClose() {
	code, text := websocket.CloseNormalClosure, ""
	if errors.Is(c.session.Err(), types.ErrSessionBackpressure) {
		code, text = websocket.CloseTryAgainLater, "backpressure"
		log.WithField("session", c.session.ID).Warn("Наблюдатель отключен из-за переполнения очереди")
	}

	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
