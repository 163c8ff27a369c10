package broadcast

import (
	"sync"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
)

type SessionID string

// Topic подписка на конкретный транспорт или на общий поток
type Topic struct {
	VehicleID types.VehicleID
	Global    bool
}

var GlobalTopic = Topic{Global: true}

func VehicleTopic(id types.VehicleID) Topic {
	return Topic{VehicleID: id}
}

func (t Topic) String() string {
	if t.Global {
		return "*"
	}
	return string(t.VehicleID)
}

type deliveryResult int

const (
	delivered deliveryResult = iota
	skipped
	overflow
)

// Session живое подключение наблюдателя с ограниченной очередью исходящих событий
type Session struct {
	ID        SessionID
	CreatedAt time.Time

	mu       sync.Mutex
	events   chan types.BroadcastEvent
	closed   bool
	reason   error
	lastSeen map[types.VehicleID]time.Time
}

func newSession(id SessionID, queueSize int) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now(),
		events:    make(chan types.BroadcastEvent, queueSize),
		lastSeen:  make(map[types.VehicleID]time.Time),
	}
}

// Events канал закрывается при отключении сессии
func (s *Session) Events() <-chan types.BroadcastEvent {
	return s.events
}

// Err причина отключения; nil для обычного отключения
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) deliver(ev types.BroadcastEvent) deliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return skipped
	}
	// не даем событию одного транспорта обогнать более свежее
	if last, ok := s.lastSeen[ev.VehicleID]; ok && !ev.ObservedAt.After(last) {
		return skipped
	}

	select {
	case s.events <- ev:
		s.lastSeen[ev.VehicleID] = ev.ObservedAt
		return delivered
	default:
		return overflow
	}
}

func (s *Session) close(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.reason = reason
	close(s.events)
}
