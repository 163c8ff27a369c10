package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var now = time.Now

const DefaultQueueSize = 64

// index неизменяемый снимок подписок; публикация читает его без блокировок
type index struct {
	sessions map[SessionID]*Session
	global   map[SessionID]*Session
	vehicles map[types.VehicleID]map[SessionID]*Session
}

func emptyIndex() *index {
	return &index{
		sessions: make(map[SessionID]*Session),
		global:   make(map[SessionID]*Session),
		vehicles: make(map[types.VehicleID]map[SessionID]*Session),
	}
}

func copySet(src map[SessionID]*Session) map[SessionID]*Session {
	dst := make(map[SessionID]*Session, len(src)+1)
	for id, s := range src {
		dst[id] = s
	}
	return dst
}

// indexBuilder копирует только затронутые карты текущего снимка
type indexBuilder struct {
	cur  *index
	next index

	sessionsCopied bool
	globalCopied   bool
	vehiclesCopied bool
}

func newIndexBuilder(cur *index) *indexBuilder {
	return &indexBuilder{cur: cur, next: *cur}
}

func (b *indexBuilder) sessions() map[SessionID]*Session {
	if !b.sessionsCopied {
		b.next.sessions = copySet(b.cur.sessions)
		b.sessionsCopied = true
	}
	return b.next.sessions
}

func (b *indexBuilder) global() map[SessionID]*Session {
	if !b.globalCopied {
		b.next.global = copySet(b.cur.global)
		b.globalCopied = true
	}
	return b.next.global
}

func (b *indexBuilder) vehicles() map[types.VehicleID]map[SessionID]*Session {
	if !b.vehiclesCopied {
		vehicles := make(map[types.VehicleID]map[SessionID]*Session, len(b.cur.vehicles)+1)
		for v, set := range b.cur.vehicles {
			vehicles[v] = set
		}
		b.next.vehicles = vehicles
		b.vehiclesCopied = true
	}
	return b.next.vehicles
}

func (b *indexBuilder) add(s *Session, topic Topic) {
	if topic.Global {
		b.global()[s.ID] = s
		return
	}
	vehicles := b.vehicles()
	set := copySet(vehicles[topic.VehicleID])
	set[s.ID] = s
	vehicles[topic.VehicleID] = set
}

func (b *indexBuilder) remove(id SessionID, topic Topic) {
	if topic.Global {
		delete(b.global(), id)
		return
	}
	vehicles := b.vehicles()
	set := copySet(vehicles[topic.VehicleID])
	delete(set, id)
	if len(set) == 0 {
		delete(vehicles, topic.VehicleID)
		return
	}
	vehicles[topic.VehicleID] = set
}

func (b *indexBuilder) build() *index {
	next := b.next
	return &next
}

// Registry жизненный цикл сессий и их подписок
type Registry struct {
	mu            sync.Mutex
	current       atomic.Pointer[index]
	subscriptions map[SessionID]map[Topic]struct{}

	queueSize   int
	maxSessions int
}

// NewRegistry maxSessions == 0 снимает ограничение на количество сессий
func NewRegistry(queueSize, maxSessions int) *Registry {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Registry{
		subscriptions: make(map[SessionID]map[Topic]struct{}),
		queueSize:     queueSize,
		maxSessions:   maxSessions,
	}
	r.current.Store(emptyIndex())
	return r
}

func (r *Registry) snapshot() *index {
	return r.current.Load()
}

func (r *Registry) Connect() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	if r.maxSessions > 0 && len(cur.sessions) >= r.maxSessions {
		return nil, types.ErrTooManySessions
	}

	s := newSession(SessionID(uuid.New().String()), r.queueSize)

	b := newIndexBuilder(cur)
	b.sessions()[s.ID] = s
	r.subscriptions[s.ID] = make(map[Topic]struct{})
	r.current.Store(b.build())

	log.WithField("session", s.ID).Debug("Сессия подключена")
	return s, nil
}

func (r *Registry) Subscribe(id SessionID, topic Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	s, ok := cur.sessions[id]
	if !ok {
		return types.ErrSessionNotFound
	}
	if _, exists := r.subscriptions[id][topic]; exists {
		return nil
	}

	b := newIndexBuilder(cur)
	b.add(s, topic)
	r.subscriptions[id][topic] = struct{}{}
	r.current.Store(b.build())

	log.WithFields(log.Fields{"session": id, "topic": topic.String()}).Debug("Оформлена подписка")
	return nil
}

func (r *Registry) Unsubscribe(id SessionID, topic Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	if _, ok := cur.sessions[id]; !ok {
		return types.ErrSessionNotFound
	}
	if _, exists := r.subscriptions[id][topic]; !exists {
		return nil
	}

	b := newIndexBuilder(cur)
	b.remove(id, topic)
	delete(r.subscriptions[id], topic)
	r.current.Store(b.build())
	return nil
}

// Disconnect удаляет сессию и ее подписки; повторный вызов ничего не делает
func (r *Registry) Disconnect(id SessionID) {
	r.disconnect(id, nil)
}

func (r *Registry) disconnect(id SessionID, reason error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	s, ok := cur.sessions[id]
	if !ok {
		return false
	}

	b := newIndexBuilder(cur)
	for topic := range r.subscriptions[id] {
		b.remove(id, topic)
	}
	delete(b.sessions(), id)
	delete(r.subscriptions, id)
	r.current.Store(b.build())

	s.close(reason)

	log.WithField("session", id).Debug("Сессия отключена")
	return true
}

func (r *Registry) Get(id SessionID) (*Session, bool) {
	s, ok := r.snapshot().sessions[id]
	return s, ok
}

func (r *Registry) Subscriptions(id SessionID) []Topic {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]Topic, 0, len(r.subscriptions[id]))
	for topic := range r.subscriptions[id] {
		topics = append(topics, topic)
	}
	return topics
}

func (r *Registry) Count() int {
	return len(r.snapshot().sessions)
}

// Close отключает все сессии
func (r *Registry) Close() {
	for id := range r.snapshot().sessions {
		r.Disconnect(id)
	}
}
