package export

import (
	"runtime"
	"sync"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

// AsyncRepository отправляет события в брокеры пулом воркеров.
// При заполненном буфере событие отбрасывается, приемник не ждет брокеры.
type AsyncRepository struct {
	repo   *Repository
	format Format
	ch     chan interface{ ToBytes() ([]byte, error) }
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncRepository(repo *Repository, format Format, buffer, workers int) *AsyncRepository {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ar := &AsyncRepository{
		repo:   repo,
		format: format,
		ch:     make(chan interface{ ToBytes() ([]byte, error) }, buffer),
	}
	for i := 0; i < workers; i++ {
		ar.wg.Add(1)
		go ar.worker()
	}
	return ar
}

func (a *AsyncRepository) worker() {
	defer a.wg.Done()
	for msg := range a.ch {
		if err := a.repo.Save(msg); err != nil {
			log.WithField("err", err).Error("Ошибка экспорта события")
		}
	}
}

func (a *AsyncRepository) Publish(ev types.BroadcastEvent) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}

	select {
	case a.ch <- NewMessage(ev, a.format):
	default:
		log.WithField("vehicle_id", ev.VehicleID).Warn("Буфер экспорта заполнен, событие отброшено")
	}
}

// Close дожидается отправки накопленных событий
func (a *AsyncRepository) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	a.wg.Wait()
}
