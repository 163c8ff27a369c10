package export

import (
	"errors"
	"fmt"
	"sort"

	"github.com/daniil11ru/livefleet/cli/receiver/export/store/mqtt"
	"github.com/daniil11ru/livefleet/cli/receiver/export/store/nats"
	"github.com/daniil11ru/livefleet/cli/receiver/export/store/rabbitmq"
	"github.com/daniil11ru/livefleet/cli/receiver/export/store/redis"
	"github.com/daniil11ru/livefleet/cli/receiver/export/store/tarantool_queue"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownBroker = errors.New("брокер не поддерживается")

// Store интерфейс для подключения внешних брокеров
type Store interface {
	Init(map[string]string) error
	Save(interface{ ToBytes() ([]byte, error) }) error
	Close() error
}

// Repository набор брокеров, в которые отправляются события
type Repository struct {
	storages []Store
}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) AddStore(s Store) {
	r.storages = append(r.storages, s)
}

// Save отправляет сообщение во все брокеры; ошибка одного не мешает остальным
func (r *Repository) Save(m interface{ ToBytes() ([]byte, error) }) error {
	var errs []error
	for _, store := range r.storages {
		if err := store.Save(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Repository) Close() error {
	var errs []error
	for _, store := range r.storages {
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Repository) Len() int {
	return len(r.storages)
}

var newStore = func(name string) (Store, error) {
	switch name {
	case "nats":
		return &nats.Connector{}, nil
	case "rabbitmq":
		return &rabbitmq.Connector{}, nil
	case "tarantool_queue":
		return &tarantool_queue.Connector{}, nil
	case "redis":
		return &redis.Connector{}, nil
	case "mqtt":
		return &mqtt.Connector{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBroker, name)
	}
}

// LoadStorages загружает брокеры из структуры конфига.
// При ошибке уже подключенные брокеры закрываются.
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	names := make([]string, 0, len(storages))
	for name := range storages {
		names = append(names, name)
	}
	sort.Strings(names)

	var connected []Store
	for _, name := range names {
		store, err := newStore(name)
		if err == nil {
			if err = store.Init(storages[name]); err != nil {
				err = fmt.Errorf("не удалось подключить брокер %s: %w", name, err)
			}
		}
		if err != nil {
			for _, c := range connected {
				if cerr := c.Close(); cerr != nil {
					log.WithField("err", cerr).Warn("Не удалось закрыть брокер")
				}
			}
			return err
		}

		log.WithField("broker", name).Info("Подключен брокер для экспорта событий")
		connected = append(connected, store)
	}

	for _, store := range connected {
		r.AddStore(store)
	}
	return nil
}
