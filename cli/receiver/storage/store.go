package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/daniil11ru/livefleet/cli/receiver/storage/store/mysql"
	"github.com/daniil11ru/livefleet/cli/receiver/storage/store/postgresql"
	"github.com/daniil11ru/livefleet/cli/receiver/storage/store/redis"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidStorage = errors.New("хранилище не найдено")
var ErrUnknownStorage = errors.New("хранилище не поддерживается")

type Store interface {
	Connector
	Persister
}

// Persister внешний носитель последних местоположений
type Persister interface {
	// Load все сохраненные записи
	Load(ctx context.Context) ([]types.PositionRecord, error)

	// Save запись (вставка или замена по vehicle_id)
	Save(ctx context.Context, record types.PositionRecord) error
}

// Connector интерфейс для подключения внешних хранилищ
type Connector interface {
	// Init установка соединения с хранилищем
	Init(map[string]string) error

	// Close закрытие соединения с хранилищем
	Close() error
}

// Repository набор хранилищ, в которые записываются принятые местоположения
type Repository struct {
	storages []Store
}

// AddStore добавляет хранилище для сохранения данных
func (r *Repository) AddStore(s Store) {
	r.storages = append(r.storages, s)
}

// Save сохраняет запись во все установленные хранилища
func (r *Repository) Save(ctx context.Context, record types.PositionRecord) error {
	for _, store := range r.storages {
		if err := store.Save(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// Load читает записи из всех хранилищ, при расхождении побеждает более свежая
func (r *Repository) Load(ctx context.Context) ([]types.PositionRecord, error) {
	latest := make(map[types.VehicleID]types.PositionRecord)
	for _, store := range r.storages {
		records, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if existing, ok := latest[rec.VehicleID]; ok && !rec.ObservedAt.After(existing.ObservedAt) {
				continue
			}
			latest[rec.VehicleID] = rec
		}
	}

	result := make([]types.PositionRecord, 0, len(latest))
	for _, rec := range latest {
		result = append(result, rec)
	}
	return result, nil
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
	case "postgresql":
		return &postgresql.Connector{}, nil
	case "mysql":
		return &mysql.Connector{}, nil
	case "redis":
		return &redis.Connector{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStorage, name)
	}
}

// LoadStorages загружает хранилища из структуры конфига.
// При ошибке уже подключенные хранилища закрываются.
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	names := make([]string, 0, len(storages))
	for name := range storages {
		names = append(names, name)
	}
	sort.Strings(names)

	var connected []Store
	for _, name := range names {
		db, err := newStore(name)
		if err == nil {
			err = db.Init(storages[name])
		}
		if err != nil {
			for _, c := range connected {
				if cerr := c.Close(); cerr != nil {
					log.WithField("err", cerr).Warn("Не удалось закрыть хранилище")
				}
			}
			return err
		}

		log.WithField("storage", name).Info("Подключено хранилище местоположений")
		connected = append(connected, db)
	}

	for _, db := range connected {
		r.AddStore(db)
	}
	return nil
}

// NewRepository создает пустой репозиторий
func NewRepository() *Repository {
	return &Repository{}
}
