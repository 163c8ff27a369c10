package storage

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

var now = time.Now // For mocking time.Now() in tests

const DefaultShardCount = 32

// TimePrecision точность меток времени во внешних хранилищах (TIMESTAMPTZ, DATETIME(6))
const TimePrecision = time.Microsecond

type shard struct {
	mu      sync.RWMutex
	records map[types.VehicleID]types.PositionRecord
}

// PositionStore авторитетное состояние: одна последняя запись на транспорт.
// Запись по одному транспорту линеаризуется мьютексом его шарда.
type PositionStore struct {
	shards    []*shard
	persister Persister
}

// NewPositionStore persister может быть nil, тогда состояние живет только в памяти
func NewPositionStore(shardCount int, persister Persister) *PositionStore {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}

	s := &PositionStore{
		shards:    make([]*shard, shardCount),
		persister: persister,
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[types.VehicleID]types.PositionRecord)}
	}
	return s
}

func (s *PositionStore) shardFor(vehicleID types.VehicleID) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(vehicleID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Initialize заполняет состояние из внешнего хранилища
func (s *PositionStore) Initialize(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	records, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("не удалось загрузить местоположения: %w", err)
	}

	for _, rec := range records {
		sh := s.shardFor(rec.VehicleID)
		sh.mu.Lock()
		if existing, ok := sh.records[rec.VehicleID]; !ok || rec.ObservedAt.After(existing.ObservedAt) {
			sh.records[rec.VehicleID] = rec
		}
		sh.mu.Unlock()
	}

	log.Infof("Загружено местоположений транспорта: %d", len(records))
	return nil
}

// Upsert принимает местоположение, если оно новее сохраненного.
// Возвращает types.ErrInvalidCoordinates, types.ErrStale или ошибку хранилища.
func (s *PositionStore) Upsert(ctx context.Context, vehicleID types.VehicleID, position types.Position2D, observedAt time.Time) (types.PositionRecord, error) {
	if !position.IsValid() {
		return types.PositionRecord{}, types.ErrInvalidCoordinates
	}

	// иначе после теплого старта повтор той же отметки пройдет проверку свежести
	observedAt = observedAt.Truncate(TimePrecision)

	sh := s.shardFor(vehicleID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if existing, ok := sh.records[vehicleID]; ok && !observedAt.After(existing.ObservedAt) {
		return existing, types.ErrStale
	}

	record := types.PositionRecord{
		VehicleID:  vehicleID,
		Latitude:   position.Latitude,
		Longitude:  position.Longitude,
		ObservedAt: observedAt,
		ReceivedAt: now().UTC().Truncate(TimePrecision),
	}

	if s.persister != nil {
		if err := s.persister.Save(ctx, record); err != nil {
			return types.PositionRecord{}, fmt.Errorf("не удалось сохранить местоположение транспорта %s: %w", vehicleID, err)
		}
	}

	sh.records[vehicleID] = record
	return record, nil
}

func (s *PositionStore) Get(vehicleID types.VehicleID) (types.PositionRecord, bool) {
	sh := s.shardFor(vehicleID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.records[vehicleID]
	return rec, ok
}

// List снимок всех записей; шарды копируются по очереди
func (s *PositionStore) List() []types.PositionRecord {
	result := make([]types.PositionRecord, 0, s.Count())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.records {
			result = append(result, rec)
		}
		sh.mu.RUnlock()
	}
	return result
}

func (s *PositionStore) Count() int {
	count := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		count += len(sh.records)
		sh.mu.RUnlock()
	}
	return count
}
