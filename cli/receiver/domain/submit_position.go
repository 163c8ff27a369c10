package domain

import (
	"context"
	"errors"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/storage"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	log "github.com/sirupsen/logrus"
)

var now = time.Now

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusStale    Status = "stale"
)

// Publisher получатель принятых событий
type Publisher interface {
	Publish(ev types.BroadcastEvent)
}

type Submission struct {
	Device     types.DeviceIdentity
	Latitude   float64
	Longitude  float64
	ObservedAt time.Time
}

type SubmitResult struct {
	Status    Status
	VehicleID types.VehicleID
	Latitude  float64
	Longitude float64
}

// SubmitPosition единственная точка записи местоположений
type SubmitPosition struct {
	ResolveIdentity *ResolveIdentity
	Store           *storage.PositionStore
	Publishers      []Publisher
}

func (domain *SubmitPosition) Run(ctx context.Context, s Submission) (SubmitResult, error) {
	vehicleID, err := domain.ResolveIdentity.Run(ctx, s.Device)
	if err != nil {
		return SubmitResult{}, err
	}

	observedAt := s.ObservedAt
	if observedAt.IsZero() {
		observedAt = now().UTC()
	}

	position := types.Position2D{Latitude: s.Latitude, Longitude: s.Longitude}
	record, err := domain.Store.Upsert(ctx, vehicleID, position, observedAt)
	switch {
	case errors.Is(err, types.ErrStale):
		log.WithFields(log.Fields{
			"vehicle_id":  vehicleID,
			"observed_at": observedAt,
		}).Debug("Устаревшее местоположение пропущено")

		return SubmitResult{
			Status:    StatusStale,
			VehicleID: vehicleID,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		}, nil
	case err != nil:
		return SubmitResult{}, err
	}

	ev := record.Event()
	for _, p := range domain.Publishers {
		p.Publish(ev)
	}

	return SubmitResult{
		Status:    StatusAccepted,
		VehicleID: record.VehicleID,
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
	}, nil
}
