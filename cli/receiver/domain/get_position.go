package domain

import (
	"github.com/daniil11ru/livefleet/cli/receiver/storage"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
)

type GetPosition struct {
	Store *storage.PositionStore
}

func (domain *GetPosition) Run(vehicleID types.VehicleID) (types.PositionRecord, error) {
	record, ok := domain.Store.Get(vehicleID)
	if !ok {
		return types.PositionRecord{}, types.ErrPositionNotFound
	}
	return record, nil
}

type ListPositions struct {
	Store *storage.PositionStore
}

func (domain *ListPositions) Run() []types.PositionRecord {
	return domain.Store.List()
}
