package domain

import (
	"context"
	"fmt"

	"github.com/daniil11ru/livefleet/cli/receiver/source"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
)

// ResolveIdentity каждый раз обращается к реестру привязок, результат не кэшируется
type ResolveIdentity struct {
	Assignment source.Assignment
}

func (domain *ResolveIdentity) Run(ctx context.Context, device types.DeviceIdentity) (types.VehicleID, error) {
	if device == "" {
		return "", types.ErrUnknownDevice
	}

	vehicleID, ok, err := domain.Assignment.LookupVehicleForDevice(ctx, device)
	if err != nil {
		return "", fmt.Errorf("ошибка реестра привязок: %w", err)
	}
	if !ok {
		return "", types.ErrUnknownDevice
	}

	return vehicleID, nil
}
