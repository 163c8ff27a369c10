package source

import (
	"context"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
)

// Assignment внешний реестр привязки устройств к транспорту
type Assignment interface {
	// LookupVehicleForDevice ok == false, если устройство ни к чему не привязано
	LookupVehicleForDevice(ctx context.Context, device types.DeviceIdentity) (vehicleID types.VehicleID, ok bool, err error)
}

// StaticAssignment привязки из файла конфигурации
type StaticAssignment struct {
	devices map[types.DeviceIdentity]types.VehicleID
}

func NewStaticAssignment(devices map[string]string) *StaticAssignment {
	s := &StaticAssignment{devices: make(map[types.DeviceIdentity]types.VehicleID, len(devices))}
	for device, vehicle := range devices {
		if vehicle == "" {
			continue
		}
		s.devices[types.DeviceIdentity(device)] = types.VehicleID(vehicle)
	}
	return s
}

func (s *StaticAssignment) LookupVehicleForDevice(_ context.Context, device types.DeviceIdentity) (types.VehicleID, bool, error) {
	vehicleID, ok := s.devices[device]
	return vehicleID, ok, nil
}
