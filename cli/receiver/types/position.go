package types

import (
	"math"
	"time"
)

// VehicleID непрозрачный идентификатор транспортного средства
type VehicleID string

// DeviceIdentity идентичность устройства, уже подтвержденная транспортом
type DeviceIdentity string

type Position2D struct {
	Latitude  float64
	Longitude float64
}

func (p Position2D) IsValid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// PositionRecord последнее принятое местоположение транспорта
type PositionRecord struct {
	VehicleID  VehicleID `json:"vehicle_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
	ReceivedAt time.Time `json:"received_at"`
}

func (r PositionRecord) Position() Position2D {
	return Position2D{Latitude: r.Latitude, Longitude: r.Longitude}
}

func (r PositionRecord) Event() BroadcastEvent {
	return BroadcastEvent{
		VehicleID:  r.VehicleID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		ObservedAt: r.ObservedAt,
	}
}

// BroadcastEvent рассылается наблюдателям ровно один раз на каждую принятую запись
type BroadcastEvent struct {
	VehicleID  VehicleID `json:"vehicle_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
}
