package response

import (
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
)

type Location struct {
	BusID       string    `json:"bus_id"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	ObservedAt  time.Time `json:"observed_at"`
	LastUpdated time.Time `json:"last_updated"`
}

func NewLocation(rec types.PositionRecord) Location {
	return Location{
		BusID:       string(rec.VehicleID),
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		ObservedAt:  rec.ObservedAt,
		LastUpdated: rec.ReceivedAt,
	}
}

type GetLocation struct {
	Status   string   `json:"status"`
	Location Location `json:"location"`
}

type UpdateLocation struct {
	Status    string  `json:"status"`
	BusID     string  `json:"bus_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Failure struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}
