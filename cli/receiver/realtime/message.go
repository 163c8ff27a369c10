package realtime

import (
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/broadcast"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
)

const (
	MsgSubscribe       = "subscribe"
	MsgUnsubscribe     = "unsubscribe"
	MsgUpdateLocation  = "updateLocation"
	MsgLocationUpdated = "locationUpdated"
	MsgAck             = "ack"
	MsgError           = "error"
)

// Inbound сообщение от клиента
type Inbound struct {
	Type string `json:"type"`

	VehicleID string `json:"vehicle_id,omitempty"`
	Global    bool   `json:"global,omitempty"`

	MobileNo   string     `json:"mobileNo,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

func (m Inbound) topic() (broadcast.Topic, bool) {
	if m.Global {
		return broadcast.GlobalTopic, true
	}
	if m.VehicleID == "" {
		return broadcast.Topic{}, false
	}
	return broadcast.VehicleTopic(types.VehicleID(m.VehicleID)), true
}

// Outbound сообщение клиенту
type Outbound struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Status  string `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`

	VehicleID  string     `json:"vehicle_id,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

func locationUpdated(ev types.BroadcastEvent) Outbound {
	lat, lon, observedAt := ev.Latitude, ev.Longitude, ev.ObservedAt
	return Outbound{
		Type:       MsgLocationUpdated,
		VehicleID:  string(ev.VehicleID),
		Latitude:   &lat,
		Longitude:  &lon,
		ObservedAt: &observedAt,
	}
}

func ack(request, status string) Outbound {
	return Outbound{Type: MsgAck, Request: request, Status: status}
}

func failure(request, code string, err error) Outbound {
	return Outbound{Type: MsgError, Request: request, Code: code, Error: err.Error()}
}
