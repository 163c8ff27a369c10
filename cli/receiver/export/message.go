package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/golang/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/vmihailenco/msgpack.v2"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMsgpack  Format = "msgpack"
	FormatProtobuf Format = "protobuf"
)

type payload struct {
	VehicleID  string  `json:"vehicle_id" msgpack:"vehicle_id"`
	Latitude   float64 `json:"latitude" msgpack:"latitude"`
	Longitude  float64 `json:"longitude" msgpack:"longitude"`
	ObservedAt string  `json:"observed_at" msgpack:"observed_at"`
}

// Message событие для внешних брокеров
type Message struct {
	Event  types.BroadcastEvent
	Format Format
}

func NewMessage(ev types.BroadcastEvent, format Format) *Message {
	return &Message{Event: ev, Format: format}
}

func (m *Message) payload() payload {
	return payload{
		VehicleID:  string(m.Event.VehicleID),
		Latitude:   m.Event.Latitude,
		Longitude:  m.Event.Longitude,
		ObservedAt: m.Event.ObservedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (m *Message) ToBytes() ([]byte, error) {
	p := m.payload()

	switch m.Format {
	case FormatJSON, "":
		return json.Marshal(p)
	case FormatMsgpack:
		return msgpack.Marshal(p)
	case FormatProtobuf:
		st, err := structpb.NewStruct(map[string]interface{}{
			"vehicle_id":  p.VehicleID,
			"latitude":    p.Latitude,
			"longitude":   p.Longitude,
			"observed_at": p.ObservedAt,
		})
		if err != nil {
			return nil, err
		}
		return proto.Marshal(st)
	default:
		return nil, fmt.Errorf("неизвестный формат сообщения: %s", m.Format)
	}
}
