package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/vmihailenco/msgpack.v2"
)

var testEvent = types.BroadcastEvent{
	VehicleID:  "BUS1",
	Latitude:   55.75,
	Longitude:  37.61,
	ObservedAt: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
}

func TestMessage_ToBytes(t *testing.T) {
	expected := payload{
		VehicleID:  "BUS1",
		Latitude:   55.75,
		Longitude:  37.61,
		ObservedAt: "2024-05-01T08:30:00Z",
	}

	t.Run("json", func(t *testing.T) {
		b, err := NewMessage(testEvent, FormatJSON).ToBytes()
		require.NoError(t, err)

		var got payload
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, expected, got)
	})

	t.Run("default format is json", func(t *testing.T) {
		b, err := NewMessage(testEvent, "").ToBytes()
		require.NoError(t, err)
		assert.True(t, json.Valid(b))
	})

	t.Run("msgpack", func(t *testing.T) {
		b, err := NewMessage(testEvent, FormatMsgpack).ToBytes()
		require.NoError(t, err)

		var got payload
		require.NoError(t, msgpack.Unmarshal(b, &got))
		assert.Equal(t, expected, got)
	})

	t.Run("protobuf", func(t *testing.T) {
		b, err := NewMessage(testEvent, FormatProtobuf).ToBytes()
		require.NoError(t, err)

		var st structpb.Struct
		require.NoError(t, proto.Unmarshal(b, &st))
		fields := st.GetFields()
		assert.Equal(t, "BUS1", fields["vehicle_id"].GetStringValue())
		assert.Equal(t, 55.75, fields["latitude"].GetNumberValue())
		assert.Equal(t, "2024-05-01T08:30:00Z", fields["observed_at"].GetStringValue())
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewMessage(testEvent, "xml").ToBytes()
		assert.Error(t, err)
	})
}
