package redis

import (
	"testing"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	rec := types.PositionRecord{
		VehicleID:  "BUS1",
		Latitude:   28.70,
		Longitude:  77.10,
		ObservedAt: time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC),
		ReceivedAt: time.Date(2024, time.March, 1, 8, 0, 1, 0, time.UTC),
	}

	raw, err := encode(rec)
	require.NoError(t, err)
	assert.Contains(t, raw, `"vehicle_id":"BUS1"`)

	decoded, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, rec.VehicleID, decoded.VehicleID)
	assert.True(t, rec.ObservedAt.Equal(decoded.ObservedAt))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := decode("{not json")
	assert.Error(t, err)
}

func TestInitBadDB(t *testing.T) {
	c := &Connector{}
	assert.Error(t, c.Init(map[string]string{"db": "zero"}))
	assert.Error(t, c.Init(nil))
}
