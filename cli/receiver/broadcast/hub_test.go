package broadcast

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/daniil11ru/livefleet/cli/receiver/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

func event(vehicle string, sec int64) types.BroadcastEvent {
	return types.BroadcastEvent{
		VehicleID:  types.VehicleID(vehicle),
		Latitude:   10,
		Longitude:  20,
		ObservedAt: time.Unix(sec, 0).UTC(),
	}
}

func drain(s *Session) []types.BroadcastEvent {
	var out []types.BroadcastEvent
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHub_PublishFiltersByVehicle(t *testing.T) {
	registry := NewRegistry(8, 0)
	hub := NewHub(registry)

	bus1, err := registry.Connect()
	require.NoError(t, err)
	bus2, err := registry.Connect()
	require.NoError(t, err)
	idle, err := registry.Connect()
	require.NoError(t, err)

	require.NoError(t, registry.Subscribe(bus1.ID, VehicleTopic("BUS1")))
	require.NoError(t, registry.Subscribe(bus2.ID, VehicleTopic("BUS2")))

	hub.Publish(event("BUS1", 100))

	assert.Equal(t, []types.BroadcastEvent{event("BUS1", 100)}, drain(bus1))
	assert.Empty(t, drain(bus2))
	assert.Empty(t, drain(idle))
}

func TestHub_PublishGlobal(t *testing.T) {
	registry := NewRegistry(8, 0)
	hub := NewHub(registry)

	s, err := registry.Connect()
	require.NoError(t, err)
	require.NoError(t, registry.Subscribe(s.ID, GlobalTopic))

	hub.Publish(event("BUS1", 100))
	hub.Publish(event("BUS2", 100))

	assert.Len(t, drain(s), 2)
}

func TestHub_PublishOncePerSession(t *testing.T) {
	registry := NewRegistry(8, 0)
	hub := NewHub(registry)

	s, err := registry.Connect()
	require.NoError(t, err)
	require.NoError(t, registry.Subscribe(s.ID, GlobalTopic))
	require.NoError(t, registry.Subscribe(s.ID, VehicleTopic("BUS1")))
	// повторная подписка не дублирует доставку
	require.NoError(t, registry.Subscribe(s.ID, VehicleTopic("BUS1")))

	hub.Publish(event("BUS1", 100))

	assert.Len(t, drain(s), 1)
}

func TestHub_PreservesPerVehicleOrder(t *testing.T) {
	registry := NewRegistry(8, 0)
	hub := NewHub(registry)

	s, err := registry.Connect()
	require.NoError(t, err)
	require.NoError(t, registry.Subscribe(s.ID, VehicleTopic("BUS1")))

	hub.Publish(event("BUS1", 200))
	hub.Publish(event("BUS1", 100))
	hub.Publish(event("BUS1", 300))

	got := drain(s)
	require.Len(t, got, 2)
	assert.Equal(t, time.Unix(200, 0).UTC(), got[0].ObservedAt)
	assert.Equal(t, time.Unix(300, 0).UTC(), got[1].ObservedAt)
}

func TestHub_SlowSessionDisconnected(t *testing.T) {
	registry := NewRegistry(1, 0)
	hub := NewHub(registry)

	slow, err := registry.Connect()
	require.NoError(t, err)
	fast, err := registry.Connect()
	require.NoError(t, err)
	require.NoError(t, registry.Subscribe(slow.ID, GlobalTopic))
	require.NoError(t, registry.Subscribe(fast.ID, GlobalTopic))

	hub.Publish(event("BUS1", 100))
	assert.Len(t, drain(fast), 1)

	hub.Publish(event("BUS1", 200))

	_, ok := registry.Get(slow.ID)
	assert.False(t, ok)
	assert.ErrorIs(t, slow.Err(), types.ErrSessionBackpressure)
	assert.Len(t, drain(fast), 1)

	// закрытый канал вычитывается до конца
	got := drain(slow)
	assert.Len(t, got, 1)
	_, open := <-slow.Events()
	assert.False(t, open)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(NewRegistry(0, 0))
	assert.NotPanics(t, func() { hub.Publish(event("BUS1", 100)) })
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	registry := NewRegistry(1024, 0)
	hub := NewHub(registry)

	s, err := registry.Connect()
	require.NoError(t, err)
	require.NoError(t, registry.Subscribe(s.ID, GlobalTopic))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(event("BUS1", int64(i*1000+j)))
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		other, err := registry.Connect()
		require.NoError(t, err)
		require.NoError(t, registry.Subscribe(other.ID, VehicleTopic("BUS1")))
		registry.Disconnect(other.ID)
	}
	wg.Wait()

	got := drain(s)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].ObservedAt.After(got[i-1].ObservedAt))
	}
}
