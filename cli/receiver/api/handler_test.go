package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/daniil11ru/livefleet/cli/receiver/api/dto/response"
	"github.com/daniil11ru/livefleet/cli/receiver/broadcast"
	"github.com/daniil11ru/livefleet/cli/receiver/domain"
	"github.com/daniil11ru/livefleet/cli/receiver/source"
	"github.com/daniil11ru/livefleet/cli/receiver/storage"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func init() {
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)
}

type fixture struct {
	router   *gin.Engine
	store    *storage.PositionStore
	registry *broadcast.Registry
}

func newFixture() fixture {
	store := storage.NewPositionStore(4, nil)
	registry := broadcast.NewRegistry(8, 0)

	handler := &Handler{
		SubmitPosition: &domain.SubmitPosition{
			ResolveIdentity: &domain.ResolveIdentity{
				Assignment: source.NewStaticAssignment(map[string]string{"+79990001122": "BUS1"}),
			},
			Store:      store,
			Publishers: []domain.Publisher{broadcast.NewHub(registry)},
		},
		GetPosition:   &domain.GetPosition{Store: store},
		ListPositions: &domain.ListPositions{Store: store},
		ReportStats:   &domain.ReportStats{Positions: store, Sessions: registry},
	}

	return fixture{router: NewController(handler, nil).Router(), store: store, registry: registry}
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandler_UpdateLocation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name   string
		body   string
		status int
		result string
		code   string
	}{
		{
			name:   "accepted",
			body:   `{"mobileNo":"+79990001122","latitude":10,"longitude":20,"observed_at":"2024-05-01T08:00:00Z"}`,
			status: http.StatusOK,
			result: "accepted",
		},
		{
			name:   "stale",
			body:   `{"mobileNo":"+79990001122","latitude":11,"longitude":21,"observed_at":"2024-05-01T07:00:00Z"}`,
			status: http.StatusOK,
			result: "stale",
		},
		{
			name:   "unknown device",
			body:   `{"mobileNo":"+70000000000","latitude":10,"longitude":20}`,
			status: http.StatusNotFound,
			code:   "unknown_device",
		},
		{
			name:   "invalid coordinates",
			body:   `{"mobileNo":"+79990001122","latitude":200,"longitude":20,"observed_at":"2024-05-01T09:00:00Z"}`,
			status: http.StatusBadRequest,
			code:   "invalid_coordinates",
		},
		{
			name:   "missing latitude",
			body:   `{"mobileNo":"+79990001122","longitude":20}`,
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		{
			name:   "malformed body",
			body:   `{`,
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/location/update-location", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			if tt.result != "" {
				var got response.UpdateLocation
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, tt.result, got.Status)
				assert.Equal(t, "BUS1", got.BusID)
				return
			}

			var got response.Failure
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, "failure", got.Status)
			assert.Equal(t, tt.code, got.Code)
		})
	}

	rec, ok := f.store.Get("BUS1")
	require.True(t, ok)
	assert.Equal(t, 10.0, rec.Latitude)
}

func TestHandler_GetLocation(t *testing.T) {
	f := newFixture()
	_, err := f.store.Upsert(context.Background(), "BUS1", types.Position2D{Latitude: 10, Longitude: 20}, time.Unix(100, 0).UTC())
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/api/location/get-location?bus_id=BUS1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got response.GetLocation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "success", got.Status)
	assert.Equal(t, "BUS1", got.Location.BusID)
	assert.Equal(t, 20.0, got.Location.Longitude)

	w = f.do(http.MethodGet, "/api/location/get-location?bus_id=BUS404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")

	w = f.do(http.MethodGet, "/api/location/get-location", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetAllLocations(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/location/all", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, id := range []types.VehicleID{"BUS1", "BUS2"} {
		_, err := f.store.Upsert(context.Background(), id, types.Position2D{Latitude: 1, Longitude: 2}, time.Unix(100, 0).UTC())
		require.NoError(t, err)
	}

	w = f.do(http.MethodGet, "/api/location/all", "")
	var got []response.Location
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestHandler_GetGTFSRealtime(t *testing.T) {
	originalNow := now
	defer func() { now = originalNow }()
	now = func() time.Time { return time.Unix(1000, 0) }

	f := newFixture()
	_, err := f.store.Upsert(context.Background(), "BUS2", types.Position2D{Latitude: 10, Longitude: 20}, time.Unix(200, 0).UTC())
	require.NoError(t, err)
	_, err = f.store.Upsert(context.Background(), "BUS1", types.Position2D{Latitude: 30, Longitude: 40}, time.Unix(100, 0).UTC())
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/api/location/gtfs-rt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-protobuf", w.Header().Get("Content-Type"))

	var feed gtfs.FeedMessage
	require.NoError(t, proto.Unmarshal(w.Body.Bytes(), &feed))
	assert.Equal(t, uint64(1000), feed.GetHeader().GetTimestamp())
	require.Len(t, feed.GetEntity(), 2)

	first := feed.GetEntity()[0].GetVehicle()
	assert.Equal(t, "BUS1", first.GetVehicle().GetId())
	assert.Equal(t, float32(30), first.GetPosition().GetLatitude())
	assert.Equal(t, uint64(100), first.GetTimestamp())
}

func TestHandler_Health(t *testing.T) {
	f := newFixture()
	_, err := f.registry.Connect()
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","stats":{"vehicles":0,"sessions":1}}`, w.Body.String())
}
