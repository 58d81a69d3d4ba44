package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"transit-map-service/internal/adapters/cache"
	"transit-map-service/internal/adapters/directions"
	"transit-map-service/internal/adapters/repositories"
	"transit-map-service/internal/api/dto"
	"transit-map-service/internal/services"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

func intPtr(v int) *int { return &v }

func testSeed() repositories.Seed {
	return repositories.Seed{
		Routes: []repositories.RouteSeed{
			{
				ID:    "R",
				Name:  "Linea R",
				Color: "#00FF00",
				Stops: []repositories.StopSeed{
					{ID: "a", Name: "A", Lat: 10.0, Lng: -63.0, Order: intPtr(1)},
					{ID: "b", Name: "B", Lat: 10.0, Lng: -63.1, Order: intPtr(2)},
					{ID: "c", Name: "C", Lat: 10.0, Lng: -63.2, Order: intPtr(3)},
				},
			},
		},
		Vehicles: []repositories.VehicleSeed{
			{ID: "bus-1", RouteID: "R", Label: "1", Plate: "AA1"},
			{ID: "bus-2", RouteID: "R", Label: "2"},
		},
	}
}

type testServer struct {
	handler  http.Handler
	repo     *repositories.SQLRouteRepository
	provider *directions.MockDirectionsProvider
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repositories.InitSchema(ctx, db))
	require.NoError(t, repositories.ApplySeed(ctx, db, repositories.DialectSQLite, testSeed()))

	repo := repositories.NewSQLRouteRepository(db, repositories.DialectSQLite)
	provider := directions.NewMockDirectionsProvider(nil, errors.New("offline"))
	pathCache, err := cache.NewMemoryPathCache(16)
	require.NoError(t, err)

	liveMap := services.NewLiveMap(
		services.NewRouteAggregator(repo),
		services.NewPathResolver(provider, pathCache, services.PathResolverOptions{FallbackTTL: time.Minute}),
		services.NewSnapper(services.SnapThresholdDegrees),
	)

	return testServer{
		handler:  NewRouter(Deps{Map: liveMap, Positions: repo, DB: db}),
		repo:     repo,
		provider: provider,
	}
}

func (s testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/routes", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListRoutes(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/routes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.ListRoutesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Routes, 1)
	assert.Equal(t, "Linea R", res.Routes[0].Name)
	require.Len(t, res.Routes[0].Stops, 3)
	assert.Equal(t, "a", res.Routes[0].Stops[0].ID)
	assert.NotNil(t, res.Routes[0].Waypoints)
}

func TestRoutePath(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/routes/R/path", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.RoutePathResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "R", res.RouteID)
	assert.Equal(t, "fallback", res.Source)
	require.Len(t, res.Points, 3)

	coords, _, err := polyline.DecodeCoords([]byte(res.Polyline))
	require.NoError(t, err)
	require.Len(t, coords, 3)
	assert.InDelta(t, -63.2, coords[2][1], 1e-5)
}

func TestRoutePathNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/routes/nope/path", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePositionThenListVehicles(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/vehicles/bus-1/position", `{"lat": 10.0001, "lng": -63.05}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/vehicles", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.ListVehiclesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Vehicles, 1, "bus-2 has never reported")

	v := res.Vehicles[0]
	assert.Equal(t, "bus-1", v.ID)
	assert.True(t, v.Snapped)
	assert.InDelta(t, 10.0, v.Lat, 1e-9)
	assert.InDelta(t, 270, v.HeadingDegrees, 1e-9)
	assert.NotNil(t, v.UpdatedAt)
}

func TestUpdatePositionValidation(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]string{
		"missing lng":   `{"lat": 10}`,
		"bad latitude":  `{"lat": 100, "lng": 1}`,
		"bad status":    `{"lat": 1, "lng": 1, "status": "flying"}`,
		"unknown field": `{"lat": 1, "lng": 1, "speed": 3}`,
		"two objects":   `{"lat": 1, "lng": 1}{}`,
		"not json":      `lat=1`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, "/vehicles/bus-1/position", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdatePositionUnknownVehicle(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPut, "/vehicles/ghost/position", `{"lat": 1, "lng": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapGeoJSON(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusNoContent,
		s.do(t, http.MethodPut, "/vehicles/bus-2/position", `{"lat": 10.5, "lng": -63.0}`).Code)

	rec := s.do(t, http.MethodGet, "/map.geojson", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)

	kinds := map[string]int{}
	for _, f := range fc.Features {
		kinds[f.Properties.MustString("kind")]++
	}
	assert.Equal(t, map[string]int{"route": 1, "stop": 3, "vehicle": 1}, kinds)

	for _, f := range fc.Features {
		if f.Properties.MustString("kind") == "vehicle" {
			assert.False(t, f.Properties.MustBool("snapped"))
			assert.Equal(t, "bus-2", f.ID)
		}
	}
}

func TestGTFSRealtimeFeed(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusNoContent,
		s.do(t, http.MethodPut, "/vehicles/bus-1/position", `{"lat": 10.0001, "lng": -63.05}`).Code)

	rec := s.do(t, http.MethodGet, "/gtfs-rt/vehicle-positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-protobuf", rec.Header().Get("Content-Type"))

	var feed gtfsrtpb.FeedMessage
	require.NoError(t, proto.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Equal(t, "2.0", feed.GetHeader().GetGtfsRealtimeVersion())
	assert.Equal(t, gtfsrtpb.FeedHeader_FULL_DATASET, feed.GetHeader().GetIncrementality())
	require.Len(t, feed.GetEntity(), 1)

	vp := feed.GetEntity()[0].GetVehicle()
	assert.Equal(t, "bus-1", vp.GetVehicle().GetId())
	assert.Equal(t, "AA1", vp.GetVehicle().GetLicensePlate())
	assert.Equal(t, "R", vp.GetTrip().GetRouteId())
	assert.InDelta(t, 270, vp.GetPosition().GetBearing(), 1e-3)
	assert.InDelta(t, 10.0, vp.GetPosition().GetLatitude(), 1e-4)
}

func TestGTFSRealtimeFeedJSON(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/gtfs-rt/vehicle-positions?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "FULL_DATASET")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/health", "")

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "transit_http_requests_total")
}
