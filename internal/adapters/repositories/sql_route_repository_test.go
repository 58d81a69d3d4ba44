package repositories

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, InitSchema(context.Background(), db))
	return db
}

func intPtr(v int) *int { return &v }

func testSeed() Seed {
	inactive := false
	return Seed{
		Routes: []RouteSeed{
			{
				ID:    "r1",
				Name:  "Centro",
				Color: "#FF0000",
				Stops: []StopSeed{
					{ID: "s2", Name: "Second", Lat: 10.1, Lng: -66.1, Order: intPtr(2)},
					{ID: "s1", Name: "First", Lat: 10.0, Lng: -66.0, Order: intPtr(1)},
					{ID: "s3", Name: "Unordered", Lat: 10.2, Lng: -66.2},
				},
			},
			{
				ID:     "r2",
				Name:   "Costa",
				Active: &inactive,
				Waypoints: []WaypointSeed{
					{Lat: 11.0, Lng: -67.0},
					{Lat: 11.1, Lng: -67.1},
				},
			},
		},
		Vehicles: []VehicleSeed{
			{ID: "v1", RouteID: "r1", Label: "101", Plate: "AB1", Position: &domain.LatLng{Lat: 10.05, Lng: -66.05}},
			{ID: "v2", Status: "maintenance"},
		},
	}
}

func TestRebind(t *testing.T) {
	q := `UPDATE t SET a = ?, b = ? WHERE id = ?`
	assert.Equal(t, `UPDATE t SET a = $1, b = $2 WHERE id = $3`, DialectPostgres.rebind(q))
	assert.Equal(t, q, DialectSQLite.rebind(q))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, InitSchema(context.Background(), db))
}

func TestSeedAndList(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, ApplySeed(ctx, db, DialectSQLite, testSeed()))

	repo := NewSQLRouteRepository(db, DialectSQLite)

	routes, err := repo.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "Centro", routes[0].Name)
	assert.Equal(t, "#FF0000", routes[0].Color)
	assert.True(t, routes[0].Active)
	assert.False(t, routes[1].Active)
	assert.Empty(t, routes[0].Stops, "children are joined by the aggregator")

	stops, err := repo.ListStops(ctx)
	require.NoError(t, err)
	require.Len(t, stops, 3)
	byID := map[string]domain.Stop{}
	for _, s := range stops {
		byID[s.ID] = s
	}
	require.NotNil(t, byID["s1"].Order)
	assert.Equal(t, 1, *byID["s1"].Order)
	assert.Nil(t, byID["s3"].Order)
	assert.Equal(t, domain.LatLng{Lat: 10.1, Lng: -66.1}, byID["s2"].Position)
	assert.Equal(t, "r1", byID["s2"].RouteID)

	waypoints, err := repo.ListWaypoints(ctx)
	require.NoError(t, err)
	require.Len(t, waypoints, 2)
	assert.Equal(t, "r2", waypoints[0].RouteID)
	assert.Equal(t, 1, waypoints[0].Order)
	assert.Equal(t, domain.LatLng{Lat: 11.1, Lng: -67.1}, waypoints[1].Position)

	vehicles, err := repo.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, "r1", vehicles[0].RouteID)
	require.NotNil(t, vehicles[0].Position)
	assert.Equal(t, domain.LatLng{Lat: 10.05, Lng: -66.05}, *vehicles[0].Position)
	assert.Equal(t, domain.VehicleStatusActive, vehicles[0].Status)
	assert.True(t, vehicles[0].UpdatedAt.IsZero())

	assert.Empty(t, vehicles[1].RouteID)
	assert.Nil(t, vehicles[1].Position)
	assert.Equal(t, domain.VehicleStatusMaintenance, vehicles[1].Status)
}

func TestSeedTwiceReplacesWaypoints(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, ApplySeed(ctx, db, DialectSQLite, testSeed()))

	seed := testSeed()
	seed.Routes[1].Waypoints = seed.Routes[1].Waypoints[:1]
	require.NoError(t, ApplySeed(ctx, db, DialectSQLite, seed))

	waypoints, err := NewSQLRouteRepository(db, DialectSQLite).ListWaypoints(ctx)
	require.NoError(t, err)
	assert.Len(t, waypoints, 1)
}

func TestSeedTwiceRemovesDroppedStops(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, ApplySeed(ctx, db, DialectSQLite, testSeed()))

	seed := testSeed()
	seed.Routes[0].Stops = seed.Routes[0].Stops[:2]
	require.NoError(t, ApplySeed(ctx, db, DialectSQLite, seed))

	stops, err := NewSQLRouteRepository(db, DialectSQLite).ListStops(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(stops))
	for _, st := range stops {
		ids = append(ids, st.ID)
	}
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
}

func TestSeedRejectsInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	badLat := testSeed()
	badLat.Routes[0].Stops[0].Lat = 120
	assert.Error(t, ApplySeed(ctx, db, DialectSQLite, badLat))

	unknownRoute := testSeed()
	unknownRoute.Vehicles[0].RouteID = "nope"
	assert.Error(t, ApplySeed(ctx, db, DialectSQLite, unknownRoute))

	routes, err := NewSQLRouteRepository(db, DialectSQLite).ListRoutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, routes, "nothing is written when validation fails")
}

func TestSeedFromYAML(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	doc := `
routes:
  - id: r1
    name: Linea 1
    stops:
      - { id: a, lat: 10.0, lng: -63.0, order: 1 }
      - { id: b, lat: 10.0, lng: -63.1, order: 2 }
vehicles:
  - id: v1
    route_id: r1
    position: { lat: 10.0001, lng: -63.05 }
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	require.NoError(t, SeedFromYAML(ctx, db, DialectSQLite, path))

	repo := NewSQLRouteRepository(db, DialectSQLite)
	stops, err := repo.ListStops(ctx)
	require.NoError(t, err)
	assert.Len(t, stops, 2)

	vehicles, err := repo.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, domain.LatLng{Lat: 10.0001, Lng: -63.05}, *vehicles[0].Position)
}

func TestSeedFromYAMLMissingFile(t *testing.T) {
	db := openTestDB(t)
	err := SeedFromYAML(context.Background(), db, DialectSQLite, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedFileShipsValid(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, SeedFromYAML(ctx, db, DialectSQLite, filepath.Join("..", "..", "..", "data", "seeds", "routes.yaml")))

	routes, err := NewSQLRouteRepository(db, DialectSQLite).ListRoutes(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, routes)
}

func TestUpdateVehiclePosition(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, ApplySeed(ctx, db, DialectSQLite, testSeed()))
	repo := NewSQLRouteRepository(db, DialectSQLite)

	pos := domain.LatLng{Lat: 10.07, Lng: -66.07}
	require.NoError(t, repo.UpdateVehiclePosition(ctx, "v2", pos, ""))

	vehicles, err := repo.ListVehicles(ctx)
	require.NoError(t, err)
	v2 := vehicles[1]
	require.NotNil(t, v2.Position)
	assert.Equal(t, pos, *v2.Position)
	assert.Equal(t, domain.VehicleStatusMaintenance, v2.Status, "empty status keeps the stored one")
	assert.False(t, v2.UpdatedAt.IsZero())

	require.NoError(t, repo.UpdateVehiclePosition(ctx, "v2", pos, domain.VehicleStatusActive))
	vehicles, err = repo.ListVehicles(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.VehicleStatusActive, vehicles[1].Status)
}

func TestUpdateVehiclePositionUnknownVehicle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewSQLRouteRepository(db, DialectSQLite)

	err := repo.UpdateVehiclePosition(ctx, "ghost", domain.LatLng{Lat: 1, Lng: 1}, "")
	assert.True(t, errors.Is(err, ports.ErrVehicleNotFound))
}

func TestNilDB(t *testing.T) {
	repo := NewSQLRouteRepository(nil, DialectSQLite)
	_, err := repo.ListRoutes(context.Background())
	assert.Error(t, err)
	assert.Error(t, InitSchema(context.Background(), nil))
}
