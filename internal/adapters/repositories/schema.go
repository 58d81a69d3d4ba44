package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"transit-map-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Create the routes, stops, waypoints and vehicles tables. The statements are
// valid for both Postgres and SQLite.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		identification TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		stop_order INTEGER
	);
	`

	createWaypointsQuery := `
	CREATE TABLE IF NOT EXISTS waypoints (
		id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		waypoint_order INTEGER NOT NULL
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		route_id TEXT,
		label TEXT NOT NULL DEFAULT '',
		plate TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		updated_at BIGINT
	);
	`

	statements := []string{
		createRoutesQuery,
		createStopsQuery,
		createWaypointsQuery,
		createVehiclesQuery,
		`CREATE INDEX IF NOT EXISTS idx_stops_route_id ON stops(route_id);`,
		`CREATE INDEX IF NOT EXISTS idx_waypoints_route_id ON waypoints(route_id);`,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type StopSeed struct {
	ID    string  `yaml:"id" validate:"required"`
	Name  string  `yaml:"name"`
	Lat   float64 `yaml:"lat" validate:"latitude"`
	Lng   float64 `yaml:"lng" validate:"longitude"`
	Order *int    `yaml:"order"`
}

type WaypointSeed struct {
	Lat float64 `yaml:"lat" validate:"latitude"`
	Lng float64 `yaml:"lng" validate:"longitude"`
}

type RouteSeed struct {
	ID             string         `yaml:"id" validate:"required"`
	Name           string         `yaml:"name" validate:"required"`
	Color          string         `yaml:"color" validate:"omitempty,hexcolor"`
	Identification string         `yaml:"identification"`
	Active         *bool          `yaml:"active"`
	Stops          []StopSeed     `yaml:"stops" validate:"dive"`
	Waypoints      []WaypointSeed `yaml:"waypoints" validate:"dive"`
}

type VehicleSeed struct {
	ID       string         `yaml:"id" validate:"required"`
	RouteID  string         `yaml:"route_id"`
	Label    string         `yaml:"label"`
	Plate    string         `yaml:"plate"`
	Status   string         `yaml:"status" validate:"omitempty,oneof=active inactive maintenance"`
	Position *domain.LatLng `yaml:"position"`
}

// Seed is the document read by SeedFromYAML. Waypoints take their order from
// their position in the list.
type Seed struct {
	Routes   []RouteSeed   `yaml:"routes" validate:"dive"`
	Vehicles []VehicleSeed `yaml:"vehicles" validate:"dive"`
}

// Populate the database with routes, their children and vehicles from a YAML
// file. Rows are upserted and each route's stops and waypoints are replaced,
// so seeding twice is harmless and stops dropped from the file disappear.
func SeedFromYAML(ctx context.Context, db *sql.DB, dialect Dialect, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed routes: read %q: %w", path, err)
	}

	var seed Seed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("seed routes: parse yaml: %w", err)
	}

	return ApplySeed(ctx, db, dialect, seed)
}

// ApplySeed validates and writes seed in a single transaction.
func ApplySeed(ctx context.Context, db *sql.DB, dialect Dialect, seed Seed) error {
	if db == nil {
		return errors.New("seed routes: DB is nil")
	}
	if err := validator.New().Struct(seed); err != nil {
		return fmt.Errorf("seed routes: invalid seed: %w", err)
	}

	routeIDs := make(map[string]bool, len(seed.Routes))
	for _, r := range seed.Routes {
		routeIDs[r.ID] = true
	}
	for i, v := range seed.Vehicles {
		if v.RouteID != "" && !routeIDs[v.RouteID] {
			return fmt.Errorf("seed routes: vehicle at index %d: unknown route %q", i+1, v.RouteID)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed routes: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsertRoute := dialect.rebind(`
	INSERT INTO routes (id, name, color, identification, active)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		color = excluded.color,
		identification = excluded.identification,
		active = excluded.active;
	`)
	upsertStop := dialect.rebind(`
	INSERT INTO stops (id, route_id, name, lat, lng, stop_order)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		route_id = excluded.route_id,
		name = excluded.name,
		lat = excluded.lat,
		lng = excluded.lng,
		stop_order = excluded.stop_order;
	`)
	deleteStops := dialect.rebind(`DELETE FROM stops WHERE route_id = ?;`)
	deleteWaypoints := dialect.rebind(`DELETE FROM waypoints WHERE route_id = ?;`)
	insertWaypoint := dialect.rebind(`
	INSERT INTO waypoints (id, route_id, lat, lng, waypoint_order)
	VALUES (?, ?, ?, ?, ?);
	`)
	upsertVehicle := dialect.rebind(`
	INSERT INTO vehicles (id, route_id, label, plate, status, lat, lng)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		route_id = excluded.route_id,
		label = excluded.label,
		plate = excluded.plate,
		status = excluded.status,
		lat = excluded.lat,
		lng = excluded.lng;
	`)

	for _, r := range seed.Routes {
		active := r.Active == nil || *r.Active
		if _, err := tx.ExecContext(ctx, upsertRoute,
			r.ID, strings.TrimSpace(r.Name), r.Color, r.Identification, active,
		); err != nil {
			return fmt.Errorf("seed routes: upsert route %q: %w", r.ID, err)
		}

		if _, err := tx.ExecContext(ctx, deleteStops, r.ID); err != nil {
			return fmt.Errorf("seed routes: clear stops of %q: %w", r.ID, err)
		}
		for _, s := range r.Stops {
			var order sql.NullInt64
			if s.Order != nil {
				order = sql.NullInt64{Int64: int64(*s.Order), Valid: true}
			}
			if _, err := tx.ExecContext(ctx, upsertStop, s.ID, r.ID, s.Name, s.Lat, s.Lng, order); err != nil {
				return fmt.Errorf("seed routes: upsert stop %q: %w", s.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, deleteWaypoints, r.ID); err != nil {
			return fmt.Errorf("seed routes: clear waypoints of %q: %w", r.ID, err)
		}
		for i, w := range r.Waypoints {
			id := fmt.Sprintf("%s-wp-%03d", r.ID, i+1)
			if _, err := tx.ExecContext(ctx, insertWaypoint, id, r.ID, w.Lat, w.Lng, i+1); err != nil {
				return fmt.Errorf("seed routes: insert waypoint %q: %w", id, err)
			}
		}
	}

	for _, v := range seed.Vehicles {
		status := v.Status
		if status == "" {
			status = string(domain.VehicleStatusActive)
		}
		var routeID sql.NullString
		if v.RouteID != "" {
			routeID = sql.NullString{String: v.RouteID, Valid: true}
		}
		var lat, lng sql.NullFloat64
		if v.Position != nil {
			lat = sql.NullFloat64{Float64: v.Position.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: v.Position.Lng, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, upsertVehicle, v.ID, routeID, v.Label, v.Plate, status, lat, lng); err != nil {
			return fmt.Errorf("seed routes: upsert vehicle %q: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed routes: commit tx: %w", err)
	}

	return nil
}
