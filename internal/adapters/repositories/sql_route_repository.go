package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"transit-map-service/internal/domain"
	"transit-map-service/internal/platform/obs"
	"transit-map-service/internal/ports"
)

// SQL-backed implementation of the RouteRepository and VehiclePositionWriter
// ports. Works against Postgres (pgx) and SQLite.
type SQLRouteRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLRouteRepository(db *sql.DB, dialect Dialect) *SQLRouteRepository {
	return &SQLRouteRepository{DB: db, Dialect: dialect}
}

var (
	_ ports.RouteRepository       = (*SQLRouteRepository)(nil)
	_ ports.VehiclePositionWriter = (*SQLRouteRepository)(nil)
)

// Return all routes without their stops or waypoints.
func (s *SQLRouteRepository) ListRoutes(ctx context.Context) (_ []domain.Route, err error) {
	defer obs.Time(ctx, "repo.ListRoutes")(&err)

	if s.DB == nil {
		return nil, errors.New("sql route repository: DB is nil")
	}

	query := `
	SELECT
		id,
		name,
		color,
		identification,
		active
	FROM routes
	ORDER BY name, id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list routes: query routes table: %w", err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0, 16)
	for rows.Next() {
		var r domain.Route
		if err := rows.Scan(&r.ID, &r.Name, &r.Color, &r.Identification, &r.Active); err != nil {
			return nil, fmt.Errorf("list routes: scan row: %w", err)
		}
		routes = append(routes, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes: row iteration: %w", err)
	}

	return routes, nil
}

// Return every stop of every route.
func (s *SQLRouteRepository) ListStops(ctx context.Context) (_ []domain.Stop, err error) {
	defer obs.Time(ctx, "repo.ListStops")(&err)

	if s.DB == nil {
		return nil, errors.New("sql route repository: DB is nil")
	}

	query := `
	SELECT
		id,
		route_id,
		name,
		lat,
		lng,
		stop_order
	FROM stops
	ORDER BY route_id, id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stops: query stops table: %w", err)
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0, 64)
	for rows.Next() {
		var st domain.Stop
		var order sql.NullInt64
		if err := rows.Scan(&st.ID, &st.RouteID, &st.Name, &st.Position.Lat, &st.Position.Lng, &order); err != nil {
			return nil, fmt.Errorf("list stops: scan row: %w", err)
		}
		if order.Valid {
			o := int(order.Int64)
			st.Order = &o
		}
		stops = append(stops, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}

	return stops, nil
}

// Return every manual waypoint of every route.
func (s *SQLRouteRepository) ListWaypoints(ctx context.Context) (_ []domain.Waypoint, err error) {
	defer obs.Time(ctx, "repo.ListWaypoints")(&err)

	if s.DB == nil {
		return nil, errors.New("sql route repository: DB is nil")
	}

	query := `
	SELECT
		id,
		route_id,
		lat,
		lng,
		waypoint_order
	FROM waypoints
	ORDER BY route_id, waypoint_order;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list waypoints: query waypoints table: %w", err)
	}
	defer rows.Close()

	waypoints := make([]domain.Waypoint, 0, 64)
	for rows.Next() {
		var w domain.Waypoint
		if err := rows.Scan(&w.ID, &w.RouteID, &w.Position.Lat, &w.Position.Lng, &w.Order); err != nil {
			return nil, fmt.Errorf("list waypoints: scan row: %w", err)
		}
		waypoints = append(waypoints, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list waypoints: row iteration: %w", err)
	}

	return waypoints, nil
}

// Return all vehicles with their last reported fix.
func (s *SQLRouteRepository) ListVehicles(ctx context.Context) (_ []domain.Vehicle, err error) {
	defer obs.Time(ctx, "repo.ListVehicles")(&err)

	if s.DB == nil {
		return nil, errors.New("sql route repository: DB is nil")
	}

	query := `
	SELECT
		id,
		route_id,
		label,
		plate,
		status,
		lat,
		lng,
		updated_at
	FROM vehicles
	ORDER BY id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: query vehicles table: %w", err)
	}
	defer rows.Close()

	vehicles := make([]domain.Vehicle, 0, 32)
	for rows.Next() {
		var (
			v         domain.Vehicle
			routeID   sql.NullString
			status    string
			lat, lng  sql.NullFloat64
			updatedAt sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &routeID, &v.Label, &v.Plate, &status, &lat, &lng, &updatedAt); err != nil {
			return nil, fmt.Errorf("list vehicles: scan row: %w", err)
		}

		v.RouteID = routeID.String
		v.Status = domain.VehicleStatus(status)
		if lat.Valid && lng.Valid {
			v.Position = &domain.LatLng{Lat: lat.Float64, Lng: lng.Float64}
		}
		if updatedAt.Valid {
			v.UpdatedAt = time.UnixMilli(updatedAt.Int64).UTC()
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vehicles: row iteration: %w", err)
	}

	return vehicles, nil
}

// Record a driver-side fix. An empty status leaves the stored status as is.
func (s *SQLRouteRepository) UpdateVehiclePosition(
	ctx context.Context,
	vehicleID string,
	pos domain.LatLng,
	status domain.VehicleStatus,
) (err error) {
	defer obs.Time(ctx, "repo.UpdateVehiclePosition")(&err)

	if s.DB == nil {
		return errors.New("sql route repository: DB is nil")
	}

	query := s.Dialect.rebind(`
	UPDATE vehicles SET
		lat = ?,
		lng = ?,
		status = COALESCE(NULLIF(?, ''), status),
		updated_at = ?
	WHERE id = ?;
	`)
	res, err := s.DB.ExecContext(ctx, query, pos.Lat, pos.Lng, string(status), time.Now().UnixMilli(), vehicleID)
	if err != nil {
		return fmt.Errorf("update vehicle %q position: %w", vehicleID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vehicle %q position: rows affected: %w", vehicleID, err)
	}
	if n == 0 {
		return fmt.Errorf("update vehicle %q position: %w", vehicleID, ports.ErrVehicleNotFound)
	}

	return nil
}
