package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
	"github.com/smartschoolbus/tracker/internal/models"
)

// BusByAPIKey returns (nil, nil) when the key matches no bus.
func BusByAPIKey(ctx context.Context, database *sql.DB, apiKey string) (*models.Bus, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	row := database.QueryRowContext(ctx, `
		SELECT id, license_plate, api_key, is_assigned, latitude, longitude, location_at
		FROM buses WHERE api_key = $1
	`, apiKey)
	bus, err := scanBus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return bus, err
}

// UpdateBusLocation stores the latest coordinates for a bus and returns the
// updated snapshot.
func UpdateBusLocation(ctx context.Context, database *sql.DB, busID int64, c models.Coordinates) (*models.Bus, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	row := database.QueryRowContext(ctx, `
		UPDATE buses
		SET latitude = $2, longitude = $3, location_at = now()
		WHERE id = $1
		RETURNING id, license_plate, api_key, is_assigned, latitude, longitude, location_at
	`, busID, c.Latitude, c.Longitude)
	return scanBus(row)
}

func scanBus(row *sql.Row) (*models.Bus, error) {
	var (
		b          models.Bus
		lat, lng   sql.NullFloat64
		locationAt sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.LicensePlate, &b.APIKey, &b.IsAssigned, &lat, &lng, &locationAt); err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		b.CurrentLocation = &models.Coordinates{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if locationAt.Valid {
		t := locationAt.Time
		b.LocationAt = &t
	}
	return &b, nil
}

// SetAssigned flags every bus in ids as assigned. The is_assigned filter
// keeps the affected-row count equal to the number of buses actually
// changed, so repeated reconciliation runs report zero.
func SetAssigned(ctx context.Context, database *sql.DB, ids []int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if ids == nil {
		// nil would encode as SQL NULL and poison the ANY comparison
		ids = []int64{}
	}

	res, err := database.ExecContext(ctx, `
		UPDATE buses SET is_assigned = TRUE
		WHERE id = ANY($1) AND is_assigned = FALSE
	`, ids)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAssignedExcept clears the assignment flag on every bus outside ids.
// An empty ids set unassigns the whole fleet.
func ClearAssignedExcept(ctx context.Context, database *sql.DB, ids []int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if ids == nil {
		ids = []int64{}
	}

	res, err := database.ExecContext(ctx, `
		UPDATE buses SET is_assigned = FALSE
		WHERE NOT (id = ANY($1)) AND is_assigned = TRUE
	`, ids)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
