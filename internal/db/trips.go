package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
	"github.com/smartschoolbus/tracker/internal/models"
)

// TripByID loads a trip with its ordered student stops. Returns (nil, nil)
// when no such trip exists.
func TripByID(ctx context.Context, database *sql.DB, id int64) (*models.Trip, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var t models.Trip
	err := database.QueryRowContext(ctx, `
		SELECT id, bus_id, status, trip_date
		FROM trips WHERE id = $1
	`, id).Scan(&t.ID, &t.BusID, &t.Status, &t.TripDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := database.QueryContext(ctx, `
		SELECT student_id, station_id
		FROM trip_stops WHERE trip_id = $1
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var s models.StudentStop
		if err := rows.Scan(&s.StudentID, &s.StationID); err != nil {
			return nil, err
		}
		t.StudentStops = append(t.StudentStops, s)
	}
	return &t, rows.Err()
}

func TripExists(ctx context.Context, database *sql.DB, id int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var exists bool
	err := database.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// TripServesGuardian reports whether any stop of the trip references an
// active student of the given parent. The activity filter must match
// StudentIDsByParent: a withdrawn student neither counts toward the
// guardian's student set nor grants trip access.
func TripServesGuardian(ctx context.Context, database *sql.DB, tripID, parentID int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var serves bool
	err := database.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM trip_stops ts
			JOIN students s ON s.id = ts.student_id
			WHERE ts.trip_id = $1 AND s.parent_id = $2 AND s.is_active = TRUE
		)
	`, tripID, parentID).Scan(&serves)
	return serves, err
}

// MarkTripInProgress performs the NOT_STARTED -> IN_PROGRESS transition.
// The status filter makes the update atomic under concurrent start
// attempts: exactly one caller observes true, everyone else false.
func MarkTripInProgress(ctx context.Context, database *sql.DB, id int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx, `
		UPDATE trips SET status = $2
		WHERE id = $1 AND status = $3
	`, id, models.TripInProgress, models.TripNotStarted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelStaleNotStarted cancels every trip that never started and whose day
// has passed.
func CancelStaleNotStarted(ctx context.Context, database *sql.DB, today time.Time) (int64, error) {
	return bulkTransition(ctx, database, models.TripNotStarted, models.TripCancelled, today)
}

// CompleteStaleInProgress completes every trip the driver forgot to close
// out once its day has passed.
func CompleteStaleInProgress(ctx context.Context, database *sql.DB, today time.Time) (int64, error) {
	return bulkTransition(ctx, database, models.TripInProgress, models.TripCompleted, today)
}

func bulkTransition(ctx context.Context, database *sql.DB, from, to models.TripStatus, today time.Time) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	// the day boundary is decided by the caller's location, not the
	// session time zone, so the date goes over the wire as text
	res, err := database.ExecContext(ctx, `
		UPDATE trips SET status = $2
		WHERE status = $1 AND trip_date < $3::date
	`, from, to, today.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
