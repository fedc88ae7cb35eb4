package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
)

// ActiveBusIDs returns the distinct set of buses with at least one active
// schedule that ends today or later. A bus counts as assigned while this
// set contains it.
func ActiveBusIDs(ctx context.Context, database *sql.DB, today time.Time) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	// formatted in the caller's location so the session time zone cannot
	// shift the day boundary
	rows, err := database.QueryContext(ctx, `
		SELECT DISTINCT bus_id FROM schedules
		WHERE is_active = TRUE AND end_date >= $1::date
	`, today.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
