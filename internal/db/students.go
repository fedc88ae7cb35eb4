package db

import (
	"context"
	"database/sql"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
)

// StudentIDsByParent lists the active students of a parent.
func StudentIDsByParent(ctx context.Context, database *sql.DB, parentID int64) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
		SELECT id FROM students
		WHERE parent_id = $1 AND is_active = TRUE
		ORDER BY id
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
