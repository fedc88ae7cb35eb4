package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
	"github.com/smartschoolbus/tracker/internal/models"
)

// UserByID returns (nil, nil) when no such user exists.
func UserByID(ctx context.Context, database *sql.DB, id int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var u models.User
	err := database.QueryRowContext(ctx, `
		SELECT id, name, email, phone_number, role, is_active
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.Role, &u.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
