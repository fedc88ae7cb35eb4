package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartschoolbus/tracker/internal/models"
)

// Store adapts the package-level queries to the narrow interfaces the
// gateway consumes.
type Store struct {
	DB *sql.DB
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return UserByID(ctx, s.DB, id)
}

func (s *Store) BusByAPIKey(ctx context.Context, apiKey string) (*models.Bus, error) {
	return BusByAPIKey(ctx, s.DB, apiKey)
}

func (s *Store) UpdateBusLocation(ctx context.Context, busID int64, c models.Coordinates) (*models.Bus, error) {
	return UpdateBusLocation(ctx, s.DB, busID, c)
}

func (s *Store) TripByID(ctx context.Context, id int64) (*models.Trip, error) {
	return TripByID(ctx, s.DB, id)
}

func (s *Store) TripExists(ctx context.Context, id int64) (bool, error) {
	return TripExists(ctx, s.DB, id)
}

func (s *Store) TripServesGuardian(ctx context.Context, tripID, parentID int64) (bool, error) {
	return TripServesGuardian(ctx, s.DB, tripID, parentID)
}

func (s *Store) MarkTripInProgress(ctx context.Context, id int64) (bool, error) {
	return MarkTripInProgress(ctx, s.DB, id)
}

func (s *Store) StudentIDsByParent(ctx context.Context, parentID int64) ([]int64, error) {
	return StudentIDsByParent(ctx, s.DB, parentID)
}

func (s *Store) ActiveBusIDs(ctx context.Context, today time.Time) ([]int64, error) {
	return ActiveBusIDs(ctx, s.DB, today)
}
