package socket

import (
	"context"

	"github.com/smartschoolbus/tracker/internal/models"
)

// Decision separates existence from permission so callers can log "no such
// trip" apart from "exists but forbidden". Both currently end in the same
// silent denial.
type Decision struct {
	Allowed    bool
	TripExists bool
}

type TripAuthStore interface {
	TripExists(ctx context.Context, tripID int64) (bool, error)
	TripServesGuardian(ctx context.Context, tripID, parentID int64) (bool, error)
	StudentIDsByParent(ctx context.Context, parentID int64) ([]int64, error)
}

// TripAuthorizer decides, per (viewer, trip) pair, whether a trip room
// subscription is permitted.
type TripAuthorizer struct {
	store TripAuthStore
}

func NewTripAuthorizer(store TripAuthStore) *TripAuthorizer {
	return &TripAuthorizer{store: store}
}

// Allowed applies the role rules: operators may view any existing trip;
// parents only trips with a stop for one of their students; every other
// role is denied outright.
func (a *TripAuthorizer) Allowed(ctx context.Context, v Viewer, tripID int64) (Decision, error) {
	switch {
	case v.Role.IsOperator():
		exists, err := a.store.TripExists(ctx, tripID)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: exists, TripExists: exists}, nil

	case v.Role == models.Parent:
		exists, err := a.store.TripExists(ctx, tripID)
		if err != nil {
			return Decision{}, err
		}
		studentIDs, err := a.store.StudentIDsByParent(ctx, v.UserID)
		if err != nil {
			return Decision{}, err
		}
		if len(studentIDs) == 0 {
			return Decision{TripExists: exists}, nil
		}
		serves, err := a.store.TripServesGuardian(ctx, tripID, v.UserID)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Allowed: exists && serves, TripExists: exists}, nil

	default:
		return Decision{}, nil
	}
}
