package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/db"
	"github.com/smartschoolbus/tracker/internal/observability"
)

// ReconcileResult counts the rows touched by each reconciliation step.
type ReconcileResult struct {
	Assigned      int64 `json:"assigned"`
	Unassigned    int64 `json:"unassigned"`
	CancelledTrip int64 `json:"cancelledTrip"`
	CompletedTrip int64 `json:"completedTrip"`
}

// Reconcile recomputes bus assignment flags from active schedules and
// closes out trips whose calendar day has passed. Its only inputs are "now"
// and the store; it holds no state between runs and every update filters on
// current state, so re-running is safe and a clean second pass reports
// zeros.
func Reconcile(ctx context.Context, database *sql.DB, now time.Time) (ReconcileResult, error) {
	var res ReconcileResult

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	activeIDs, err := db.ActiveBusIDs(ctx, database, today)
	if err != nil {
		return res, fmt.Errorf("active schedule lookup: %w", err)
	}

	// Both assignment updates run regardless of each other's outcome:
	// "unassign everything" must still happen when the active set is empty
	// or the assign step failed.
	var errs []error
	if n, err := db.SetAssigned(ctx, database, activeIDs); err != nil {
		errs = append(errs, fmt.Errorf("assign buses: %w", err))
	} else {
		res.Assigned = n
	}
	if n, err := db.ClearAssignedExcept(ctx, database, activeIDs); err != nil {
		errs = append(errs, fmt.Errorf("unassign buses: %w", err))
	} else {
		res.Unassigned = n
	}

	if n, err := db.CancelStaleNotStarted(ctx, database, today); err != nil {
		errs = append(errs, fmt.Errorf("cancel stale trips: %w", err))
	} else {
		res.CancelledTrip = n
	}
	if n, err := db.CompleteStaleInProgress(ctx, database, today); err != nil {
		errs = append(errs, fmt.Errorf("complete stale trips: %w", err))
	} else {
		res.CompletedTrip = n
	}

	return res, errors.Join(errs...)
}

// ReconcileJob wraps Reconcile for the runner, evaluating "now" in the
// configured location at each invocation.
func ReconcileJob(database *sql.DB, log *zap.Logger, loc *time.Location) Job {
	return func(ctx context.Context) error {
		res, err := Reconcile(ctx, database, time.Now().In(loc))
		if err != nil {
			observability.CaptureErr(ctx, err)
			return err
		}
		log.Info("reconciliation finished",
			zap.Int64("assigned", res.Assigned),
			zap.Int64("unassigned", res.Unassigned),
			zap.Int64("cancelled_trips", res.CancelledTrip),
			zap.Int64("completed_trips", res.CompletedTrip))
		return nil
	}
}
