package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
	"github.com/smartschoolbus/tracker/internal/observability"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.Logger
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	return &Runner{ctx: ctx, log: log}
}

// Every schedules fn on a fixed interval until the runner's context ends.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// RunNow executes fn once, synchronously.
func (r *Runner) RunNow(name string, fn Job) {
	r.run(name, fn)
}

func (r *Runner) run(name string, fn Job) {
	ctx := ctxutil.WithOp(r.ctx, name)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			observability.CaptureErr(ctx, fmt.Errorf("panic in job %s: %v", name, rec))
			jobErrors.WithLabelValues(name).Inc()
		}
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err := fn(ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		r.log.Error("job failed", zap.String("job", name), zap.Error(err))
	}
}
