package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/smartschoolbus/tracker/internal/ctxutil"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr reports err to sentry, tagged with the connection id and
// operation name carried by the context when present.
func CaptureErr(ctx context.Context, err error) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if connID, ok := ctxutil.ConnID(ctx); ok {
			scope.SetTag("conn_id", connID)
		}
		if op, ok := ctxutil.Op(ctx); ok {
			scope.SetTag("op", op)
		}
		sentry.CaptureException(err)
	})
}
