package ctxutil

import (
	"context"
	"time"
)

// private keys to avoid collisions
type key int

const (
	keyConnID key = iota
	keyOpName
)

// WithConnID tags the context with the websocket connection id for logs.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, keyConnID, connID)
}

func ConnID(ctx context.Context) (string, bool) {
	v := ctx.Value(keyConnID)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// WithOp tags the context with the operation name.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	v := ctx.Value(keyOpName)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

var DefaultDBTimeout = 5 * time.Second

// WithDBTimeout applies the standard storage timeout, shrinking to the
// parent's remaining deadline when that is shorter.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		remain := time.Until(dl)
		if remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
