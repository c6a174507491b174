package messaging

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by a readiness probe while the broker link is down.
var ErrNotConnected = errors.New("not connected to message broker")

// Connection reports broker connectivity.
type Connection interface {
	IsConnected() bool
}

// ReadinessCheck returns a probe that fails while conn is disconnected.
func ReadinessCheck(conn Connection) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if conn == nil || !conn.IsConnected() {
			return ErrNotConnected
		}
		return ctx.Err()
	}
}
