// Package database holds the timeout budgets shared by the SQL repositories.
package database

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds read queries on the notification hot path.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds inserts, upserts and updates.
	DefaultWriteTimeout = 10 * time.Second
)

// QueryContext creates a context with DefaultQueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext creates a context with DefaultWriteTimeout.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}
