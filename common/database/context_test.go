package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContexts(t *testing.T) {
	tests := []struct {
		name    string
		create  func(context.Context) (context.Context, context.CancelFunc)
		timeout time.Duration
	}{
		{"query", QueryContext, DefaultQueryTimeout},
		{"write", WriteContext, DefaultWriteTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			ctx, cancel := tt.create(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, start.Add(tt.timeout), deadline, time.Second)

			cancel()
			assert.ErrorIs(t, ctx.Err(), context.Canceled)
		})
	}
}

func TestContexts_KeepShorterParentDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ctx, cancelQuery := QueryContext(parent)
	defer cancelQuery()

	parentDeadline, _ := parent.Deadline()
	deadline, _ := ctx.Deadline()
	assert.Equal(t, parentDeadline, deadline)
}
