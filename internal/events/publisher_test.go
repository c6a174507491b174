package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/mirror-notify/common/audit"
	"github.com/telhawk-systems/mirror-notify/common/messaging"
	"github.com/telhawk-systems/mirror-notify/common/middleware"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

type recordingPublisher struct {
	msgs []*messaging.Message
	err  error
}

func (r *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return r.PublishMsg(ctx, &messaging.Message{Subject: subject, Data: data})
}

func (r *recordingPublisher) PublishMsg(ctx context.Context, msg *messaging.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestPublisher_TimelineInserted(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewPublisher(rec)
	ctx := middleware.WithRequestID(context.Background(), "req-1")

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := p.TimelineInserted(ctx, models.TimelineInsertedEvent{
		UserID: "u1", Demo: "echo", SourceID: "i1", InsertedID: "i2", OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, rec.msgs, 1)

	msg := rec.msgs[0]
	assert.Equal(t, messaging.SubjectTimelineInserted, msg.Subject)
	assert.Equal(t, "u1", msg.Metadata[messaging.HeaderUserToken])
	assert.Equal(t, "req-1", msg.Metadata[messaging.HeaderRequestID])
	assert.NotEmpty(t, msg.Metadata[messaging.HeaderEventID])
	assert.NotContains(t, msg.Metadata, messaging.HeaderSignature)

	var decoded models.TimelineInsertedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "echo", decoded.Demo)
	assert.Equal(t, "i2", decoded.InsertedID)
}

func TestPublisher_LocationUpdated(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewPublisher(rec)

	require.NoError(t, p.LocationUpdated(context.Background(), models.LocationUpdatedEvent{
		UserID: "u1", LocationID: "latest", Latitude: 37.0, Longitude: -122.0,
	}))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, messaging.SubjectLocationsUpdated, rec.msgs[0].Subject)
	_, hasRequestID := rec.msgs[0].Metadata[messaging.HeaderRequestID]
	assert.False(t, hasRequestID)
}

func TestPublisher_SignsEvents(t *testing.T) {
	rec := &recordingPublisher{}
	signer := audit.NewEventSigner("shared-secret")
	p := NewPublisher(rec, WithSigner(signer))

	require.NoError(t, p.LocationUpdated(context.Background(), models.LocationUpdatedEvent{UserID: "u1"}))
	require.Len(t, rec.msgs, 1)

	msg := rec.msgs[0]
	at, err := time.Parse(time.RFC3339Nano, msg.Metadata[messaging.HeaderTimestamp])
	require.NoError(t, err)
	assert.True(t, signer.Verify(msg.Metadata[messaging.HeaderEventID], at, msg.Subject, msg.Data,
		msg.Metadata[messaging.HeaderSignature]))
}

func TestPublisher_Error(t *testing.T) {
	p := NewPublisher(&recordingPublisher{err: errors.New("nats: connection closed")})

	err := p.LocationUpdated(context.Background(), models.LocationUpdatedEvent{UserID: "u1"})
	assert.ErrorContains(t, err, messaging.SubjectLocationsUpdated)
}

func TestNoOp(t *testing.T) {
	var n NoOp
	assert.NoError(t, n.TimelineInserted(context.Background(), models.TimelineInsertedEvent{}))
	assert.NoError(t, n.LocationUpdated(context.Background(), models.LocationUpdatedEvent{}))
}
