// Package events publishes notification side events to the message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/mirror-notify/common/audit"
	"github.com/telhawk-systems/mirror-notify/common/messaging"
	"github.com/telhawk-systems/mirror-notify/common/middleware"
	"github.com/telhawk-systems/mirror-notify/internal/metrics"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// Publisher encodes side events as JSON and sends them on their subject.
type Publisher struct {
	pub    messaging.Publisher
	signer *audit.EventSigner
}

type Option func(*Publisher)

// WithSigner attaches an HMAC signature header to every event.
func WithSigner(signer *audit.EventSigner) Option {
	return func(p *Publisher) {
		p.signer = signer
	}
}

func NewPublisher(pub messaging.Publisher, opts ...Option) *Publisher {
	p := &Publisher{pub: pub}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) TimelineInserted(ctx context.Context, event models.TimelineInsertedEvent) error {
	return p.send(ctx, messaging.SubjectTimelineInserted, event.UserID, event)
}

func (p *Publisher) LocationUpdated(ctx context.Context, event models.LocationUpdatedEvent) error {
	return p.send(ctx, messaging.SubjectLocationsUpdated, event.UserID, event)
}

func (p *Publisher) send(ctx context.Context, subject, userID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.EventPublishErrors.WithLabelValues(subject).Inc()
		return fmt.Errorf("encode %s event: %w", subject, err)
	}

	eventID := uuid.New().String()
	msg := &messaging.Message{
		Subject: subject,
		Data:    data,
		Metadata: map[string]string{
			messaging.HeaderEventID:   eventID,
			messaging.HeaderUserToken: userID,
		},
		Timestamp: time.Now().UTC(),
	}
	if p.signer != nil {
		msg.Metadata[messaging.HeaderTimestamp] = msg.Timestamp.Format(time.RFC3339Nano)
		msg.Metadata[messaging.HeaderSignature] = p.signer.Sign(eventID, msg.Timestamp, subject, data)
	}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		msg.Metadata[messaging.HeaderRequestID] = reqID
	}

	if err := p.pub.PublishMsg(ctx, msg); err != nil {
		metrics.EventPublishErrors.WithLabelValues(subject).Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// NoOp drops every event. It is used when no broker is configured.
type NoOp struct{}

func (NoOp) TimelineInserted(ctx context.Context, event models.TimelineInsertedEvent) error {
	return nil
}

func (NoOp) LocationUpdated(ctx context.Context, event models.LocationUpdatedEvent) error {
	return nil
}
