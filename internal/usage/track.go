package usage

import (
	"context"

	"github.com/telhawk-systems/mirror-notify/internal/metrics"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// Processor handles verified-or-not notifications and reports an outcome.
type Processor interface {
	HandleTimeline(ctx context.Context, n *models.Notification) (string, error)
	HandleLocation(ctx context.Context, n *models.Notification) (string, error)
}

// Recorder counts a notification for a user.
type Recorder interface {
	Record(userID, collection string)
}

// Outcomes reached only after the user and verify token were accepted.
var verifiedOutcomes = map[string]bool{
	metrics.OutcomeProcessed:     true,
	metrics.OutcomeIgnored:       true,
	metrics.OutcomeNoCredentials: true,
	metrics.OutcomeUpstreamError: true,
	metrics.OutcomeMissingCoords: true,
}

type tracking struct {
	next     Processor
	recorder Recorder
}

// Track wraps next so every notification from a verified user is recorded.
func Track(next Processor, recorder Recorder) Processor {
	return &tracking{next: next, recorder: recorder}
}

func (t *tracking) HandleTimeline(ctx context.Context, n *models.Notification) (string, error) {
	outcome, err := t.next.HandleTimeline(ctx, n)
	t.record(n, models.CollectionTimeline, outcome)
	return outcome, err
}

func (t *tracking) HandleLocation(ctx context.Context, n *models.Notification) (string, error) {
	outcome, err := t.next.HandleLocation(ctx, n)
	t.record(n, models.CollectionLocations, outcome)
	return outcome, err
}

func (t *tracking) record(n *models.Notification, collection, outcome string) {
	if verifiedOutcomes[outcome] {
		t.recorder.Record(n.UserToken, collection)
	}
}
