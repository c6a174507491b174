// Package service implements the subscription notification pipeline:
// validate the user, classify the notification, resolve credentials, fetch
// the referenced item, then fan it out to demos or store the location.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/telhawk-systems/mirror-notify/common/logging"
	"github.com/telhawk-systems/mirror-notify/internal/metrics"
	"github.com/telhawk-systems/mirror-notify/internal/mirror"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// CredentialResolver returns an authenticated client for userID, or nil when
// the user has no usable credential.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string) (mirror.Service, error)
}

// EventPublisher receives side events after successful writes.
type EventPublisher interface {
	TimelineInserted(ctx context.Context, event models.TimelineInsertedEvent) error
	LocationUpdated(ctx context.Context, event models.LocationUpdatedEvent) error
}

// NotificationService processes one notification per call, synchronously.
// Business rejections return the outcome with a nil error; only store and
// upstream faults return an error.
type NotificationService struct {
	users       UserStore
	credentials CredentialResolver
	dispatcher  *Dispatcher
	events      EventPublisher
	logger      *logging.Logger
	now         func() time.Time
}

func NewNotificationService(users UserStore, credentials CredentialResolver, dispatcher *Dispatcher, events EventPublisher, logger *logging.Logger) *NotificationService {
	if logger == nil {
		logger = logging.Discard()
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher(nil, logger)
	}
	return &NotificationService{
		users:       users,
		credentials: credentials,
		dispatcher:  dispatcher,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleTimeline runs the timeline pipeline and returns the outcome label.
func (s *NotificationService) HandleTimeline(ctx context.Context, n *models.Notification) (outcome string, err error) {
	log := s.logger.WithContext(ctx).With(
		logging.Collection(models.CollectionTimeline),
		logging.UserToken(n.UserToken),
		logging.ItemID(n.ItemID),
	)
	defer func() {
		metrics.NotificationsTotal.WithLabelValues(models.CollectionTimeline, outcome).Inc()
	}()

	user, outcome, err := s.validate(ctx, log, n)
	if user == nil {
		return outcome, err
	}

	if ok, reason := ClassifyTimeline(n); !ok {
		log.Info("notification ignored",
			logging.Reason(reason),
			logging.Operation(n.Operation),
			logging.Action(n.FirstActionType()))
		return metrics.OutcomeIgnored, nil
	}

	svc, outcome, err := s.resolve(ctx, log, user.ID)
	if svc == nil {
		return outcome, err
	}

	timeline := svc.Timeline()
	item, err := timeline.Get(ctx, n.ItemID)
	if err != nil {
		log.Error("failed to fetch timeline item", logging.Error(err))
		return metrics.OutcomeUpstreamError, fmt.Errorf("fetch timeline item %s: %w", n.ItemID, err)
	}
	log.Info("timeline item fetched")

	results, err := s.dispatcher.Dispatch(ctx, timeline, item)
	for _, r := range results {
		if r.Inserted == nil {
			continue
		}
		s.publish(log, func() error {
			return s.events.TimelineInserted(ctx, models.TimelineInsertedEvent{
				UserID:     user.ID,
				Demo:       r.Demo,
				SourceID:   n.ItemID,
				InsertedID: r.Inserted.ID(),
				OccurredAt: s.now().UTC(),
			})
		})
	}
	if err != nil {
		return metrics.OutcomeUpstreamError, err
	}

	return metrics.OutcomeProcessed, nil
}

// HandleLocation runs the location pipeline and returns the outcome label.
func (s *NotificationService) HandleLocation(ctx context.Context, n *models.Notification) (outcome string, err error) {
	log := s.logger.WithContext(ctx).With(
		logging.Collection(models.CollectionLocations),
		logging.UserToken(n.UserToken),
		logging.ItemID(n.ItemID),
	)
	defer func() {
		metrics.NotificationsTotal.WithLabelValues(models.CollectionLocations, outcome).Inc()
	}()

	user, outcome, err := s.validate(ctx, log, n)
	if user == nil {
		return outcome, err
	}

	if ok, reason := ClassifyLocation(n); !ok {
		log.Info("notification ignored",
			logging.Reason(reason),
			logging.Operation(n.Operation),
			slog.String("notification_collection", n.Collection))
		return metrics.OutcomeIgnored, nil
	}

	svc, outcome, err := s.resolve(ctx, log, user.ID)
	if svc == nil {
		return outcome, err
	}

	location, err := svc.Locations().Get(ctx, n.ItemID)
	if err != nil {
		log.Error("failed to fetch location", logging.Error(err))
		return metrics.OutcomeUpstreamError, fmt.Errorf("fetch location %s: %w", n.ItemID, err)
	}

	loc, applied, err := ApplyLocation(ctx, s.users, user.ID, location, s.now())
	if err != nil {
		log.Error("failed to store location", logging.Error(err))
		return metrics.OutcomeInternalError, err
	}
	if !applied {
		log.Debug("location without coordinates")
		return metrics.OutcomeMissingCoords, nil
	}

	metrics.LocationUpdates.Inc()
	log.Info("location updated")

	s.publish(log, func() error {
		return s.events.LocationUpdated(ctx, models.LocationUpdatedEvent{
			UserID:     user.ID,
			LocationID: location.ID(),
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			OccurredAt: loc.UpdatedAt,
		})
	})

	return metrics.OutcomeProcessed, nil
}

// validate returns a nil user whenever processing must stop.
func (s *NotificationService) validate(ctx context.Context, log *slog.Logger, n *models.Notification) (*models.User, string, error) {
	user, err := Validate(ctx, s.users, n.UserToken, n.VerifyToken)
	switch {
	case errors.Is(err, ErrUnknownUser):
		log.Info("wrong user", logging.Reason(err.Error()))
		return nil, metrics.OutcomeUnknownUser, nil
	case errors.Is(err, ErrTokenMismatch):
		log.Info("wrong user", logging.Reason(err.Error()))
		return nil, metrics.OutcomeTokenMismatch, nil
	case err != nil:
		log.Error("user lookup failed", logging.Error(err))
		return nil, metrics.OutcomeInternalError, err
	}
	return user, "", nil
}

// resolve returns a nil service whenever processing must stop.
func (s *NotificationService) resolve(ctx context.Context, log *slog.Logger, userID string) (mirror.Service, string, error) {
	svc, err := s.credentials.Resolve(ctx, userID)
	if err != nil {
		log.Error("credential lookup failed", logging.Error(err))
		return nil, metrics.OutcomeInternalError, err
	}
	if svc == nil {
		log.Info("no valid credentials")
		return nil, metrics.OutcomeNoCredentials, nil
	}
	return svc, "", nil
}

// publish sends a side event. Failures are logged and never fail the request.
func (s *NotificationService) publish(log *slog.Logger, send func() error) {
	if s.events == nil {
		return
	}
	if err := send(); err != nil {
		log.Warn("failed to publish event", logging.Error(err))
	}
}
