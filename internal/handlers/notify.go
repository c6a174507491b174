package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/telhawk-systems/mirror-notify/common/httputil"
	"github.com/telhawk-systems/mirror-notify/common/logging"
	"github.com/telhawk-systems/mirror-notify/internal/metrics"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

const defaultMaxBodyBytes = 1 << 20

// NotificationProcessor runs the pipeline for one decoded notification.
type NotificationProcessor interface {
	HandleTimeline(ctx context.Context, n *models.Notification) (string, error)
	HandleLocation(ctx context.Context, n *models.Notification) (string, error)
}

type NotifyHandler struct {
	processor    NotificationProcessor
	maxBodyBytes int64
	logger       *logging.Logger
}

func NewNotifyHandler(processor NotificationProcessor, maxBodyBytes int64, logger *logging.Logger) *NotifyHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &NotifyHandler{
		processor:    processor,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// TimelineUpdate handles POST /timeline_update.
func (h *NotifyHandler) TimelineUpdate(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, models.CollectionTimeline, h.processor.HandleTimeline)
}

// LocationsUpdate handles POST /locations_update.
func (h *NotifyHandler) LocationsUpdate(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, models.CollectionLocations, h.processor.HandleLocation)
}

// handle acknowledges every notification that made it into the pipeline with
// 200, including rejected ones. Only decode failures and upstream or store
// faults change the status.
func (h *NotifyHandler) handle(w http.ResponseWriter, r *http.Request, collection string, process func(context.Context, *models.Notification) (string, error)) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	log := h.logger.WithContext(r.Context())

	var n models.Notification
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		metrics.NotificationsTotal.WithLabelValues(collection, metrics.OutcomeMalformed).Inc()

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("notification body too large", logging.Collection(collection), logging.Error(err))
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		log.Warn("malformed notification", logging.Collection(collection), logging.Error(err))
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	outcome, err := process(r.Context(), &n)
	if err != nil {
		log.Error("notification processing failed",
			logging.Collection(collection),
			logging.Reason(outcome),
			logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "notification processing failed")
		return
	}

	httputil.WriteStatus(w, "ok")
}
