package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// ActivityService defines what the activity handler requires from the
// service layer.
type ActivityService interface {
	Activity(ctx context.Context, limit int) ([]domain.Event, error)
}

// ActivityHandler serves the prediction event feed.
type ActivityHandler struct {
	training ActivityService
	logger   *slog.Logger
}

// NewActivityHandler creates an ActivityHandler with the given service and logger.
func NewActivityHandler(training ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{training: training, logger: logger}
}

// activityResponse wraps the event list with a count.
type activityResponse struct {
	Events []domain.Event `json:"events"`
	Count  int            `json:"count"`
}

// Recent returns recent prediction events, newest first.
// GET /api/activity?limit=50
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 200)

	events, err := h.training.Activity(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: activity failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, activityResponse{Events: events, Count: len(events)})
}
