package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// MetricsService defines what the metrics handler requires from the service
// layer.
type MetricsService interface {
	LatestMetrics(ctx context.Context) (domain.RunResult, error)
	History(ctx context.Context, limit int) ([]domain.RunResult, error)
}

// MetricsHandler serves the latest-run and run-history endpoints.
type MetricsHandler struct {
	training MetricsService
	logger   *slog.Logger
}

// NewMetricsHandler creates a MetricsHandler with the given service and logger.
func NewMetricsHandler(training MetricsService, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{training: training, logger: logger}
}

// Latest returns the most recent training run.
// GET /api/metrics
func (h *MetricsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	result, err := h.training.LatestMetrics(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no training run recorded yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: latest metrics failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load metrics")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// historyResponse wraps the history endpoint output with a count.
type historyResponse struct {
	Runs  []domain.RunResult `json:"runs"`
	Count int                `json:"count"`
}

// History returns recent training runs, newest first.
// GET /api/metrics/history?limit=24
func (h *MetricsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 24, 100)

	runs, err := h.training.History(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: history failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if runs == nil {
		runs = []domain.RunResult{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Runs: runs, Count: len(runs)})
}
