package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// ModelsService defines what the models handler requires from the service
// layer.
type ModelsService interface {
	ModelMetrics(ctx context.Context) (map[string]domain.ModelSummary, error)
}

// ModelsHandler serves per-family metric summaries.
type ModelsHandler struct {
	training ModelsService
	logger   *slog.Logger
}

// NewModelsHandler creates a ModelsHandler with the given service and logger.
func NewModelsHandler(training ModelsService, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{training: training, logger: logger}
}

// Metrics returns the latest summary for every model family that has been
// trained at least once.
// GET /api/models/metrics
func (h *ModelsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.training.ModelMetrics(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: model metrics failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load model metrics")
		return
	}
	if summaries == nil {
		summaries = map[string]domain.ModelSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}
