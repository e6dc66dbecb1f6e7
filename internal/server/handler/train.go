package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/pipeline"
)

// maxUploadBytes bounds the total size of an uploaded dataset pair (256 MiB).
const maxUploadBytes = 256 << 20

// TrainService defines what the train handler requires from the service
// layer. It is declared locally so the handler package does not depend on
// the concrete service implementation.
type TrainService interface {
	Train(ctx context.Context, transactions, features io.Reader, req pipeline.Request) (*domain.RunResult, error)
}

// TrainHandler serves the training trigger endpoint.
type TrainHandler struct {
	training TrainService
	logger   *slog.Logger
}

// NewTrainHandler creates a TrainHandler with the given service and logger.
func NewTrainHandler(training TrainService, logger *slog.Logger) *TrainHandler {
	return &TrainHandler{training: training, logger: logger}
}

// Train runs the pipeline on an uploaded dataset pair. The request is a
// multipart form with file fields "transactions" and "features" and optional
// value fields "model", "no_search", and "seed".
// POST /api/train
func (h *TrainHandler) Train(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with transactions and features files")
		return
	}
	defer r.MultipartForm.RemoveAll()

	transactions, _, err := r.FormFile("transactions")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing transactions file")
		return
	}
	defer transactions.Close()

	features, _, err := r.FormFile("features")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing features file")
		return
	}
	defer features.Close()

	req := pipeline.Request{
		Model:    r.FormValue("model"),
		NoSearch: parseFormBool(r.FormValue("no_search")),
		Seed:     time.Now().UnixNano(),
	}
	if v := r.FormValue("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "seed must be an integer")
			return
		}
		req.Seed = seed
	}

	result, err := h.training.Train(r.Context(), transactions, features, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownModel):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusConflict, "a training run is already in progress")
		case errors.Is(err, domain.ErrMissingColumn), errors.Is(err, domain.ErrMissingLabel),
			errors.Is(err, domain.ErrEmptyDataset):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "handler: training failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "training run failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func parseFormBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
