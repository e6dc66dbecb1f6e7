package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// ArtifactStore defines what the artifacts handler requires from blob
// storage.
type ArtifactStore interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
}

// ArtifactsHandler serves the archived run artifacts: the uploaded dataset
// pairs under datasets/ and the stored run results under results/.
type ArtifactsHandler struct {
	blobs  ArtifactStore
	logger *slog.Logger
}

// NewArtifactsHandler creates an ArtifactsHandler with the given store and
// logger.
func NewArtifactsHandler(blobs ArtifactStore, logger *slog.Logger) *ArtifactsHandler {
	return &ArtifactsHandler{blobs: blobs, logger: logger}
}

type artifactInfo struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified,omitempty"`
}

// artifactListResponse wraps the listing output with a count.
type artifactListResponse struct {
	Artifacts []artifactInfo `json:"artifacts"`
	Count     int            `json:"count"`
}

// List returns the stored artifacts, optionally narrowed to a key prefix such
// as results/ or datasets/{run-id}/.
// GET /api/artifacts?prefix=results/
func (h *ArtifactsHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.blobs.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list artifacts failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list artifacts")
		return
	}

	out := make([]artifactInfo, 0, len(infos))
	for _, info := range infos {
		entry := artifactInfo{Path: info.Path, Size: info.Size}
		if !info.LastModified.IsZero() {
			entry.LastModified = info.LastModified.UTC().Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, artifactListResponse{Artifacts: out, Count: len(out)})
}

// Download streams one stored artifact body.
// GET /api/artifacts/{path...}
func (h *ArtifactsHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("path")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid artifact path")
		return
	}

	body, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: download artifact failed",
			slog.String("path", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load artifact")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", artifactContentType(key))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: artifact stream interrupted",
			slog.String("path", key),
			slog.String("error", err.Error()),
		)
	}
}

func artifactContentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
