package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubService struct {
	trainResult *domain.RunResult
	trainErr    error
	trainReq    pipeline.Request

	latest    domain.RunResult
	latestErr error
	runs      []domain.RunResult
	events    []domain.Event
	summaries map[string]domain.ModelSummary
}

func (s *stubService) Train(_ context.Context, transactions, features io.Reader, req pipeline.Request) (*domain.RunResult, error) {
	io.Copy(io.Discard, transactions)
	io.Copy(io.Discard, features)
	s.trainReq = req
	return s.trainResult, s.trainErr
}

func (s *stubService) LatestMetrics(context.Context) (domain.RunResult, error) {
	return s.latest, s.latestErr
}

func (s *stubService) History(context.Context, int) ([]domain.RunResult, error) {
	return s.runs, nil
}

func (s *stubService) Activity(context.Context, int) ([]domain.Event, error) {
	return s.events, nil
}

func (s *stubService) ModelMetrics(context.Context) (map[string]domain.ModelSummary, error) {
	return s.summaries, nil
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(name, name+".csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/train", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestTrainHandlerSuccess(t *testing.T) {
	svc := &stubService{trainResult: &domain.RunResult{ID: "run-1", Model: domain.ModelSVM}}
	h := NewTrainHandler(svc, testLogger())

	r := multipartRequest(t,
		map[string]string{"model": "svm", "no_search": "true", "seed": "99"},
		map[string]string{"transactions": "a,b\n1,2\n", "features": "c,d\n3,4\n"},
	)
	w := httptest.NewRecorder()
	h.Train(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "svm", svc.trainReq.Model)
	assert.True(t, svc.trainReq.NoSearch)
	assert.Equal(t, int64(99), svc.trainReq.Seed)

	var result domain.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "run-1", result.ID)
}

func TestTrainHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "unknown model", err: domain.ErrUnknownModel, code: http.StatusBadRequest},
		{name: "lock held", err: domain.ErrLockHeld, code: http.StatusConflict},
		{name: "missing column", err: domain.ErrMissingColumn, code: http.StatusUnprocessableEntity},
		{name: "missing label", err: domain.ErrMissingLabel, code: http.StatusUnprocessableEntity},
		{name: "empty dataset", err: domain.ErrEmptyDataset, code: http.StatusUnprocessableEntity},
		{name: "internal", err: io.ErrUnexpectedEOF, code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTrainHandler(&stubService{trainErr: tt.err}, testLogger())
			r := multipartRequest(t, nil,
				map[string]string{"transactions": "a\n1\n", "features": "b\n2\n"})
			w := httptest.NewRecorder()
			h.Train(w, r)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestTrainHandlerMissingFile(t *testing.T) {
	h := NewTrainHandler(&stubService{}, testLogger())
	r := multipartRequest(t, nil, map[string]string{"transactions": "a\n1\n"})
	w := httptest.NewRecorder()
	h.Train(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "features")
}

func TestTrainHandlerBadSeed(t *testing.T) {
	h := NewTrainHandler(&stubService{}, testLogger())
	r := multipartRequest(t,
		map[string]string{"seed": "not-a-number"},
		map[string]string{"transactions": "a\n1\n", "features": "b\n2\n"})
	w := httptest.NewRecorder()
	h.Train(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrainHandlerNotMultipart(t *testing.T) {
	h := NewTrainHandler(&stubService{}, testLogger())
	r := httptest.NewRequest(http.MethodPost, "/api/train", bytes.NewBufferString(`{"model":"svm"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Train(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsHandlerLatest(t *testing.T) {
	svc := &stubService{latest: domain.RunResult{ID: "run-2"}}
	h := NewMetricsHandler(svc, testLogger())

	w := httptest.NewRecorder()
	h.Latest(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "run-2")
}

func TestMetricsHandlerLatestNotFound(t *testing.T) {
	svc := &stubService{latestErr: domain.ErrNotFound}
	h := NewMetricsHandler(svc, testLogger())

	w := httptest.NewRecorder()
	h.Latest(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no training run recorded yet")
}

func TestMetricsHandlerHistory(t *testing.T) {
	svc := &stubService{runs: []domain.RunResult{{ID: "a"}, {ID: "b"}}}
	h := NewMetricsHandler(svc, testLogger())

	w := httptest.NewRecorder()
	h.History(w, httptest.NewRequest(http.MethodGet, "/api/metrics/history?limit=5", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Runs  []domain.RunResult `json:"runs"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Runs, 2)
}

func TestMetricsHandlerHistoryEmpty(t *testing.T) {
	h := NewMetricsHandler(&stubService{}, testLogger())

	w := httptest.NewRecorder()
	h.History(w, httptest.NewRequest(http.MethodGet, "/api/metrics/history", nil))

	require.Equal(t, http.StatusOK, w.Code)
	// nil history serializes as an empty array, not null.
	assert.Contains(t, w.Body.String(), `"runs":[]`)
}

func TestActivityHandler(t *testing.T) {
	svc := &stubService{events: []domain.Event{
		{Address: "0xabc0000000", Status: domain.EventStatusFraud, Confidence: 0.99},
	}}
	h := NewActivityHandler(svc, testLogger())

	w := httptest.NewRecorder()
	h.Recent(w, httptest.NewRequest(http.MethodGet, "/api/activity", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Events []domain.Event `json:"events"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, domain.EventStatusFraud, resp.Events[0].Status)
}

func TestModelsHandler(t *testing.T) {
	svc := &stubService{summaries: map[string]domain.ModelSummary{
		"svm": {Accuracy: 0.9},
	}}
	h := NewModelsHandler(svc, testLogger())

	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/api/models/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]domain.ModelSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.9, resp["svm"].Accuracy)
}

func TestModelsHandlerEmpty(t *testing.T) {
	h := NewModelsHandler(&stubService{}, testLogger())

	w := httptest.NewRecorder()
	h.Metrics(w, httptest.NewRequest(http.MethodGet, "/api/models/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "{}", w.Body.String())
}

type stubArtifacts struct {
	infos   []domain.BlobInfo
	objects map[string]string
}

func (s *stubArtifacts) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for _, info := range s.infos {
		if strings.HasPrefix(info.Path, prefix) {
			out = append(out, info)
		}
	}
	return out, nil
}

func (s *stubArtifacts) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := s.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestArtifactsHandlerList(t *testing.T) {
	store := &stubArtifacts{infos: []domain.BlobInfo{
		{Path: "results/run-1.json", Size: 128},
		{Path: "datasets/run-1/features.csv", Size: 4096},
	}}
	h := NewArtifactsHandler(store, testLogger())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/artifacts", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Artifacts []struct {
			Path string `json:"path"`
			Size int64  `json:"size"`
		} `json:"artifacts"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "results/run-1.json", resp.Artifacts[0].Path)
	assert.Equal(t, int64(128), resp.Artifacts[0].Size)
}

func TestArtifactsHandlerListPrefix(t *testing.T) {
	store := &stubArtifacts{infos: []domain.BlobInfo{
		{Path: "results/run-1.json"},
		{Path: "datasets/run-1/features.csv"},
	}}
	h := NewArtifactsHandler(store, testLogger())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/artifacts?prefix=results/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.NotContains(t, w.Body.String(), "features.csv")
}

func TestArtifactsHandlerDownload(t *testing.T) {
	store := &stubArtifacts{objects: map[string]string{
		"results/run-1.json": `{"id":"run-1"}`,
	}}
	h := NewArtifactsHandler(store, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/artifacts/results/run-1.json", nil)
	r.SetPathValue("path", "results/run-1.json")
	w := httptest.NewRecorder()
	h.Download(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"id":"run-1"}`, w.Body.String())
}

func TestArtifactsHandlerDownloadNotFound(t *testing.T) {
	h := NewArtifactsHandler(&stubArtifacts{}, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/api/artifacts/results/nope.json", nil)
	r.SetPathValue("path", "results/nope.json")
	w := httptest.NewRecorder()
	h.Download(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArtifactsHandlerDownloadRejectsTraversal(t *testing.T) {
	h := NewArtifactsHandler(&stubArtifacts{}, testLogger())

	for _, key := range []string{"", "results/../secret"} {
		r := httptest.NewRequest(http.MethodGet, "/api/artifacts/x", nil)
		r.SetPathValue("path", key)
		w := httptest.NewRecorder()
		h.Download(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %q", key)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "default", query: "", want: 24},
		{name: "explicit", query: "?limit=10", want: 10},
		{name: "clamped", query: "?limit=500", want: 100},
		{name: "garbage falls back", query: "?limit=abc", want: 24},
		{name: "non-positive falls back", query: "?limit=-1", want: 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			assert.Equal(t, tt.want, parseLimit(r, 24, 100))
		})
	}
}
