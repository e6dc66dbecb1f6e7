package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/pipeline"
	"github.com/alanyoungcy/ethsentinel/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixtureTables builds a pair of small, separable CSV tables.
func fixtureTables(n int) (transactions, features string) {
	var tx, feats strings.Builder
	feats.WriteString("address,FLAG,balance,total_sent_value,total_received_value," +
		"avg_sent_value,avg_received_value,txn_out_cnt,txn_in_cnt\n")
	tx.WriteString("hash,from_address,to_address,value\n")

	addr := func(i int) string { return fmt.Sprintf("0x%040x", i+1) }
	for i := 0; i < n; i++ {
		flag, sent, out := 0, 1.0+0.01*float64(i), 2
		if i%8 < 3 {
			flag, sent, out = 1, 5.0+0.01*float64(i), 8
		}
		fmt.Fprintf(&feats, "%s,%d,%.4f,%.4f,%.4f,1.0,1.0,%d,3\n",
			addr(i), flag, 1+0.01*float64(i), sent, 2+0.05*float64(i), out)
		fmt.Fprintf(&tx, "0x%x,%s,%s,1.0\n", i, addr(i), addr((i+1)%n))
	}
	return tx.String(), feats.String()
}

type recordingHub struct {
	runs []domain.RunResult
}

func (h *recordingHub) BroadcastRun(result domain.RunResult) {
	h.runs = append(h.runs, result)
}

func newTestService(hub Broadcaster) (*TrainingService, *memory.RunStore, *memory.ResultCache, *memory.ActivityLog, *memory.LockManager) {
	trainer := pipeline.New(pipeline.Config{TestFraction: 0.25}, testLogger())
	runs := memory.NewRunStore(10)
	cache := memory.NewResultCache()
	activity := memory.NewActivityLog(50)
	locks := memory.NewLockManager()
	svc := NewTrainingService(trainer, runs, cache, activity, locks, nil, hub, testLogger())
	return svc, runs, cache, activity, locks
}

func trainRequest() pipeline.Request {
	return pipeline.Request{
		Model:    "random_forest",
		NoSearch: true,
		Seed:     42,
		Params:   map[string]any{"n_estimators": 25, "max_depth": 6},
	}
}

func TestTrainStoresCachesAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	hub := &recordingHub{}
	svc, runs, cache, activity, _ := newTestService(hub)

	tx, feats := fixtureTables(64)
	result, err := svc.Train(ctx, strings.NewReader(tx), strings.NewReader(feats), trainRequest())
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)

	stored, err := runs.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.ID, stored.ID)

	cached, err := cache.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.ID, cached.ID)

	summaries, err := cache.ModelSummaries(ctx)
	require.NoError(t, err)
	assert.Contains(t, summaries, "random_forest")

	events, err := activity.Recent(ctx, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	require.Len(t, hub.runs, 1)
	assert.Equal(t, result.ID, hub.runs[0].ID)
}

func TestTrainRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, locks := newTestService(nil)

	release, err := locks.Acquire(ctx, "train", time.Minute)
	require.NoError(t, err)
	defer release()

	tx, feats := fixtureTables(64)
	_, err = svc.Train(ctx, strings.NewReader(tx), strings.NewReader(feats), trainRequest())
	assert.True(t, errors.Is(err, domain.ErrLockHeld))
}

func TestTrainReleasesLockAfterRun(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, locks := newTestService(nil)

	tx, feats := fixtureTables(64)
	_, err := svc.Train(ctx, strings.NewReader(tx), strings.NewReader(feats), trainRequest())
	require.NoError(t, err)

	release, err := locks.Acquire(ctx, "train", time.Minute)
	require.NoError(t, err)
	release()
}

func TestTrainPropagatesPipelineErrors(t *testing.T) {
	ctx := context.Background()
	svc, runs, _, _, _ := newTestService(nil)

	_, err := svc.Train(ctx, strings.NewReader("h\n"), strings.NewReader("h\n"),
		pipeline.Request{Model: "nope"})
	assert.True(t, errors.Is(err, domain.ErrUnknownModel))

	// Nothing was stored for the failed run.
	_, err = runs.Latest(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLatestMetricsFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	trainer := pipeline.New(pipeline.Config{}, testLogger())
	runs := memory.NewRunStore(10)
	cache := memory.NewResultCache()
	svc := NewTrainingService(trainer, runs, cache, nil, nil, nil, nil, testLogger())

	_, err := svc.LatestMetrics(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	want := domain.RunResult{ID: "seeded", Model: domain.ModelSVM, CreatedAt: time.Now().UTC()}
	require.NoError(t, runs.Insert(ctx, want))

	got, err := svc.LatestMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "seeded", got.ID)

	// The cache was backfilled from the store.
	cached, err := cache.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "seeded", cached.ID)
}

func TestModelMetricsFromStore(t *testing.T) {
	ctx := context.Background()
	trainer := pipeline.New(pipeline.Config{}, testLogger())
	runs := memory.NewRunStore(10)
	svc := NewTrainingService(trainer, runs, nil, nil, nil, nil, nil, testLogger())

	require.NoError(t, runs.Insert(ctx, domain.RunResult{ID: "a", Model: domain.ModelSVM}))
	require.NoError(t, runs.Insert(ctx, domain.RunResult{ID: "b", Model: domain.ModelRandomForest}))

	summaries, err := svc.ModelMetrics(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Contains(t, summaries, "svm")
	assert.Contains(t, summaries, "random_forest")
}
