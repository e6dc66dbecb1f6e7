package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

func run(id string, model domain.ModelFamily) domain.RunResult {
	return domain.RunResult{
		ID:        id,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRunStoreOrderingAndBound(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore(3)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, run(fmt.Sprintf("r%d", i), domain.ModelSVM)))
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r4", latest.ID)

	runs, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3, "oldest entries evicted at the cap")
	assert.Equal(t, "r4", runs[0].ID)
	assert.Equal(t, "r2", runs[2].ID)

	limited, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunStoreLatestByModel(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore(10)

	require.NoError(t, s.Insert(ctx, run("a", domain.ModelSVM)))
	require.NoError(t, s.Insert(ctx, run("b", domain.ModelRandomForest)))
	require.NoError(t, s.Insert(ctx, run("c", domain.ModelSVM)))

	got, err := s.LatestByModel(ctx, domain.ModelSVM)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)

	_, err = s.LatestByModel(ctx, domain.ModelNeuralNetwork)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRunStoreEmpty(t *testing.T) {
	_, err := NewRunStore(0).Latest(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResultCache(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache()

	_, err := c.GetLatest(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	r := run("x", domain.ModelGradientBoosting)
	r.Metrics.Accuracy = 0.97
	require.NoError(t, c.SetLatest(ctx, r))
	require.NoError(t, c.SetModelSummary(ctx, r))

	got, err := c.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", got.ID)

	summaries, err := c.ModelSummaries(ctx)
	require.NoError(t, err)
	require.Contains(t, summaries, "gradient_boosting")
	assert.Equal(t, 0.97, summaries["gradient_boosting"].Accuracy)
}

func TestActivityLogBound(t *testing.T) {
	ctx := context.Background()
	l := NewActivityLog(4)

	first := []domain.Event{{Address: "0xaaa", Status: domain.EventStatusFraud}}
	second := []domain.Event{
		{Address: "0xbbb", Status: domain.EventStatusLegitimate},
		{Address: "0xccc", Status: domain.EventStatusFraud},
	}
	require.NoError(t, l.Push(ctx, first))
	require.NoError(t, l.Push(ctx, second))

	events, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	// Newest batch first, in batch order.
	assert.Equal(t, "0xbbb", events[0].Address)
	assert.Equal(t, "0xccc", events[1].Address)
	assert.Equal(t, "0xaaa", events[2].Address)

	require.NoError(t, l.Push(ctx, second))
	events, err = l.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 4, "capped at the configured maximum")
}

func TestLockManager(t *testing.T) {
	ctx := context.Background()
	m := NewLockManager()

	release, err := m.Acquire(ctx, "train", time.Minute)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, "train", time.Minute)
	assert.True(t, errors.Is(err, domain.ErrLockHeld))

	// Unrelated keys are independent.
	other, err := m.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release2, err := m.Acquire(ctx, "train", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestLockManagerExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewLockManager()

	_, err := m.Acquire(ctx, "train", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	// An expired lock can be re-acquired even if never released.
	release, err := m.Acquire(ctx, "train", time.Minute)
	require.NoError(t, err)
	release()
}
