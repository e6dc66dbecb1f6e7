package ml

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

func TestSpaceForCoversAllFamilies(t *testing.T) {
	for _, family := range domain.ModelFamilies() {
		space := SpaceFor(family)
		assert.Greater(t, space.Trials, 0, "family %s", family)
		assert.NotEmpty(t, space.Dists, "family %s", family)
	}
	assert.Zero(t, SpaceFor(domain.ModelFamily("unknown")).Trials)
}

func TestSearchSpaceSampleDeterministic(t *testing.T) {
	space := SpaceFor(domain.ModelGradientBoosting)

	a := space.sample(rand.New(rand.NewSource(5)))
	b := space.sample(rand.New(rand.NewSource(5)))
	assert.Equal(t, a, b)

	for _, key := range []string{"n_estimators", "learning_rate", "max_depth", "subsample"} {
		assert.Contains(t, a, key)
	}
}

func TestParamDistRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 200; i++ {
		v := Uniform(0.5, 1.5).sample(rng).(float64)
		assert.GreaterOrEqual(t, v, 0.5)
		assert.Less(t, v, 1.5)

		lu := LogUniform(1e-3, 1e2).sample(rng).(float64)
		assert.GreaterOrEqual(t, lu, 1e-3)
		assert.Less(t, lu, 1e2+1e-9)

		n := IntRange(3, 10).sample(rng).(int)
		assert.GreaterOrEqual(t, n, 3)
		assert.Less(t, n, 10)

		c := Choice("a", "b").sample(rng).(string)
		assert.Contains(t, []string{"a", "b"}, c)
	}
}

func TestStratifiedFolds(t *testing.T) {
	y := make([]int, 30)
	for i := 20; i < 30; i++ {
		y[i] = 1
	}

	folds, err := stratifiedFolds(y, 5, 42)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := make(map[int]bool)
	for _, fold := range folds {
		assert.Len(t, fold, 6)
		pos := 0
		for _, i := range fold {
			assert.False(t, seen[i], "index %d assigned twice", i)
			seen[i] = true
			pos += y[i]
		}
		// 4 negatives and 2 positives per fold preserves the 2:1 ratio.
		assert.Equal(t, 2, pos)
	}
	assert.Len(t, seen, 30)
}

func TestStratifiedFoldsTooFewSamples(t *testing.T) {
	_, err := stratifiedFolds([]int{0, 1}, 5, 1)
	assert.Error(t, err)
}

func TestRandomizedSearchSVM(t *testing.T) {
	x, y := blobs(30, 21)

	best, err := RandomizedSearch(context.Background(), domain.ModelSVM, x, y, 3, 42)
	require.NoError(t, err)

	assert.Equal(t, 20, best.Trials)
	assert.Contains(t, best.Params, "C")
	assert.Contains(t, best.Params, "gamma")
	assert.Greater(t, best.Score, 0.5, "cross-validated average precision on separable blobs")

	// Trials are pre-sampled from the seed, so the winning score does not
	// depend on goroutine scheduling.
	again, err := RandomizedSearch(context.Background(), domain.ModelSVM, x, y, 3, 42)
	require.NoError(t, err)
	assert.InDelta(t, best.Score, again.Score, 1e-12)
}

func TestRandomizedSearchUnknownFamily(t *testing.T) {
	_, err := RandomizedSearch(context.Background(), domain.ModelFamily("nope"), nil, nil, 5, 1)
	assert.True(t, errors.Is(err, domain.ErrNoTrials))
}

func TestRandomizedSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x, y := blobs(30, 2)
	_, err := RandomizedSearch(ctx, domain.ModelSVM, x, y, 3, 1)
	assert.Error(t, err)
}
