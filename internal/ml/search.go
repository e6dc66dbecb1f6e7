package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// ParamDist is one sampled hyperparameter dimension.
type ParamDist struct {
	sample func(*rand.Rand) any
}

// Uniform samples a float in [lo, hi).
func Uniform(lo, hi float64) ParamDist {
	return ParamDist{sample: func(r *rand.Rand) any { return lo + r.Float64()*(hi-lo) }}
}

// LogUniform samples a float whose logarithm is uniform in [log lo, log hi).
func LogUniform(lo, hi float64) ParamDist {
	logLo, logHi := math.Log(lo), math.Log(hi)
	return ParamDist{sample: func(r *rand.Rand) any {
		return math.Exp(logLo + r.Float64()*(logHi-logLo))
	}}
}

// IntRange samples an int in [lo, hi).
func IntRange(lo, hi int) ParamDist {
	return ParamDist{sample: func(r *rand.Rand) any { return lo + r.Intn(hi-lo) }}
}

// Choice samples uniformly from the listed values.
func Choice(values ...any) ParamDist {
	return ParamDist{sample: func(r *rand.Rand) any { return values[r.Intn(len(values))] }}
}

// SearchSpace holds the sampled dimensions and trial count for one family.
type SearchSpace struct {
	Dists  map[string]ParamDist
	Trials int
}

// SpaceFor returns the randomized search space for a model family.
func SpaceFor(family domain.ModelFamily) SearchSpace {
	switch family {
	case domain.ModelGradientBoosting:
		return SearchSpace{Trials: 20, Dists: map[string]ParamDist{
			"n_estimators":     IntRange(300, 900),
			"learning_rate":    Uniform(0.02, 0.14),
			"max_depth":        IntRange(3, 10),
			"subsample":        Uniform(0.6, 1.0),
			"colsample_bytree": Uniform(0.6, 1.0),
			"reg_lambda":       Uniform(0, 2),
			"reg_alpha":        Uniform(0, 1),
			"min_child_weight": IntRange(1, 10),
		}}
	case domain.ModelRandomForest:
		return SearchSpace{Trials: 25, Dists: map[string]ParamDist{
			"n_estimators":      IntRange(200, 1000),
			"max_depth":         IntRange(3, 30),
			"min_samples_split": IntRange(2, 10),
			"min_samples_leaf":  IntRange(1, 10),
			"max_features":      Choice("sqrt", "log2", "all"),
			"bootstrap":         Choice(true, false),
		}}
	case domain.ModelSVM:
		return SearchSpace{Trials: 20, Dists: map[string]ParamDist{
			"C":     LogUniform(1e-2, 1e2),
			"gamma": LogUniform(1e-4, 1),
		}}
	case domain.ModelNeuralNetwork:
		return SearchSpace{Trials: 20, Dists: map[string]ParamDist{
			"hidden_units":  Choice(32, 64, 128),
			"learning_rate": LogUniform(1e-4, 1e-2),
			"alpha":         LogUniform(1e-5, 1e-2),
			"epochs":        IntRange(100, 400),
		}}
	default:
		return SearchSpace{}
	}
}

// sample draws one param set. Keys are walked in sorted order so a given rng
// state always produces the same set.
func (s SearchSpace) sample(rng *rand.Rand) map[string]any {
	keys := make([]string, 0, len(s.Dists))
	for k := range s.Dists {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make(map[string]any, len(keys))
	for _, k := range keys {
		params[k] = s.Dists[k].sample(rng)
	}
	return params
}

// SearchResult is the winning trial of a randomized search.
type SearchResult struct {
	Params map[string]any
	Score  float64
	Trials int
}

// RandomizedSearch draws Trials param sets from the family's space and scores
// each with stratified k-fold cross-validated average precision, returning
// the best set. Trials run in parallel on a bounded pool; all param sets are
// sampled up front from the seed so results do not depend on scheduling.
func RandomizedSearch(ctx context.Context, family domain.ModelFamily, x [][]float64, y []int, folds int, seed int64) (*SearchResult, error) {
	space := SpaceFor(family)
	if space.Trials == 0 {
		return nil, fmt.Errorf("ml: search space for %q: %w", family, domain.ErrNoTrials)
	}
	if folds < 2 {
		folds = 2
	}

	rng := rand.New(rand.NewSource(seed))
	trials := make([]map[string]any, space.Trials)
	for i := range trials {
		trials[i] = space.sample(rng)
	}
	splits, err := stratifiedFolds(y, folds, seed)
	if err != nil {
		return nil, err
	}

	best := &SearchResult{Score: math.Inf(-1), Trials: space.Trials}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, params := range trials {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := crossValidate(family, params, x, y, splits, seed+int64(i))
			if err != nil {
				return err
			}
			mu.Lock()
			if score > best.Score {
				best.Score = score
				best.Params = params
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if best.Params == nil {
		return nil, domain.ErrNoTrials
	}
	return best, nil
}

// crossValidate trains one model per fold and averages the held-out average
// precision.
func crossValidate(family domain.ModelFamily, params map[string]any, x [][]float64, y []int, splits [][]int, seed int64) (float64, error) {
	total := 0.0
	scored := 0
	for _, holdout := range splits {
		inFold := make(map[int]bool, len(holdout))
		for _, i := range holdout {
			inFold[i] = true
		}

		var trainX, testX [][]float64
		var trainY, testY []int
		for i := range x {
			if inFold[i] {
				testX = append(testX, x[i])
				testY = append(testY, y[i])
			} else {
				trainX = append(trainX, x[i])
				trainY = append(trainY, y[i])
			}
		}
		if len(trainX) == 0 || len(testX) == 0 {
			continue
		}

		clf, err := New(family, params, seed)
		if err != nil {
			return 0, err
		}
		if err := clf.Fit(trainX, trainY); err != nil {
			return 0, err
		}
		total += AveragePrecision(testY, clf.PredictProba(testX))
		scored++
	}
	if scored == 0 {
		return 0, fmt.Errorf("ml: cross-validation produced no scored folds")
	}
	return total / float64(scored), nil
}

// stratifiedFolds assigns indexes to folds class by class, preserving the
// label ratio in every fold.
func stratifiedFolds(y []int, folds int, seed int64) ([][]int, error) {
	if len(y) < folds {
		return nil, fmt.Errorf("ml: %d samples cannot fill %d folds", len(y), folds)
	}

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	out := make([][]int, folds)
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for pos, i := range idx {
			f := pos % folds
			out[f] = append(out[f], i)
		}
	}
	for f := range out {
		sort.Ints(out[f])
	}
	return out, nil
}
