package ml

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RandomForest is a bagged ensemble of gini CART trees. Trees are fit in
// parallel on a bounded worker pool; prediction averages per-tree leaf
// probabilities.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string // "sqrt", "log2", or "all"
	Bootstrap       bool
	Seed            int64

	trees       []*classTree
	importances []float64
}

func newRandomForest(p map[string]any, seed int64) *RandomForest {
	return &RandomForest{
		NEstimators:     paramInt(p, "n_estimators", 400),
		MaxDepth:        paramInt(p, "max_depth", 0),
		MinSamplesSplit: paramInt(p, "min_samples_split", 2),
		MinSamplesLeaf:  paramInt(p, "min_samples_leaf", 1),
		MaxFeatures:     paramString(p, "max_features", "sqrt"),
		Bootstrap:       paramBool(p, "bootstrap", true),
		Seed:            seed,
	}
}

// Fit grows NEstimators trees on bootstrap resamples (or the full sample when
// Bootstrap is false). Each tree derives its own rng from the forest seed so
// the ensemble is reproducible regardless of scheduling order.
func (f *RandomForest) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("ml: random forest: empty training set")
	}

	maxFeatures := resolveMaxFeatures(f.MaxFeatures, len(x[0]))
	cfg := classTreeConfig{
		maxDepth:        f.MaxDepth,
		minSamplesSplit: f.MinSamplesSplit,
		minSamplesLeaf:  f.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}

	f.trees = make([]*classTree, f.NEstimators)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	var mu sync.Mutex
	importances := make([]float64, len(x[0]))

	for t := 0; t < f.NEstimators; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(f.Seed + int64(t)*7919))

			idx := make([]int, len(x))
			if f.Bootstrap {
				for i := range idx {
					idx[i] = rng.Intn(len(x))
				}
			} else {
				for i := range idx {
					idx[i] = i
				}
			}

			tree := growClassTree(x, y, idx, cfg, rng)
			f.trees[t] = tree

			mu.Lock()
			for j, v := range tree.importances {
				importances[j] += v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := 0.0
	for _, v := range importances {
		total += v
	}
	if total > 0 {
		for j := range importances {
			importances[j] /= total
		}
	}
	f.importances = importances
	return nil
}

// PredictProba averages the leaf probabilities of all trees.
func (f *RandomForest) PredictProba(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		sum := 0.0
		for _, t := range f.trees {
			sum += t.root.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out
}

// FeatureImportances returns normalized mean impurity decreases.
func (f *RandomForest) FeatureImportances() []float64 {
	return f.importances
}

// Params reports the effective hyperparameters.
func (f *RandomForest) Params() map[string]any {
	return map[string]any{
		"n_estimators":      f.NEstimators,
		"max_depth":         f.MaxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
	}
}

func resolveMaxFeatures(mode string, nFeatures int) int {
	switch mode {
	case "sqrt":
		return int(math.Max(1, math.Round(math.Sqrt(float64(nFeatures)))))
	case "log2":
		return int(math.Max(1, math.Round(math.Log2(float64(nFeatures)))))
	default:
		return nFeatures
	}
}
