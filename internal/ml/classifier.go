package ml

import (
	"fmt"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// Classifier is the common contract for all model families. Fit trains on a
// standardized, balanced matrix; PredictProba returns the positive-class
// probability per row. FeatureImportances returns nil for families without a
// notion of per-feature importance.
type Classifier interface {
	Fit(x [][]float64, y []int) error
	PredictProba(x [][]float64) []float64
	FeatureImportances() []float64
	Params() map[string]any
}

// New constructs a classifier of the given family. Missing params fall back
// to the family's defaults; the seed drives every source of randomness so a
// fitted model is reproducible.
func New(family domain.ModelFamily, params map[string]any, seed int64) (Classifier, error) {
	switch family {
	case domain.ModelGradientBoosting:
		return newGradientBoosting(params, seed), nil
	case domain.ModelRandomForest:
		return newRandomForest(params, seed), nil
	case domain.ModelSVM:
		return newSVM(params, seed), nil
	case domain.ModelNeuralNetwork:
		return newNeuralNetwork(params, seed), nil
	default:
		return nil, fmt.Errorf("ml: %q: %w", family, domain.ErrUnknownModel)
	}
}

// ---------------------------------------------------------------------------
// Typed param readers. Search-sampled and config-supplied maps may carry
// ints, int64s, or float64s interchangeably.
// ---------------------------------------------------------------------------

func paramInt(p map[string]any, key string, def int) int {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func paramFloat(p map[string]any, key string, def float64) float64 {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

func paramString(p map[string]any, key, def string) string {
	if v, ok := p[key]; ok {
		if s, sok := v.(string); sok {
			return s
		}
	}
	return def
}

func paramBool(p map[string]any, key string, def bool) bool {
	if v, ok := p[key]; ok {
		if b, bok := v.(bool); bok {
			return b
		}
	}
	return def
}
