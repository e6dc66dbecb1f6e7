package domain

import (
	"fmt"
	"strings"
)

// ModelFamily identifies one of the supported classifier families.
type ModelFamily string

const (
	ModelGradientBoosting ModelFamily = "gradient_boosting"
	ModelRandomForest     ModelFamily = "random_forest"
	ModelSVM              ModelFamily = "svm"
	ModelNeuralNetwork    ModelFamily = "neural_network"
)

// DefaultModelFamily is used when a training request does not name a family.
const DefaultModelFamily = ModelGradientBoosting

// ParseModelFamily maps a user-supplied family name to a ModelFamily. An
// empty name selects the default. Unknown names return ErrUnknownModel so the
// caller can reject the request before any data is loaded.
func ParseModelFamily(name string) (ModelFamily, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultModelFamily, nil
	case "gradient_boosting", "xgboost", "boosting":
		return ModelGradientBoosting, nil
	case "random_forest", "forest":
		return ModelRandomForest, nil
	case "svm", "support_vector":
		return ModelSVM, nil
	case "neural_network", "mlp":
		return ModelNeuralNetwork, nil
	default:
		return "", fmt.Errorf("model family %q: %w", name, ErrUnknownModel)
	}
}

// ModelFamilies lists every supported family in a stable order.
func ModelFamilies() []ModelFamily {
	return []ModelFamily{
		ModelGradientBoosting,
		ModelRandomForest,
		ModelSVM,
		ModelNeuralNetwork,
	}
}
