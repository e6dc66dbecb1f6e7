package pipeline

import (
	"sort"

	"github.com/alanyoungcy/ethsentinel/internal/dataset"
	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/ml"
)

const (
	decisionThreshold = 0.5
	maxImportances    = 50
	eventsPerStatus   = 10
	addressPrefixLen  = 12
)

// evaluate assembles the full metrics record from the held-out predictions
// and the balance bookkeeping of the run.
func evaluate(full, train, test *dataset.Dataset, balancedY []int, probs []float64, clf ml.Classifier) domain.Metrics {
	preds := make([]int, len(probs))
	for i, p := range probs {
		if p >= decisionThreshold {
			preds[i] = 1
		}
	}

	postFraud := 0
	for _, y := range balancedY {
		postFraud += y
	}
	balancedRate := 0.0
	if len(balancedY) > 0 {
		balancedRate = float64(postFraud) / float64(len(balancedY))
	}

	return domain.Metrics{
		Accuracy:  ml.Accuracy(test.Y, preds),
		Precision: ml.Precision(test.Y, preds),
		Recall:    ml.Recall(test.Y, preds),
		F1:        ml.F1(test.Y, preds),
		ROCAUC:    ml.ROCAUC(test.Y, probs),
		PRAUC:     ml.AveragePrecision(test.Y, probs),
		Report:    ml.ClassificationReport(test.Y, preds),

		TrainSamplesPreBalance:  train.Len(),
		TrainSamplesPostBalance: len(balancedY),
		TestSamples:             test.Len(),
		NumFeatures:             len(full.Features),

		OriginalFraudRate: full.FraudRate(),
		BalancedFraudRate: balancedRate,
		OriginalTotal:     full.Len(),
		OriginalFraud:     full.FraudCount(),
		PreBalanceFraud:   train.FraudCount(),
		PreBalanceLegit:   train.Len() - train.FraudCount(),
		PostBalanceFraud:  postFraud,
		PostBalanceLegit:  len(balancedY) - postFraud,

		FeatureImportances: rankImportances(full.Features, clf.FeatureImportances()),
		RecentEvents:       buildEvents(test, probs),
	}
}

// rankImportances pairs features with their importances and keeps the top
// entries, largest first. Families without importances yield nil.
func rankImportances(features []string, importances []float64) []domain.FeatureImportance {
	if len(importances) == 0 {
		return nil
	}
	n := len(features)
	if len(importances) < n {
		n = len(importances)
	}
	ranked := make([]domain.FeatureImportance, n)
	for i := 0; i < n; i++ {
		ranked[i] = domain.FeatureImportance{Feature: features[i], Importance: importances[i]}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Importance > ranked[b].Importance })
	if len(ranked) > maxImportances {
		ranked = ranked[:maxImportances]
	}
	return ranked
}

// buildEvents derives illustrative predictions from the test fold: the
// highest-scored rows as fraud events and the lowest-scored rows as
// legitimate ones. Confidence is always the probability of the reported
// status.
func buildEvents(test *dataset.Dataset, probs []float64) []domain.Event {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })

	events := make([]domain.Event, 0, 2*eventsPerStatus)
	for i := 0; i < eventsPerStatus && i < len(idx); i++ {
		row := idx[i]
		events = append(events, domain.Event{
			Address:    shortAddress(test.Addresses[row]),
			Status:     domain.EventStatusFraud,
			Confidence: probs[row],
			Time:       "just now",
		})
	}
	for i := 0; i < eventsPerStatus && len(idx)-1-i >= eventsPerStatus; i++ {
		row := idx[len(idx)-1-i]
		events = append(events, domain.Event{
			Address:    shortAddress(test.Addresses[row]),
			Status:     domain.EventStatusLegitimate,
			Confidence: 1 - probs[row],
			Time:       "just now",
		})
	}
	return events
}

func shortAddress(addr string) string {
	if len(addr) > addressPrefixLen {
		return addr[:addressPrefixLen]
	}
	return addr
}
