package domain

import "time"

// EventStatus labels a scored test-set address.
type EventStatus string

const (
	EventStatusFraud      EventStatus = "fraud"
	EventStatusLegitimate EventStatus = "legitimate"
)

// Event is a single high-confidence prediction derived from the held-out test
// fold. Address is truncated to its first 12 characters before storage.
type Event struct {
	Address    string      `json:"address"`
	Status     EventStatus `json:"status"`
	Confidence float64     `json:"confidence"`
	Time       string      `json:"time"`
}

// FeatureImportance is one entry of a ranked importance listing.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Metrics is the full evaluation record produced at the end of a training
// run. Scalar scores are computed on the held-out test fold; the bookkeeping
// fields describe the dataset before and after minority oversampling.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
	PRAUC     float64 `json:"pr_auc"`
	Report    string  `json:"report"`

	TrainSamplesPreBalance  int `json:"train_samples_pre_balance"`
	TrainSamplesPostBalance int `json:"train_samples_post_balance"`
	TestSamples             int `json:"test_samples"`
	NumFeatures             int `json:"num_features"`

	OriginalFraudRate float64 `json:"original_fraud_rate"`
	BalancedFraudRate float64 `json:"balanced_fraud_rate"`
	OriginalTotal     int     `json:"original_total"`
	OriginalFraud     int     `json:"original_fraud"`
	PreBalanceFraud   int     `json:"pre_balance_fraud"`
	PreBalanceLegit   int     `json:"pre_balance_legit"`
	PostBalanceFraud  int     `json:"post_balance_fraud"`
	PostBalanceLegit  int     `json:"post_balance_legit"`

	FeatureImportances []FeatureImportance `json:"feature_importances"`
	RecentEvents       []Event             `json:"recent_events"`
}

// RunResult is the structured outcome of one training invocation. A result is
// created fresh per run, stored for history, and never mutated afterwards.
type RunResult struct {
	ID         string         `json:"id"`
	Model      ModelFamily    `json:"model"`
	Metrics    Metrics        `json:"metrics"`
	BestParams map[string]any `json:"best_params,omitempty"`
	Seed       int64          `json:"seed"`
	SearchUsed bool           `json:"search_used"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ModelSummary is the condensed per-family view served by the models endpoint.
type ModelSummary struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
	PRAUC     float64 `json:"pr_auc"`
	Timestamp string  `json:"timestamp"`
}

// Summary condenses a run result for the per-family metrics view.
func (r RunResult) Summary() ModelSummary {
	return ModelSummary{
		Accuracy:  r.Metrics.Accuracy,
		Precision: r.Metrics.Precision,
		Recall:    r.Metrics.Recall,
		F1:        r.Metrics.F1,
		ROCAUC:    r.Metrics.ROCAUC,
		PRAUC:     r.Metrics.PRAUC,
		Timestamp: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
