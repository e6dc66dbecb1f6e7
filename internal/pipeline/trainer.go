package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/ethsentinel/internal/dataset"
	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/ml"
)

// Config holds the data-preparation knobs shared by every run.
type Config struct {
	TestFraction   float64
	IQRFactor      float64
	CVFolds        int
	SMOTENeighbors int
	TargetRatio    float64
}

func (c Config) withDefaults() Config {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = dataset.DefaultTestFraction
	}
	if c.IQRFactor <= 0 {
		c.IQRFactor = dataset.DefaultIQRFactor
	}
	if c.CVFolds < 2 {
		c.CVFolds = 5
	}
	if c.SMOTENeighbors <= 0 {
		c.SMOTENeighbors = ml.DefaultSMOTENeighbors
	}
	if c.TargetRatio <= 0 {
		c.TargetRatio = 1
	}
	return c
}

// Request describes one training invocation.
type Request struct {
	Model    string
	NoSearch bool
	Seed     int64
	Params   map[string]any // explicit hyperparameters, skipped when searching
}

// Trainer runs the full train-and-evaluate pipeline: canonicalize, engineer,
// filter outliers, split, standardize, balance, optionally search, fit, score.
type Trainer struct {
	cfg    Config
	logger *slog.Logger
	loader *dataset.Loader
}

// New builds a Trainer.
func New(cfg Config, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline")
	return &Trainer{cfg: cfg.withDefaults(), logger: logger, loader: dataset.NewLoader(logger)}
}

// Run executes the pipeline end to end and returns a fresh RunResult. The
// model name is validated before any data is read so an unknown family fails
// fast.
func (t *Trainer) Run(ctx context.Context, transactions, features io.Reader, req Request) (*domain.RunResult, error) {
	family, err := domain.ParseModelFamily(req.Model)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	frame, err := t.loader.Load(transactions, features)
	if err != nil {
		return nil, err
	}
	dataset.Engineer(frame)

	ds, err := dataset.FromFrame(frame)
	if err != nil {
		return nil, err
	}
	dataset.Shuffle(ds, req.Seed)

	before := ds.Len()
	ds = dataset.FilterOutliers(ds, t.cfg.IQRFactor)
	t.logger.Info("outlier filter applied",
		"rows_before", before, "rows_after", ds.Len(), "iqr_factor", t.cfg.IQRFactor)
	if ds.Len() == 0 {
		return nil, domain.ErrEmptyDataset
	}

	train, test, err := dataset.StratifiedSplit(ds, t.cfg.TestFraction, req.Seed)
	if err != nil {
		return nil, err
	}

	scaler := &ml.StandardScaler{}
	trainX := scaler.FitTransform(train.X)
	testX := scaler.Transform(test.X)

	smote := &ml.SMOTE{K: t.cfg.SMOTENeighbors, TargetRatio: t.cfg.TargetRatio, Seed: req.Seed}
	balancedX, balancedY := smote.Resample(trainX, train.Y)
	t.logger.Info("training partition balanced",
		"pre_balance", len(trainX), "post_balance", len(balancedX))

	params := req.Params
	var searchScore float64
	searchUsed := false
	if !req.NoSearch {
		result, err := ml.RandomizedSearch(ctx, family, balancedX, balancedY, t.cfg.CVFolds, req.Seed)
		if err != nil {
			return nil, fmt.Errorf("pipeline: hyperparameter search: %w", err)
		}
		params = result.Params
		searchScore = result.Score
		searchUsed = true
		t.logger.Info("search complete",
			"model", family, "trials", result.Trials, "cv_score", result.Score)
	}

	clf, err := ml.New(family, params, req.Seed)
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(balancedX, balancedY); err != nil {
		return nil, fmt.Errorf("pipeline: fit %s: %w", family, err)
	}
	probs := clf.PredictProba(testX)

	metrics := evaluate(ds, train, test, balancedY, probs, clf)
	t.logger.Info("run complete",
		"model", family,
		"accuracy", metrics.Accuracy,
		"pr_auc", metrics.PRAUC,
		"search_used", searchUsed,
		"cv_score", searchScore,
		"elapsed", time.Since(start))

	return &domain.RunResult{
		Model:      family,
		Metrics:    metrics,
		BestParams: clf.Params(),
		Seed:       req.Seed,
		SearchUsed: searchUsed,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
