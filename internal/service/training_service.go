package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	s3blob "github.com/alanyoungcy/ethsentinel/internal/blob/s3"
	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/pipeline"
)

// trainLockKey serializes training runs across processes.
const trainLockKey = "train"

// trainLockTTL bounds how long a crashed run can keep the lock.
const trainLockTTL = 30 * time.Minute

// Broadcaster pushes a completed run to connected websocket clients.
type Broadcaster interface {
	BroadcastRun(result domain.RunResult)
}

// TrainingService orchestrates a training run: acquire the lock, archive the
// inputs, execute the pipeline, persist the result, refresh the caches, and
// notify subscribers. Every collaborator except the trainer is optional; a
// nil store or cache simply skips that step.
type TrainingService struct {
	trainer  *pipeline.Trainer
	runs     domain.RunStore
	cache    domain.ResultCache
	activity domain.ActivityLog
	locks    domain.LockManager
	archiver *s3blob.Archiver
	hub      Broadcaster
	logger   *slog.Logger
}

// NewTrainingService creates a TrainingService. Only trainer and logger are
// required.
func NewTrainingService(
	trainer *pipeline.Trainer,
	runs domain.RunStore,
	cache domain.ResultCache,
	activity domain.ActivityLog,
	locks domain.LockManager,
	archiver *s3blob.Archiver,
	hub Broadcaster,
	logger *slog.Logger,
) *TrainingService {
	return &TrainingService{
		trainer:  trainer,
		runs:     runs,
		cache:    cache,
		activity: activity,
		locks:    locks,
		archiver: archiver,
		hub:      hub,
		logger:   logger.With("component", "training_service"),
	}
}

// Train runs the full pipeline on the provided CSV payloads and returns the
// stored result. Concurrent calls contend on the training lock; the loser
// gets domain.ErrLockHeld immediately rather than queueing.
func (s *TrainingService) Train(ctx context.Context, transactions, features io.Reader, req pipeline.Request) (*domain.RunResult, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, trainLockKey, trainLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return nil, err
			}
			return nil, fmt.Errorf("training_service: acquire lock: %w", err)
		}
		defer unlock()
	}

	runID := uuid.New().String()

	// The pipeline consumes the readers, so buffer the payloads when they
	// also need to be archived.
	if s.archiver != nil {
		var txBuf, featBuf bytes.Buffer
		transactions = io.TeeReader(transactions, &txBuf)
		features = io.TeeReader(features, &featBuf)
		defer func() {
			archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
			defer cancel()
			if err := s.archiver.ArchiveInputs(archiveCtx, runID, &txBuf, &featBuf); err != nil {
				s.logger.WarnContext(ctx, "input archive failed",
					slog.String("run_id", runID),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	result, err := s.trainer.Run(ctx, transactions, features, req)
	if err != nil {
		return nil, err
	}
	result.ID = runID

	if s.runs != nil {
		if err := s.runs.Insert(ctx, *result); err != nil {
			return nil, fmt.Errorf("training_service: store run %s: %w", runID, err)
		}
	}

	// Cache, activity, archive, and broadcast updates are best effort: the
	// run already succeeded and is persisted.
	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, *result); err != nil {
			s.logger.WarnContext(ctx, "cache latest failed", slog.String("error", err.Error()))
		}
		if err := s.cache.SetModelSummary(ctx, *result); err != nil {
			s.logger.WarnContext(ctx, "cache summary failed", slog.String("error", err.Error()))
		}
	}
	if s.activity != nil && len(result.Metrics.RecentEvents) > 0 {
		if err := s.activity.Push(ctx, result.Metrics.RecentEvents); err != nil {
			s.logger.WarnContext(ctx, "activity push failed", slog.String("error", err.Error()))
		}
	}
	if s.archiver != nil {
		if err := s.archiver.ArchiveResult(ctx, *result); err != nil {
			s.logger.WarnContext(ctx, "result archive failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.hub != nil {
		s.hub.BroadcastRun(*result)
	}

	s.logger.InfoContext(ctx, "training run stored",
		slog.String("run_id", runID),
		slog.String("model", string(result.Model)),
		slog.Float64("pr_auc", result.Metrics.PRAUC),
	)
	return result, nil
}

// LatestMetrics returns the most recent run, preferring the cache and
// falling back to the persistent store.
func (s *TrainingService) LatestMetrics(ctx context.Context) (domain.RunResult, error) {
	if s.cache != nil {
		if result, err := s.cache.GetLatest(ctx); err == nil {
			return result, nil
		}
	}
	if s.runs == nil {
		return domain.RunResult{}, domain.ErrNotFound
	}

	result, err := s.runs.Latest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RunResult{}, err
		}
		return domain.RunResult{}, fmt.Errorf("training_service: latest run: %w", err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetLatest(ctx, result); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache backfill failed", slog.String("error", cacheErr.Error()))
		}
	}
	return result, nil
}

// History returns up to limit recent runs, newest first.
func (s *TrainingService) History(ctx context.Context, limit int) ([]domain.RunResult, error) {
	if s.runs == nil {
		return nil, nil
	}
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("training_service: history: %w", err)
	}
	return runs, nil
}

// Activity returns up to limit recent prediction events, newest first.
func (s *TrainingService) Activity(ctx context.Context, limit int) ([]domain.Event, error) {
	if s.activity == nil {
		return nil, nil
	}
	events, err := s.activity.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("training_service: activity: %w", err)
	}
	return events, nil
}

// ModelMetrics returns the latest summary per model family. The cache is
// authoritative when present; otherwise each family is looked up in the run
// store.
func (s *TrainingService) ModelMetrics(ctx context.Context) (map[string]domain.ModelSummary, error) {
	if s.cache != nil {
		summaries, err := s.cache.ModelSummaries(ctx)
		if err == nil && len(summaries) > 0 {
			return summaries, nil
		}
	}
	if s.runs == nil {
		return map[string]domain.ModelSummary{}, nil
	}

	summaries := make(map[string]domain.ModelSummary)
	for _, family := range domain.ModelFamilies() {
		result, err := s.runs.LatestByModel(ctx, family)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("training_service: summary for %s: %w", family, err)
		}
		summaries[string(family)] = result.Summary()
	}
	return summaries, nil
}
