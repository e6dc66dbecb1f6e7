package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/pipeline"
	"github.com/alanyoungcy/ethsentinel/internal/server"
	"github.com/alanyoungcy/ethsentinel/internal/server/handler"
	"github.com/alanyoungcy/ethsentinel/internal/server/ws"
	"github.com/alanyoungcy/ethsentinel/internal/service"
)

// TrainMode runs the pipeline once on the configured CSV files, stores the
// result, and exits.
func (a *App) TrainMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting train mode")

	svc := a.buildTrainingService(deps, nil)
	result, err := a.runConfiguredTraining(ctx, svc)
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "training complete",
		slog.String("run_id", result.ID),
		slog.String("model", string(result.Model)),
		slog.Float64("accuracy", result.Metrics.Accuracy),
		slog.Float64("roc_auc", result.Metrics.ROCAUC),
		slog.Float64("pr_auc", result.Metrics.PRAUC),
	)
	return nil
}

// ServerMode starts the HTTP API and WebSocket hub and blocks until the
// context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	return a.serve(ctx, deps, false)
}

// FullMode runs one training pass on the configured CSV files and then
// serves the API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	return a.serve(ctx, deps, true)
}

// serve wires the service and API, optionally running an initial training
// pass before accepting requests.
func (a *App) serve(ctx context.Context, deps *Dependencies, trainFirst bool) error {
	hub := ws.NewHub(a.logger)
	svc := a.buildTrainingService(deps, hub)

	if trainFirst {
		if _, err := a.runConfiguredTraining(ctx, svc); err != nil {
			return err
		}
	}

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Train:    handler.NewTrainHandler(svc, a.logger),
		Metrics:  handler.NewMetricsHandler(svc, a.logger),
		Activity: handler.NewActivityHandler(svc, a.logger),
		Models:   handler.NewModelsHandler(svc, a.logger),
	}
	if deps.Artifacts != nil {
		handlers.Artifacts = handler.NewArtifactsHandler(deps.Artifacts, a.logger)
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildTrainingService assembles the training service from the wired
// dependencies.
func (a *App) buildTrainingService(deps *Dependencies, hub service.Broadcaster) *service.TrainingService {
	return service.NewTrainingService(
		deps.Trainer,
		deps.RunStore,
		deps.ResultCache,
		deps.ActivityLog,
		deps.LockManager,
		deps.Archiver,
		hub,
		a.logger,
	)
}

// runConfiguredTraining opens the configured CSV files and executes one run.
func (a *App) runConfiguredTraining(ctx context.Context, svc *service.TrainingService) (*domain.RunResult, error) {
	transactions, err := os.Open(a.cfg.Dataset.TransactionsCSV)
	if err != nil {
		return nil, fmt.Errorf("app: open transactions csv: %w", err)
	}
	defer transactions.Close()

	features, err := os.Open(a.cfg.Dataset.FeaturesCSV)
	if err != nil {
		return nil, fmt.Errorf("app: open features csv: %w", err)
	}
	defer features.Close()

	return svc.Train(ctx, transactions, features, pipeline.Request{
		Model:    a.cfg.Training.DefaultModel,
		NoSearch: a.cfg.Training.NoSearch,
		Seed:     a.cfg.Training.Seed,
	})
}
