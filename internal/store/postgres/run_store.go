package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL. Metrics and best
// params are stored as JSONB columns; the scalar scores are duplicated into
// real columns so history queries do not need to unpack documents.
type RunStore struct {
	pool *pgxpool.Pool
}

var _ domain.RunStore = (*RunStore)(nil)

// NewRunStore creates a RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Insert appends a training run.
func (s *RunStore) Insert(ctx context.Context, r domain.RunResult) error {
	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("postgres: marshal metrics for run %s: %w", r.ID, err)
	}
	params, err := json.Marshal(r.BestParams)
	if err != nil {
		return fmt.Errorf("postgres: marshal params for run %s: %w", r.ID, err)
	}

	const query = `
		INSERT INTO training_runs (
			id, model, accuracy, precision_score, recall, f1, roc_auc, pr_auc,
			metrics, best_params, seed, search_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.pool.Exec(ctx, query,
		r.ID, string(r.Model),
		r.Metrics.Accuracy, r.Metrics.Precision, r.Metrics.Recall,
		r.Metrics.F1, r.Metrics.ROCAUC, r.Metrics.PRAUC,
		metrics, params, r.Seed, r.SearchUsed, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", r.ID, err)
	}
	return nil
}

const runSelectCols = `id, model, metrics, best_params, seed, search_used, created_at`

func scanRunFromRow(scanner interface{ Scan(dest ...any) error }) (domain.RunResult, error) {
	var r domain.RunResult
	var model string
	var metrics, params []byte

	err := scanner.Scan(&r.ID, &model, &metrics, &params, &r.Seed, &r.SearchUsed, &r.CreatedAt)
	if err != nil {
		return domain.RunResult{}, err
	}

	r.Model = domain.ModelFamily(model)
	if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
		return domain.RunResult{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &r.BestParams); err != nil {
			return domain.RunResult{}, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	return r, nil
}

// Latest returns the most recent run.
func (s *RunStore) Latest(ctx context.Context) (domain.RunResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runSelectCols+` FROM training_runs ORDER BY created_at DESC LIMIT 1`)

	r, err := scanRunFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RunResult{}, domain.ErrNotFound
		}
		return domain.RunResult{}, fmt.Errorf("postgres: latest run: %w", err)
	}
	return r, nil
}

// LatestByModel returns the most recent run for one model family.
func (s *RunStore) LatestByModel(ctx context.Context, family domain.ModelFamily) (domain.RunResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runSelectCols+` FROM training_runs
		 WHERE model = $1 ORDER BY created_at DESC LIMIT 1`, string(family))

	r, err := scanRunFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RunResult{}, domain.ErrNotFound
		}
		return domain.RunResult{}, fmt.Errorf("postgres: latest run for %s: %w", family, err)
	}
	return r, nil
}

// ListRecent returns up to limit runs, newest first.
func (s *RunStore) ListRecent(ctx context.Context, limit int) ([]domain.RunResult, error) {
	if limit <= 0 {
		limit = 24
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+runSelectCols+` FROM training_runs
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunResult
	for rows.Next() {
		r, err := scanRunFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
