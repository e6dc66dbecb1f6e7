package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

const (
	latestRunKey    = "run:latest"
	modelSummaryKey = "run:models"
)

// ResultCache implements domain.ResultCache using Redis. The latest run is a
// JSON string value; per-family summaries live in one hash keyed by family
// name.
type ResultCache struct {
	rdb *redis.Client
}

// NewResultCache creates a ResultCache backed by the given Client.
func NewResultCache(c *Client) *ResultCache {
	return &ResultCache{rdb: c.Underlying()}
}

// SetLatest stores the run as the most recent result.
func (rc *ResultCache) SetLatest(ctx context.Context, result domain.RunResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal run %s: %w", result.ID, err)
	}
	if err := rc.rdb.Set(ctx, latestRunKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set latest run: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent result. It returns domain.ErrNotFound
// when no run has been cached yet.
func (rc *ResultCache) GetLatest(ctx context.Context) (domain.RunResult, error) {
	data, err := rc.rdb.Get(ctx, latestRunKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RunResult{}, domain.ErrNotFound
		}
		return domain.RunResult{}, fmt.Errorf("redis: get latest run: %w", err)
	}

	var result domain.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.RunResult{}, fmt.Errorf("redis: unmarshal latest run: %w", err)
	}
	return result, nil
}

// SetModelSummary stores the condensed view for the run's model family.
func (rc *ResultCache) SetModelSummary(ctx context.Context, result domain.RunResult) error {
	data, err := json.Marshal(result.Summary())
	if err != nil {
		return fmt.Errorf("redis: marshal summary for %s: %w", result.Model, err)
	}
	if err := rc.rdb.HSet(ctx, modelSummaryKey, string(result.Model), data).Err(); err != nil {
		return fmt.Errorf("redis: set summary for %s: %w", result.Model, err)
	}
	return nil
}

// ModelSummaries returns every cached per-family summary.
func (rc *ResultCache) ModelSummaries(ctx context.Context) (map[string]domain.ModelSummary, error) {
	vals, err := rc.rdb.HGetAll(ctx, modelSummaryKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get model summaries: %w", err)
	}

	out := make(map[string]domain.ModelSummary, len(vals))
	for family, data := range vals {
		var summary domain.ModelSummary
		if err := json.Unmarshal([]byte(data), &summary); err != nil {
			return nil, fmt.Errorf("redis: unmarshal summary for %s: %w", family, err)
		}
		out[family] = summary
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ResultCache = (*ResultCache)(nil)
