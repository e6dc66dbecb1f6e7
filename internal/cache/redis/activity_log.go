package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

const activityKey = "activity:events"

// ActivityLog implements domain.ActivityLog as a Redis list, newest first,
// trimmed to a fixed capacity on every push.
type ActivityLog struct {
	rdb       *redis.Client
	maxEvents int64
}

// NewActivityLog creates an ActivityLog backed by the given Client.
func NewActivityLog(c *Client, maxEvents int) *ActivityLog {
	if maxEvents <= 0 {
		maxEvents = 50
	}
	return &ActivityLog{rdb: c.Underlying(), maxEvents: int64(maxEvents)}
}

// Push prepends events and trims the list to its capacity. The push and trim
// run in one pipeline so concurrent writers cannot observe an oversized list.
func (l *ActivityLog) Push(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	// LPUSH reverses argument order, so walk the slice backwards to keep
	// events[0] at the head.
	values := make([]interface{}, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		data, err := json.Marshal(events[i])
		if err != nil {
			return fmt.Errorf("redis: marshal event: %w", err)
		}
		values = append(values, data)
	}

	pipe := l.rdb.TxPipeline()
	pipe.LPush(ctx, activityKey, values...)
	pipe.LTrim(ctx, activityKey, 0, l.maxEvents-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push activity: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *ActivityLog) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 || int64(limit) > l.maxEvents {
		limit = int(l.maxEvents)
	}
	vals, err := l.rdb.LRange(ctx, activityKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read activity: %w", err)
	}

	events := make([]domain.Event, 0, len(vals))
	for _, v := range vals {
		var ev domain.Event
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			return nil, fmt.Errorf("redis: unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.ActivityLog = (*ActivityLog)(nil)
