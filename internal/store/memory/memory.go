// Package memory provides in-process implementations of the result store,
// cache, activity log, and lock manager. They back the server when no
// external postgres or redis is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// RunStore keeps up to maxRuns results in memory, newest first.
type RunStore struct {
	mu      sync.RWMutex
	runs    []domain.RunResult
	maxRuns int
}

var _ domain.RunStore = (*RunStore)(nil)

// NewRunStore builds a bounded in-memory run store.
func NewRunStore(maxRuns int) *RunStore {
	if maxRuns <= 0 {
		maxRuns = 24
	}
	return &RunStore{maxRuns: maxRuns}
}

// Insert prepends the result, evicting the oldest entry once full.
func (s *RunStore) Insert(_ context.Context, result domain.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append([]domain.RunResult{result}, s.runs...)
	if len(s.runs) > s.maxRuns {
		s.runs = s.runs[:s.maxRuns]
	}
	return nil
}

// Latest returns the most recent run or domain.ErrNotFound.
func (s *RunStore) Latest(_ context.Context) (domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return domain.RunResult{}, domain.ErrNotFound
	}
	return s.runs[0], nil
}

// LatestByModel returns the most recent run for the given family.
func (s *RunStore) LatestByModel(_ context.Context, family domain.ModelFamily) (domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.runs {
		if r.Model == family {
			return r, nil
		}
	}
	return domain.RunResult{}, domain.ErrNotFound
}

// ListRecent returns up to limit runs, newest first.
func (s *RunStore) ListRecent(_ context.Context, limit int) ([]domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]domain.RunResult, limit)
	copy(out, s.runs[:limit])
	return out, nil
}

// ResultCache holds the latest run and per-family summaries.
type ResultCache struct {
	mu        sync.RWMutex
	latest    *domain.RunResult
	summaries map[string]domain.ModelSummary
}

var _ domain.ResultCache = (*ResultCache)(nil)

// NewResultCache builds an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{summaries: make(map[string]domain.ModelSummary)}
}

// SetLatest replaces the cached latest result.
func (c *ResultCache) SetLatest(_ context.Context, result domain.RunResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &result
	return nil
}

// GetLatest returns the cached latest result or domain.ErrNotFound.
func (c *ResultCache) GetLatest(_ context.Context) (domain.RunResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return domain.RunResult{}, domain.ErrNotFound
	}
	return *c.latest, nil
}

// SetModelSummary stores the condensed view for the result's family.
func (c *ResultCache) SetModelSummary(_ context.Context, result domain.RunResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[string(result.Model)] = result.Summary()
	return nil
}

// ModelSummaries returns a copy of all cached per-family summaries.
func (c *ResultCache) ModelSummaries(_ context.Context) (map[string]domain.ModelSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.ModelSummary, len(c.summaries))
	for k, v := range c.summaries {
		out[k] = v
	}
	return out, nil
}

// ActivityLog is a bounded, most-recent-first event log.
type ActivityLog struct {
	mu        sync.RWMutex
	events    []domain.Event
	maxEvents int
}

var _ domain.ActivityLog = (*ActivityLog)(nil)

// NewActivityLog builds a bounded in-memory activity log.
func NewActivityLog(maxEvents int) *ActivityLog {
	if maxEvents <= 0 {
		maxEvents = 50
	}
	return &ActivityLog{maxEvents: maxEvents}
}

// Push prepends events, evicting the oldest beyond the cap.
func (l *ActivityLog) Push(_ context.Context, events []domain.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(append([]domain.Event{}, events...), l.events...)
	if len(l.events) > l.maxEvents {
		l.events = l.events[:l.maxEvents]
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *ActivityLog) Recent(_ context.Context, limit int) ([]domain.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]domain.Event, limit)
	copy(out, l.events[:limit])
	return out, nil
}

// LockManager serializes runs within a single process. The ttl is honored so
// a crashed holder does not block forever, mirroring the redis lock contract.
type LockManager struct {
	mu   sync.Mutex
	held map[string]time.Time
}

var _ domain.LockManager = (*LockManager)(nil)

// NewLockManager builds an in-process lock manager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]time.Time)}
}

// Acquire takes the named lock or returns domain.ErrLockHeld.
func (m *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, ok := m.held[key]; ok && time.Now().Before(expiry) {
		return nil, domain.ErrLockHeld
	}
	m.held[key] = time.Now().Add(ttl)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.held, key)
	}, nil
}
