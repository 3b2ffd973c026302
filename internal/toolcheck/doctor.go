package toolcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// CachedDoctor wraps a Prober to cache results with a configurable TTL.
// This avoids shelling out on every health check.
type CachedDoctor struct {
	prober Prober
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Report
}

// NewCachedDoctor creates a caching wrapper around tool probes.
func NewCachedDoctor(prober Prober, ttl time.Duration, logger *slog.Logger) *CachedDoctor {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedDoctor{
		prober: prober,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached report if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Report, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		report := d.cached
		d.mu.RUnlock()
		return report, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	report, err := d.prober.Probe(ctx)
	if err != nil {
		d.logger.Warn("tool probe failed", "error", err)
		// Return stale cache if available
		if d.cached != nil {
			d.logger.Info("returning stale tool report")
			return d.cached, nil
		}
		return nil, err
	}

	if missing := report.Missing(); len(missing) > 0 {
		d.logger.Warn("required tools missing", "tools", missing)
	}
	d.cached = report
	return report, nil
}

// Invalidate clears the cached report.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
