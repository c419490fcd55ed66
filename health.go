package svckit

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthStatus represents the database health status
type HealthStatus struct {
	Healthy            bool          `json:"healthy"`
	Latency            time.Duration `json:"latency"`
	Error              string        `json:"error,omitempty"`
	ActiveTransactions int64         `json:"active_transactions"`
	PoolStats          PoolStats     `json:"pool_stats"`
}

// PoolStats contains connection pool statistics
type PoolStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxIdleClosed      int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64         `json:"max_lifetime_closed"`
}

// Health performs a health check with detailed status
func (p *Pool) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	err := p.Ping(ctx)

	status := HealthStatus{
		Healthy:            err == nil,
		Latency:            time.Since(start),
		ActiveTransactions: p.ActiveTransactions(),
		PoolStats:          PoolStatsFromSQL(p.Stats()),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// IsHealthy returns true if the database is reachable
func (p *Pool) IsHealthy(ctx context.Context) bool {
	return p.Ping(ctx) == nil
}

// PoolStatsFromSQL converts sql.DBStats to PoolStats
func PoolStatsFromSQL(stats sql.DBStats) PoolStats {
	return PoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

// CacheHealth represents the cache health status
type CacheHealth struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// HealthReport aggregates the health of the shared resources
type HealthReport struct {
	Healthy  bool          `json:"healthy"`
	Database *HealthStatus `json:"database,omitempty"`
	Cache    *CacheHealth  `json:"cache,omitempty"`
}

// CheckHealth checks the pool and the cache concurrently. Either may be nil
// and is then left out of the report.
func CheckHealth(ctx context.Context, pool *Pool, cache *CacheRegistry) HealthReport {
	var report HealthReport
	g, ctx := errgroup.WithContext(ctx)

	if pool != nil {
		g.Go(func() error {
			status := pool.Health(ctx)
			report.Database = &status
			return nil
		})
	}
	if cache != nil {
		g.Go(func() error {
			start := time.Now()
			err := cache.Health(ctx)
			report.Cache = &CacheHealth{
				Healthy: err == nil,
				Latency: time.Since(start),
			}
			if err != nil {
				report.Cache.Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Healthy = (report.Database == nil || report.Database.Healthy) &&
		(report.Cache == nil || report.Cache.Healthy)
	return report
}
