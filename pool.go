package svckit

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fernandezvara/svckit/hooks"
)

// Pool wraps bun.DB and hands out guarded transactions.
// MaxOpenConns bounds how many guards can be active at once.
type Pool struct {
	*bun.DB
	config  Config
	txHooks []hooks.TxHook
	active  atomic.Int64
}

// New opens a connection pool with the given configuration
func New(cfg Config) (*Pool, error) {
	cfg.applyDefaults()

	if err := validateStruct(cfg, "New"); err != nil {
		return nil, err
	}

	sqlDB, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := newPool(sqlDB, cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.DB.Close()
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to connect to database",
			Op:      "New",
			Cause:   err,
		}
	}

	return pool, nil
}

// NewFromDB wraps an already opened *sql.DB without pinging it.
// cfg.URL and cfg.Driver are ignored.
func NewFromDB(sqlDB *sql.DB, cfg Config) (*Pool, error) {
	cfg.applyDefaults()
	return newPool(sqlDB, cfg)
}

func openSQL(cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverPGX:
		connConfig, err := pgx.ParseConfig(cfg.URL)
		if err != nil {
			return nil, &Error{Code: CodeInvalidConfig, Message: "invalid database URL", Op: "New", Cause: err}
		}
		connConfig.ConnectTimeout = cfg.DialTimeout
		return stdlib.OpenDB(*connConfig), nil
	case DriverPQ:
		connector, err := pq.NewConnector(cfg.URL)
		if err != nil {
			return nil, &Error{Code: CodeInvalidConfig, Message: "invalid database URL", Op: "New", Cause: err}
		}
		return sql.OpenDB(connector), nil
	default:
		connector := pgdriver.NewConnector(
			pgdriver.WithDSN(cfg.URL),
			pgdriver.WithDialTimeout(cfg.DialTimeout),
			pgdriver.WithReadTimeout(cfg.ReadTimeout),
			pgdriver.WithWriteTimeout(cfg.WriteTimeout),
		)
		return sql.OpenDB(connector), nil
	}
}

func newPool(sqlDB *sql.DB, cfg Config) (*Pool, error) {
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	bunDB := bun.NewDB(sqlDB, pgdialect.New())

	pool := &Pool{
		DB:     bunDB,
		config: cfg,
	}

	// Transaction lifecycle is always logged; query logging is opt-in
	logger := hooks.NewLoggerHook(cfg.Logger, cfg.LogQueries, cfg.LogSlowQueries)
	if logger.LogsQueries() {
		bunDB.AddQueryHook(logger)
	}
	pool.txHooks = append(pool.txHooks, logger)

	if cfg.MetricsRegistry != nil {
		hook, err := hooks.NewMetricsHook(cfg.MetricsRegistry)
		if err != nil {
			return nil, fmt.Errorf("svckit: failed to create metrics hook: %w", err)
		}
		bunDB.AddQueryHook(hook)
		pool.txHooks = append(pool.txHooks, hook)
	}
	if cfg.Tracer != nil {
		hook := hooks.NewTracingHook(cfg.Tracer)
		bunDB.AddQueryHook(hook)
		pool.txHooks = append(pool.txHooks, hook)
	}
	pool.txHooks = append(pool.txHooks, cfg.TxHooks...)

	return pool, nil
}

// Close closes the pool and all idle connections
func (p *Pool) Close() error {
	return p.DB.Close()
}

// Ping verifies the database connection is alive
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.PingContext(ctx); err != nil {
		return wrapError(err, "Ping")
	}
	return nil
}

// Stats returns connection pool statistics
func (p *Pool) Stats() sql.DBStats {
	return p.DB.Stats()
}

// ActiveTransactions returns the number of guards not yet finalized
func (p *Pool) ActiveTransactions() int64 {
	return p.active.Load()
}

// Bun returns the underlying bun.DB for direct access
func (p *Pool) Bun() *bun.DB {
	return p.DB
}

// Config returns the current configuration
func (p *Pool) Config() Config {
	return p.config
}

// IDB is the query surface shared by Pool and Guard
type IDB interface {
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
	NewRaw(query string, args ...any) *bun.RawQuery
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ IDB = (*Pool)(nil)
	_ IDB = (*Guard)(nil)
)
