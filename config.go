package svckit

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/fernandezvara/svckit/hooks"
)

// Driver selects the database/sql driver used by a Pool
type Driver string

const (
	DriverPGDriver Driver = "pgdriver" // github.com/uptrace/bun/driver/pgdriver
	DriverPGX      Driver = "pgx"      // github.com/jackc/pgx/v5/stdlib
	DriverPQ       Driver = "pq"       // github.com/lib/pq
)

// Config holds connection pool configuration
type Config struct {
	// Connection
	URL    string `validate:"required"`                        // PostgreSQL connection string (required)
	Driver Driver `validate:"omitempty,oneof=pgdriver pgx pq"` // SQL driver (default: pgdriver)

	// Pool settings
	MaxOpenConns    int           `validate:"gte=0"` // Max open connections, bounds concurrent transactions (default: 25)
	MaxIdleConns    int           `validate:"gte=0"` // Max idle connections (default: 5)
	ConnMaxLifetime time.Duration `validate:"gte=0"` // Max connection lifetime (default: 5m)
	ConnMaxIdleTime time.Duration `validate:"gte=0"` // Max idle time (default: 1m)

	// Timeouts
	DialTimeout    time.Duration `validate:"gte=0"` // Connection dial timeout (default: 5s)
	ReadTimeout    time.Duration `validate:"gte=0"` // Read timeout (default: 30s)
	WriteTimeout   time.Duration `validate:"gte=0"` // Write timeout (default: 30s)
	AcquireTimeout time.Duration `validate:"gte=0"` // Max wait for a pooled connection in Acquire (0 = wait on ctx only)

	// Observability (all optional)
	Logger          *slog.Logger          // Structured logger (default: slog.Default())
	LogQueries      bool                  // Log all queries
	LogSlowQueries  time.Duration         // Log queries slower than this (0 = disabled)
	MetricsRegistry prometheus.Registerer // Prometheus registry for metrics
	Tracer          trace.Tracer          // OpenTelemetry tracer
	TxHooks         []hooks.TxHook        // Extra transaction lifecycle hooks
}

// DefaultConfig returns sensible defaults
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		Driver:          DriverPGDriver,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
	}
}

// applyDefaults fills in zero values with defaults
func (c *Config) applyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPGDriver
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 1 * time.Minute
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// WithLogger enables query logging
func (c Config) WithLogger(logger *slog.Logger) Config {
	c.Logger = logger
	c.LogQueries = true
	return c
}

// WithSlowQueryLog logs queries slower than the threshold
func (c Config) WithSlowQueryLog(threshold time.Duration) Config {
	c.LogSlowQueries = threshold
	return c
}

// WithMetrics enables Prometheus metrics
func (c Config) WithMetrics(registry prometheus.Registerer) Config {
	c.MetricsRegistry = registry
	return c
}

// WithTracing enables OpenTelemetry tracing
func (c Config) WithTracing(tracer trace.Tracer) Config {
	c.Tracer = tracer
	return c
}

// WithAcquireTimeout bounds how long Acquire waits for a pooled connection
func (c Config) WithAcquireTimeout(timeout time.Duration) Config {
	c.AcquireTimeout = timeout
	return c
}

// WithTxHook adds a transaction lifecycle hook
func (c Config) WithTxHook(hook hooks.TxHook) Config {
	c.TxHooks = append(c.TxHooks[:len(c.TxHooks):len(c.TxHooks)], hook)
	return c
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct-tag validation and reports failures as a
// CodeInvalidConfig error for op.
func validateStruct(v any, op string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Code: CodeInvalidConfig, Message: err.Error(), Op: op, Cause: err}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return &Error{
		Code:    CodeInvalidConfig,
		Message: "invalid field " + strings.Join(fields, ", "),
		Op:      op,
		Cause:   err,
	}
}
