package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
)

var durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// MetricsHook implements Prometheus metrics for queries and transactions
type MetricsHook struct {
	queryDuration *prometheus.HistogramVec
	queryTotal    *prometheus.CounterVec
	queryErrors   *prometheus.CounterVec

	txTotal    *prometheus.CounterVec
	txDuration *prometheus.HistogramVec
	txActive   prometheus.Gauge
	txLeaked   prometheus.Counter
}

// NewMetricsHook creates a new metrics hook and registers collectors.
// Collectors already registered by another pool are reused.
func NewMetricsHook(registry prometheus.Registerer) (*MetricsHook, error) {
	h := &MetricsHook{
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svckit_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: durationBuckets,
			},
			[]string{"operation"},
		),
		queryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svckit_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"operation"},
		),
		queryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svckit_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
		txTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svckit_transactions_total",
				Help: "Total number of finalized transactions by outcome",
			},
			[]string{"outcome"},
		),
		txDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svckit_transaction_duration_seconds",
				Help:    "Time from acquisition to finalization of transactions",
				Buckets: durationBuckets,
			},
			[]string{"outcome"},
		),
		txActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "svckit_transactions_active",
			Help: "Number of transactions currently holding a pooled connection",
		}),
		txLeaked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "svckit_transactions_leaked_total",
			Help: "Transactions finalized by the leak cleanup instead of their owner",
		}),
	}

	var err error
	if h.queryDuration, err = register(registry, h.queryDuration); err != nil {
		return nil, err
	}
	if h.queryTotal, err = register(registry, h.queryTotal); err != nil {
		return nil, err
	}
	if h.queryErrors, err = register(registry, h.queryErrors); err != nil {
		return nil, err
	}
	if h.txTotal, err = register(registry, h.txTotal); err != nil {
		return nil, err
	}
	if h.txDuration, err = register(registry, h.txDuration); err != nil {
		return nil, err
	}
	if h.txActive, err = register(registry, h.txActive); err != nil {
		return nil, err
	}
	if h.txLeaked, err = register(registry, h.txLeaked); err != nil {
		return nil, err
	}

	return h, nil
}

// register registers c, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](registry prometheus.Registerer, c C) (C, error) {
	if err := registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// BeforeQuery is called before a query is executed
func (h *MetricsHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery is called after a query is executed
func (h *MetricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime).Seconds()
	op := OperationType(event.Query)

	h.queryDuration.WithLabelValues(op).Observe(duration)
	h.queryTotal.WithLabelValues(op).Inc()

	if event.Err != nil {
		h.queryErrors.WithLabelValues(op).Inc()
	}
}

// BeforeTx counts a transaction as active
func (h *MetricsHook) BeforeTx(ctx context.Context, event *TxEvent) context.Context {
	h.txActive.Inc()
	return ctx
}

// AfterTx records the outcome of a transaction
func (h *MetricsHook) AfterTx(ctx context.Context, event *TxEvent) {
	h.txActive.Dec()
	h.txTotal.WithLabelValues(string(event.Outcome)).Inc()
	h.txDuration.WithLabelValues(string(event.Outcome)).Observe(event.Duration().Seconds())
	if event.Leaked {
		h.txLeaked.Inc()
	}
}
