package hooks

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

const maxLoggedQuery = 500

// LoggerHook logs queries and transaction lifecycle events
type LoggerHook struct {
	logger        *slog.Logger
	logQueries    bool
	slowThreshold time.Duration
}

// NewLoggerHook creates a new logger hook. Transaction events are always
// logged; queries are logged when logQueries is set or when they exceed
// slowThreshold (0 disables slow query logging).
func NewLoggerHook(logger *slog.Logger, logQueries bool, slowThreshold time.Duration) *LoggerHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggerHook{
		logger:        logger,
		logQueries:    logQueries,
		slowThreshold: slowThreshold,
	}
}

// LogsQueries reports whether the hook logs anything at query level
func (h *LoggerHook) LogsQueries() bool {
	return h.logQueries || h.slowThreshold > 0
}

// BeforeQuery is called before a query is executed
func (h *LoggerHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery is called after a query is executed
func (h *LoggerHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)
	slow := h.slowThreshold > 0 && duration >= h.slowThreshold

	if !h.logQueries && !slow {
		return
	}

	attrs := []slog.Attr{
		slog.Duration("duration", duration),
		slog.String("operation", OperationType(event.Query)),
		slog.String("query", truncate(event.Query)),
	}

	switch {
	case event.Err != nil:
		attrs = append(attrs, slog.String("error", event.Err.Error()))
		h.logger.LogAttrs(ctx, slog.LevelError, "database query failed", attrs...)
	case slow:
		h.logger.LogAttrs(ctx, slog.LevelWarn, "slow database query", attrs...)
	default:
		h.logger.LogAttrs(ctx, slog.LevelDebug, "database query", attrs...)
	}
}

// BeforeTx logs the start of a transaction
func (h *LoggerHook) BeforeTx(ctx context.Context, event *TxEvent) context.Context {
	h.logger.LogAttrs(ctx, slog.LevelDebug, "transaction started",
		slog.String("tx_id", event.ID),
		slog.Bool("read_only", event.ReadOnly),
	)
	return ctx
}

// AfterTx logs how a transaction ended
func (h *LoggerHook) AfterTx(ctx context.Context, event *TxEvent) {
	attrs := []slog.Attr{
		slog.String("tx_id", event.ID),
		slog.String("outcome", string(event.Outcome)),
		slog.Duration("duration", event.Duration()),
	}
	if event.Err != nil {
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	if event.Leaked {
		attrs = append(attrs, slog.Bool("leaked", true))
	}

	switch event.Outcome {
	case OutcomeCommitted:
		h.logger.LogAttrs(ctx, slog.LevelDebug, "transaction committed", attrs...)
	case OutcomeRolledBack:
		if event.Leaked {
			h.logger.LogAttrs(ctx, slog.LevelWarn, "leaked transaction rolled back", attrs...)
			return
		}
		h.logger.LogAttrs(ctx, slog.LevelInfo, "transaction rolled back", attrs...)
	case OutcomeCommitFailed:
		h.logger.LogAttrs(ctx, slog.LevelError, "transaction commit failed", attrs...)
	case OutcomeRollbackFailed:
		h.logger.LogAttrs(ctx, slog.LevelError, "transaction rollback failed", attrs...)
	}
}

func truncate(query string) string {
	if len(query) > maxLoggedQuery {
		return query[:maxLoggedQuery] + "..."
	}
	return query
}

// OperationType extracts the operation type from a query
func OperationType(query string) string {
	query = strings.TrimSpace(strings.ToUpper(query))
	switch {
	case strings.HasPrefix(query, "SELECT"):
		return "select"
	case strings.HasPrefix(query, "INSERT"):
		return "insert"
	case strings.HasPrefix(query, "UPDATE"):
		return "update"
	case strings.HasPrefix(query, "DELETE"):
		return "delete"
	case strings.HasPrefix(query, "BEGIN"):
		return "begin"
	case strings.HasPrefix(query, "COMMIT"):
		return "commit"
	case strings.HasPrefix(query, "ROLLBACK"):
		return "rollback"
	case strings.HasPrefix(query, "SAVEPOINT"):
		return "savepoint"
	case strings.HasPrefix(query, "RELEASE"):
		return "release"
	default:
		return "other"
	}
}
