package svckit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ErrorCode represents a svckit error classification
type ErrorCode string

const (
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeDuplicate          ErrorCode = "DUPLICATE"
	CodeForeignKey         ErrorCode = "FOREIGN_KEY"
	CodeCheckViolation     ErrorCode = "CHECK_VIOLATION"
	CodeNotNullViolation   ErrorCode = "NOT_NULL"
	CodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeSerialization      ErrorCode = "SERIALIZATION"
	CodeDeadlock           ErrorCode = "DEADLOCK"
	CodeAcquireFailed      ErrorCode = "ACQUIRE_FAILED"
	CodeTxFinalized        ErrorCode = "TX_FINALIZED"
	CodeNotInitialized     ErrorCode = "NOT_INITIALIZED"
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	CodeInvalidConfig      ErrorCode = "INVALID_CONFIG"
	CodeInvalidCursor      ErrorCode = "INVALID_CURSOR"
	CodeUnknown            ErrorCode = "UNKNOWN"
)

// Sentinel errors for quick checks
var (
	ErrNotFound           = errors.New("svckit: record not found")
	ErrDuplicate          = errors.New("svckit: duplicate key violation")
	ErrForeignKey         = errors.New("svckit: foreign key violation")
	ErrCheckViolation     = errors.New("svckit: check constraint violation")
	ErrNotNullViolation   = errors.New("svckit: not null violation")
	ErrConnection         = errors.New("svckit: connection failed")
	ErrTimeout            = errors.New("svckit: operation timeout")
	ErrSerialization      = errors.New("svckit: serialization failure")
	ErrDeadlock           = errors.New("svckit: deadlock detected")
	ErrAcquire            = errors.New("svckit: transaction acquisition failed")
	ErrTxFinalized        = errors.New("svckit: transaction already finalized")
	ErrNotInitialized     = errors.New("svckit: resource not initialized")
	ErrAlreadyInitialized = errors.New("svckit: resource already initialized")
	ErrInvalidConfig      = errors.New("svckit: invalid configuration")
	ErrInvalidCursor      = errors.New("svckit: invalid page cursor")
)

var codeSentinels = map[ErrorCode]error{
	CodeNotFound:           ErrNotFound,
	CodeDuplicate:          ErrDuplicate,
	CodeForeignKey:         ErrForeignKey,
	CodeCheckViolation:     ErrCheckViolation,
	CodeNotNullViolation:   ErrNotNullViolation,
	CodeConnectionFailed:   ErrConnection,
	CodeTimeout:            ErrTimeout,
	CodeSerialization:      ErrSerialization,
	CodeDeadlock:           ErrDeadlock,
	CodeAcquireFailed:      ErrAcquire,
	CodeTxFinalized:        ErrTxFinalized,
	CodeNotInitialized:     ErrNotInitialized,
	CodeAlreadyInitialized: ErrAlreadyInitialized,
	CodeInvalidConfig:      ErrInvalidConfig,
	CodeInvalidCursor:      ErrInvalidCursor,
}

// Error is a rich error with operation and database context
type Error struct {
	Code       ErrorCode // Error classification
	Message    string    // Human-readable message
	Op         string    // Operation that failed (e.g., "Acquire", "Commit")
	Table      string    // Table name if known
	Column     string    // Column name if known
	Constraint string    // Constraint name if applicable
	Detail     string    // Additional detail from PostgreSQL
	Hint       string    // Hint from PostgreSQL
	Cause      error     // Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("svckit: %s", e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("svckit.%s: %s", e.Op, e.Message)
	}
	if e.Table != "" {
		msg += fmt.Sprintf(" (table: %s)", e.Table)
	}
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (constraint: %s)", e.Constraint)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for sentinel error matching
func (e *Error) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && target == sentinel
}

// wrapError converts a raw error to a rich Error
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &Error{Code: CodeNotFound, Message: "record not found", Op: op, Cause: err}
	case errors.Is(err, sql.ErrTxDone):
		return &Error{Code: CodeTxFinalized, Message: "transaction already finalized", Op: op, Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeTimeout, Message: "operation deadline exceeded", Op: op, Cause: err}
	}

	// Each PostgreSQL driver reports server errors with its own type
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPg(pgFields{
			code:       pgErr.Code,
			message:    pgErr.Message,
			detail:     pgErr.Detail,
			hint:       pgErr.Hint,
			table:      pgErr.TableName,
			column:     pgErr.ColumnName,
			constraint: pgErr.ConstraintName,
		}, op, err)
	}

	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		return classifyPg(pgFields{
			code:       drvErr.Field('C'),
			message:    drvErr.Field('M'),
			detail:     drvErr.Field('D'),
			hint:       drvErr.Field('H'),
			table:      drvErr.Field('t'),
			column:     drvErr.Field('c'),
			constraint: drvErr.Field('n'),
		}, op, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPg(pgFields{
			code:       string(pqErr.Code),
			message:    pqErr.Message,
			detail:     pqErr.Detail,
			hint:       pqErr.Hint,
			table:      pqErr.Table,
			column:     pqErr.Column,
			constraint: pqErr.Constraint,
		}, op, err)
	}

	return &Error{
		Code:    CodeUnknown,
		Message: err.Error(),
		Op:      op,
		Cause:   err,
	}
}

// pgFields is the driver-neutral view of a PostgreSQL error response
type pgFields struct {
	code       string
	message    string
	detail     string
	hint       string
	table      string
	column     string
	constraint string
}

// classifyPg maps a PostgreSQL SQLSTATE to a rich error.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
func classifyPg(f pgFields, op string, cause error) *Error {
	e := &Error{
		Op:         op,
		Table:      f.table,
		Column:     f.column,
		Constraint: f.constraint,
		Detail:     f.detail,
		Hint:       f.hint,
		Cause:      cause,
	}

	switch f.code {
	case "23505": // unique_violation
		e.Code = CodeDuplicate
		e.Message = "duplicate key value violates unique constraint"
	case "23503": // foreign_key_violation
		e.Code = CodeForeignKey
		e.Message = "foreign key constraint violation"
	case "23502": // not_null_violation
		e.Code = CodeNotNullViolation
		e.Message = "null value in column violates not-null constraint"
	case "23514": // check_violation
		e.Code = CodeCheckViolation
		e.Message = "check constraint violation"
	case "40001": // serialization_failure
		e.Code = CodeSerialization
		e.Message = "serialization failure, retry transaction"
	case "40P01": // deadlock_detected
		e.Code = CodeDeadlock
		e.Message = "deadlock detected"
	case "57014": // query_canceled
		e.Code = CodeTimeout
		e.Message = "query was cancelled due to timeout"
	case "08000", "08003", "08006": // connection_exception
		e.Code = CodeConnectionFailed
		e.Message = "database connection failed"
	case "25P02": // in_failed_sql_transaction
		e.Code = CodeUnknown
		e.Message = "current transaction is aborted, commands ignored until end of transaction block"
	default:
		e.Code = CodeUnknown
		e.Message = f.message
	}

	return e
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if error is a duplicate key error
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsForeignKey checks if error is a foreign key error
func IsForeignKey(err error) bool {
	return errors.Is(err, ErrForeignKey)
}

// IsConnection checks if error is a connection error
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsTimeout checks if error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsAcquire checks if a transaction could not be acquired from the pool
func IsAcquire(err error) bool {
	return errors.Is(err, ErrAcquire)
}

// IsTxFinalized checks if an operation was attempted on a finalized guard.
// Queries built from a finalized guard surface sql.ErrTxDone unwrapped.
func IsTxFinalized(err error) bool {
	return errors.Is(err, ErrTxFinalized) || errors.Is(err, sql.ErrTxDone)
}

// IsNotInitialized checks if a shared resource was used before initialization
func IsNotInitialized(err error) bool {
	return errors.Is(err, ErrNotInitialized)
}

// IsRetryable checks if the error is retryable (serialization, deadlock)
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSerialization) || errors.Is(err, ErrDeadlock)
}

// GetErrorCode extracts the error code if it's a svckit error
func GetErrorCode(err error) (ErrorCode, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code, true
	}
	return "", false
}

// GetConstraint extracts the constraint name if available
func GetConstraint(err error) (string, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Constraint != "" {
		return svcErr.Constraint, true
	}
	return "", false
}

// GetTable extracts the table name if available
func GetTable(err error) (string, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Table != "" {
		return svcErr.Table, true
	}
	return "", false
}

// QueryResult wraps a query result with error context for chainable error handling.
type QueryResult[T any] struct {
	result T
	err    error
	op     string
}

// Err returns the classified error, or nil.
func (qr *QueryResult[T]) Err() error {
	return wrapError(qr.err, qr.op)
}

// Unwrap returns the result and the classified error.
func (qr *QueryResult[T]) Unwrap() (T, error) {
	return qr.result, wrapError(qr.err, qr.op)
}

// Result returns the result regardless of the error.
func (qr *QueryResult[T]) Result() T {
	return qr.result
}

// HasError returns true if there was an error.
func (qr *QueryResult[T]) HasError() bool {
	return qr.err != nil
}

// WithErr wraps a result and error with operation context.
//
// Usage:
//
//	res, err := g.NewInsert().Model(&order).Exec(ctx)
//	res, err = svckit.WithErr(res, err, "CreateOrder").Unwrap()
//
//	err := svckit.WithErr1(g.NewSelect().Model(&order).WherePK().Scan(ctx), "FindOrder").Err()
func WithErr[T any](result T, err error, op string) *QueryResult[T] {
	return &QueryResult[T]{
		result: result,
		err:    err,
		op:     op,
	}
}

// WithErr1 is WithErr for operations that return only an error, such as Scan.
func WithErr1(err error, op string) *QueryResult[struct{}] {
	return &QueryResult[struct{}]{
		err: err,
		op:  op,
	}
}
