package svckit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		err      *Error
		expected string
	}{
		{
			err:      &Error{Message: "test error"},
			expected: "svckit: test error",
		},
		{
			err:      &Error{Op: "Commit", Message: "failed"},
			expected: "svckit.Commit: failed",
		},
		{
			err:      &Error{Op: "Create", Message: "failed", Table: "orders"},
			expected: "svckit.Create: failed (table: orders)",
		},
		{
			err:      &Error{Op: "Create", Message: "failed", Table: "orders", Constraint: "orders_pkey"},
			expected: "svckit.Create: failed (table: orders) (constraint: orders_pkey)",
		},
	}

	for _, tt := range tests {
		if tt.err.Error() != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, tt.err.Error())
		}
	}
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		err    *Error
		target error
		match  bool
	}{
		{&Error{Code: CodeNotFound}, ErrNotFound, true},
		{&Error{Code: CodeDuplicate}, ErrDuplicate, true},
		{&Error{Code: CodeAcquireFailed}, ErrAcquire, true},
		{&Error{Code: CodeTxFinalized}, ErrTxFinalized, true},
		{&Error{Code: CodeNotInitialized}, ErrNotInitialized, true},
		{&Error{Code: CodeInvalidConfig}, ErrInvalidConfig, true},
		{&Error{Code: CodeNotFound}, ErrDuplicate, false},
		{&Error{Code: CodeUnknown}, ErrNotFound, false},
	}

	for _, tt := range tests {
		if errors.Is(tt.err, tt.target) != tt.match {
			t.Errorf("expected Is(%v, %v) = %v", tt.err.Code, tt.target, tt.match)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &Error{Code: CodeUnknown, Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestWrapError_Nil(t *testing.T) {
	if wrapError(nil, "Test") != nil {
		t.Error("wrapError(nil) should return nil")
	}
}

func TestWrapError_AlreadyWrapped(t *testing.T) {
	original := &Error{Code: CodeNotFound, Message: "original"}
	wrapped := wrapError(fmt.Errorf("context: %w", original), "Test")

	if !errors.Is(wrapped, ErrNotFound) {
		t.Errorf("classification should survive wrapping, got %v", wrapped)
	}
	if wrapError(original, "Test") != error(original) {
		t.Error("already wrapped error should be returned as-is")
	}
}

func TestWrapError_Sentinels(t *testing.T) {
	tests := []struct {
		err      error
		expected ErrorCode
	}{
		{sql.ErrNoRows, CodeNotFound},
		{fmt.Errorf("scan: %w", sql.ErrNoRows), CodeNotFound},
		{sql.ErrTxDone, CodeTxFinalized},
		{context.DeadlineExceeded, CodeTimeout},
		{errors.New("boom"), CodeUnknown},
	}

	for _, tt := range tests {
		code, ok := GetErrorCode(wrapError(tt.err, "FindByID"))
		if !ok {
			t.Fatalf("%v: expected *Error", tt.err)
		}
		if code != tt.expected {
			t.Errorf("%v: expected %s, got %s", tt.err, tt.expected, code)
		}
	}
}

func TestWrapError_Op(t *testing.T) {
	var svcErr *Error
	if !errors.As(wrapError(sql.ErrNoRows, "FindByID"), &svcErr) {
		t.Fatal("expected *Error")
	}
	if svcErr.Op != "FindByID" {
		t.Errorf("expected FindByID, got %s", svcErr.Op)
	}
	if !errors.Is(svcErr, sql.ErrNoRows) {
		t.Error("cause should be kept")
	}
}

var sqlStates = []struct {
	code     string
	expected ErrorCode
}{
	{"23505", CodeDuplicate},
	{"23503", CodeForeignKey},
	{"23502", CodeNotNullViolation},
	{"23514", CodeCheckViolation},
	{"40001", CodeSerialization},
	{"40P01", CodeDeadlock},
	{"57014", CodeTimeout},
	{"08000", CodeConnectionFailed},
	{"08006", CodeConnectionFailed},
	{"25P02", CodeUnknown},
	{"99999", CodeUnknown},
}

func TestWrapError_PgconnError(t *testing.T) {
	for _, tt := range sqlStates {
		pgErr := &pgconn.PgError{
			Code:           tt.code,
			Message:        "test",
			TableName:      "orders",
			ColumnName:     "sku",
			ConstraintName: "orders_sku_key",
		}

		var wrapped *Error
		if !errors.As(wrapError(pgErr, "Create"), &wrapped) {
			t.Fatalf("%s: expected *Error", tt.code)
		}
		if wrapped.Code != tt.expected {
			t.Errorf("pgCode %s: expected %s, got %s", tt.code, tt.expected, wrapped.Code)
		}
		if wrapped.Table != "orders" {
			t.Errorf("expected table orders, got %s", wrapped.Table)
		}
		if wrapped.Column != "sku" {
			t.Errorf("expected column sku, got %s", wrapped.Column)
		}
		if wrapped.Constraint != "orders_sku_key" {
			t.Errorf("expected constraint orders_sku_key, got %s", wrapped.Constraint)
		}
	}
}

func TestWrapError_PqError(t *testing.T) {
	for _, tt := range sqlStates {
		pqErr := &pq.Error{
			Code:       pq.ErrorCode(tt.code),
			Message:    "test",
			Table:      "orders",
			Constraint: "orders_sku_key",
		}

		code, _ := GetErrorCode(wrapError(pqErr, "Create"))
		if code != tt.expected {
			t.Errorf("pq code %s: expected %s, got %s", tt.code, tt.expected, code)
		}
	}

	table, ok := GetTable(wrapError(&pq.Error{Code: "23505", Table: "orders"}, "Create"))
	if !ok || table != "orders" {
		t.Errorf("expected table orders, got %q", table)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		check func(error) bool
		code  ErrorCode
	}{
		{"IsNotFound", IsNotFound, CodeNotFound},
		{"IsDuplicate", IsDuplicate, CodeDuplicate},
		{"IsForeignKey", IsForeignKey, CodeForeignKey},
		{"IsConnection", IsConnection, CodeConnectionFailed},
		{"IsTimeout", IsTimeout, CodeTimeout},
		{"IsAcquire", IsAcquire, CodeAcquireFailed},
		{"IsTxFinalized", IsTxFinalized, CodeTxFinalized},
		{"IsNotInitialized", IsNotInitialized, CodeNotInitialized},
	}

	for _, tt := range tests {
		if !tt.check(&Error{Code: tt.code}) {
			t.Errorf("%s should return true for %s", tt.name, tt.code)
		}
		if tt.check(&Error{Code: CodeUnknown}) {
			t.Errorf("%s should return false for %s", tt.name, CodeUnknown)
		}
	}
}

func TestIsTxFinalized_BareTxDone(t *testing.T) {
	if !IsTxFinalized(sql.ErrTxDone) {
		t.Error("IsTxFinalized should return true for sql.ErrTxDone")
	}
	if !IsTxFinalized(fmt.Errorf("scan: %w", sql.ErrTxDone)) {
		t.Error("IsTxFinalized should return true for a wrapped sql.ErrTxDone")
	}
	if IsTxFinalized(sql.ErrNoRows) {
		t.Error("IsTxFinalized should return false for sql.ErrNoRows")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected bool
	}{
		{CodeSerialization, true},
		{CodeDeadlock, true},
		{CodeNotFound, false},
		{CodeDuplicate, false},
	}

	for _, tt := range tests {
		err := &Error{Code: tt.code}
		if IsRetryable(err) != tt.expected {
			t.Errorf("IsRetryable(%s) = %v, expected %v", tt.code, !tt.expected, tt.expected)
		}
	}
}

func TestGetErrorCode(t *testing.T) {
	code, ok := GetErrorCode(&Error{Code: CodeDuplicate})
	if !ok {
		t.Error("expected ok=true")
	}
	if code != CodeDuplicate {
		t.Errorf("expected CodeDuplicate, got %s", code)
	}

	if _, ok := GetErrorCode(errors.New("plain error")); ok {
		t.Error("expected ok=false for plain error")
	}
}

func TestGetConstraint(t *testing.T) {
	constraint, ok := GetConstraint(&Error{Code: CodeDuplicate, Constraint: "orders_sku_key"})
	if !ok {
		t.Error("expected ok=true")
	}
	if constraint != "orders_sku_key" {
		t.Errorf("expected orders_sku_key, got %s", constraint)
	}

	if _, ok := GetConstraint(&Error{Code: CodeNotFound}); ok {
		t.Error("expected ok=false when no constraint")
	}
}

func TestWithErr(t *testing.T) {
	qr := WithErr(42, nil, "Count")
	if qr.HasError() || qr.Err() != nil {
		t.Error("expected no error")
	}
	if qr.Result() != 42 {
		t.Errorf("expected 42, got %d", qr.Result())
	}

	qr = WithErr(0, sql.ErrNoRows, "Count")
	n, err := qr.Unwrap()
	if n != 0 || !IsNotFound(err) {
		t.Errorf("expected not found, got %d, %v", n, err)
	}

	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Op != "Count" {
		t.Errorf("expected op Count, got %v", err)
	}
}

func TestWithErr1(t *testing.T) {
	if err := WithErr1(nil, "FindByID").Err(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	qr := WithErr1(errors.New("scan failed"), "FindByID")
	if !qr.HasError() {
		t.Error("expected error")
	}

	var svcErr *Error
	if !errors.As(qr.Err(), &svcErr) {
		t.Fatal("expected error to be wrapped as *Error")
	}
	if svcErr.Op != "FindByID" {
		t.Errorf("expected Op FindByID, got %s", svcErr.Op)
	}
}
