// Package hooks provides observability hooks for svckit pools and transaction guards
package hooks

import (
	"context"
	"time"
)

//go:generate mockgen -source=tx.go -destination=mocks/mocks.go -package=mocks TxHook

// TxOutcome is the terminal result of a guarded transaction
type TxOutcome string

const (
	OutcomeCommitted      TxOutcome = "committed"
	OutcomeCommitFailed   TxOutcome = "commit_failed"
	OutcomeRolledBack     TxOutcome = "rolled_back"
	OutcomeRollbackFailed TxOutcome = "rollback_failed"
)

// TxEvent describes one guarded transaction. The same event value is passed
// to BeforeTx and AfterTx; Outcome, Err and Leaked are set before AfterTx.
type TxEvent struct {
	ID        string
	ReadOnly  bool
	StartTime time.Time

	Outcome TxOutcome
	Err     error
	Leaked  bool // finalized by the garbage-collection cleanup, not by its owner
}

// Duration returns the time elapsed since the transaction started
func (e *TxEvent) Duration() time.Duration {
	return time.Since(e.StartTime)
}

// TxHook observes the lifecycle of guarded transactions.
// AfterTx is called exactly once per transaction.
type TxHook interface {
	BeforeTx(ctx context.Context, event *TxEvent) context.Context
	AfterTx(ctx context.Context, event *TxEvent)
}
