package svckit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/svckit/hooks"
)

// TxState is the lifecycle state of a Guard
type TxState int32

const (
	TxActive TxState = iota
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("TxState(%d)", int32(s))
	}
}

// TxOptions configures transaction behavior
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// DefaultTxOptions returns default transaction options
func DefaultTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  false,
	}
}

// ReadOnlyTxOptions returns options for read-only transactions
func ReadOnlyTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  true,
	}
}

// SerializableTxOptions returns options for serializable transactions
func SerializableTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelSerializable,
		ReadOnly:  false,
	}
}

// TxFunc is a function executed within a guarded transaction
type TxFunc func(tx *Guard) error

// Guard owns a database transaction and the pooled connection it runs on.
//
// A Guard moves from TxActive to exactly one of TxCommitted or TxRolledBack,
// and returns its connection to the pool at that moment. Callers must
// Release it on every path, usually with defer:
//
//	g, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer g.Release() // rolls back unless committed
//
//	// ... queries through g ...
//
//	return g.Commit()
//
// A Guard is not safe to share between goroutines that issue queries
// concurrently; hand it to one owner at a time.
type Guard struct {
	st      *txState
	cleanup runtime.Cleanup
}

// txState is the part of a Guard reachable from its leak cleanup.
// It must never reference the Guard itself.
type txState struct {
	mu    sync.Mutex
	state TxState

	conn bun.Conn
	tx   bun.Tx

	ctx    context.Context
	event  hooks.TxEvent
	hooks  []hooks.TxHook
	active *atomic.Int64

	savepointSeq atomic.Int64
}

// Acquire starts a transaction with default options
func (p *Pool) Acquire(ctx context.Context) (*Guard, error) {
	return p.AcquireWithOptions(ctx, DefaultTxOptions())
}

// AcquireWithOptions checks out a dedicated connection and begins a
// transaction on it. It blocks while the pool is exhausted, until ctx is
// done or Config.AcquireTimeout elapses.
//
// Do not call Acquire, or anything that acquires from the same pool, while
// holding an active Guard: with a bounded pool the second call can wait
// forever for the connection the first Guard holds.
//
// If ctx is cancelled while the transaction is active, database/sql rolls it
// back and the Guard reports TxRolledBack when released.
func (p *Pool) AcquireWithOptions(ctx context.Context, opts TxOptions) (*Guard, error) {
	acquireCtx := ctx
	if p.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.config.AcquireTimeout)
		defer cancel()
	}

	conn, err := p.DB.Conn(acquireCtx)
	if err != nil {
		return nil, acquireError(err)
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.Isolation,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		_ = conn.Close()
		return nil, acquireError(err)
	}

	st := &txState{
		state: TxActive,
		conn:  conn,
		tx:    tx,
		ctx:   ctx,
		event: hooks.TxEvent{
			ID:        uuid.NewString(),
			ReadOnly:  opts.ReadOnly,
			StartTime: time.Now(),
		},
		hooks:  p.txHooks,
		active: &p.active,
	}
	for _, h := range st.hooks {
		st.ctx = h.BeforeTx(st.ctx, &st.event)
	}
	p.active.Add(1)

	g := &Guard{st: st}
	g.cleanup = runtime.AddCleanup(g, (*txState).reclaim, st)
	return g, nil
}

func acquireError(err error) error {
	return &Error{
		Code:    CodeAcquireFailed,
		Message: "failed to acquire transaction",
		Op:      "Acquire",
		Cause:   err,
	}
}

// WithTx runs fn in a guarded transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
func (p *Pool) WithTx(ctx context.Context, fn TxFunc) error {
	return p.WithTxOptions(ctx, DefaultTxOptions(), fn)
}

// WithTxOptions is WithTx with custom options
func (p *Pool) WithTxOptions(ctx context.Context, opts TxOptions, fn TxFunc) error {
	g, err := p.AcquireWithOptions(ctx, opts)
	if err != nil {
		return err
	}
	defer g.Release()

	if err := fn(g); err != nil {
		return err
	}

	// fn may have finalized the guard itself
	if g.State() != TxActive {
		return nil
	}
	return g.Commit()
}

// ReadOnlyTx runs fn within a read-only transaction
func (p *Pool) ReadOnlyTx(ctx context.Context, fn TxFunc) error {
	return p.WithTxOptions(ctx, ReadOnlyTxOptions(), fn)
}

// ID returns the opaque identifier of the transaction, for diagnostics
func (g *Guard) ID() string {
	return g.st.event.ID
}

// State returns the current lifecycle state
func (g *Guard) State() TxState {
	g.st.mu.Lock()
	defer g.st.mu.Unlock()
	return g.st.state
}

// Commit commits the transaction. A second call, or a call after Rollback,
// fails with ErrTxFinalized without touching the connection. If the commit
// itself fails the transaction is considered rolled back.
func (g *Guard) Commit() error {
	g.cleanup.Stop()

	st := g.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state != TxActive {
		return finalizedError("Commit", st.state)
	}

	if err := st.tx.Commit(); err != nil {
		werr := wrapError(err, "Commit")
		st.finishLocked(TxRolledBack, hooks.OutcomeCommitFailed, werr, false)
		return werr
	}

	st.finishLocked(TxCommitted, hooks.OutcomeCommitted, nil, false)
	return nil
}

// Rollback aborts the transaction. Unlike Release, a failed rollback is
// returned; the guard is finalized either way.
func (g *Guard) Rollback() error {
	g.cleanup.Stop()

	st := g.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state != TxActive {
		return finalizedError("Rollback", st.state)
	}
	return st.rollbackLocked(false)
}

// Release is the finalizer. It rolls back a transaction that was neither
// committed nor rolled back, and does nothing otherwise. Rollback failures
// are reported to the transaction hooks and never returned or raised.
// Release is safe to call any number of times.
func (g *Guard) Release() {
	g.cleanup.Stop()

	st := g.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state != TxActive {
		return
	}
	_ = st.rollbackLocked(false)
}

// reclaim runs when an active Guard became unreachable without Release
func (st *txState) reclaim() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state != TxActive {
		return
	}
	_ = st.rollbackLocked(true)
}

func (st *txState) rollbackLocked(leaked bool) error {
	err := st.tx.Rollback()
	// ErrTxDone means database/sql already rolled back after ctx was cancelled
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		werr := wrapError(err, "Rollback")
		st.finishLocked(TxRolledBack, hooks.OutcomeRollbackFailed, werr, leaked)
		return werr
	}
	st.finishLocked(TxRolledBack, hooks.OutcomeRolledBack, nil, leaked)
	return nil
}

// finishLocked records the terminal state, returns the connection to the
// pool and notifies hooks in reverse order.
func (st *txState) finishLocked(state TxState, outcome hooks.TxOutcome, err error, leaked bool) {
	st.state = state
	_ = st.conn.Close()
	st.active.Add(-1)

	st.event.Outcome = outcome
	st.event.Err = err
	st.event.Leaked = leaked
	for i := len(st.hooks) - 1; i >= 0; i-- {
		st.hooks[i].AfterTx(st.ctx, &st.event)
	}
}

func finalizedError(op string, state TxState) error {
	return &Error{
		Code:    CodeTxFinalized,
		Message: "transaction already " + state.String(),
		Op:      op,
	}
}

// live returns the transaction if the guard is still active
func (g *Guard) live(op string) (bun.Tx, error) {
	g.st.mu.Lock()
	defer g.st.mu.Unlock()

	if g.st.state != TxActive {
		return bun.Tx{}, finalizedError(op, g.st.state)
	}
	return g.st.tx, nil
}

func (g *Guard) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	tx, err := g.live(op)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, op)
	}
	return res, nil
}

// ExecContext executes a query without returning rows
func (g *Guard) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return g.exec(ctx, "Exec", query, args...)
}

// QueryContext executes a query that returns rows
func (g *Guard) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	tx, err := g.live("Query")
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "Query")
	}
	return rows, nil
}

// QueryRowContext executes a query that returns at most one row. On a
// finalized guard the row's Scan reports sql.ErrTxDone, which IsTxFinalized
// recognizes.
func (g *Guard) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return g.st.tx.QueryRowContext(ctx, query, args...)
}

// NewSelect starts a SELECT query bound to the transaction.
// Queries built from a finalized guard fail with sql.ErrTxDone when run.
func (g *Guard) NewSelect() *bun.SelectQuery {
	return g.st.tx.NewSelect()
}

// NewInsert starts an INSERT query bound to the transaction
func (g *Guard) NewInsert() *bun.InsertQuery {
	return g.st.tx.NewInsert()
}

// NewUpdate starts an UPDATE query bound to the transaction
func (g *Guard) NewUpdate() *bun.UpdateQuery {
	return g.st.tx.NewUpdate()
}

// NewDelete starts a DELETE query bound to the transaction
func (g *Guard) NewDelete() *bun.DeleteQuery {
	return g.st.tx.NewDelete()
}

// NewRaw starts a raw query bound to the transaction
func (g *Guard) NewRaw(query string, args ...any) *bun.RawQuery {
	return g.st.tx.NewRaw(query, args...)
}

// Nested runs fn inside a savepoint. An error or panic from fn rolls back to
// the savepoint only; the outer transaction stays active.
func (g *Guard) Nested(ctx context.Context, fn TxFunc) error {
	savepoint := fmt.Sprintf("sp_%d", g.st.savepointSeq.Add(1))

	if _, err := g.exec(ctx, "Nested.Savepoint", "SAVEPOINT "+savepoint); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_, _ = g.exec(ctx, "Nested.RollbackTo", "ROLLBACK TO SAVEPOINT "+savepoint)
			panic(p)
		}
	}()

	if err := fn(g); err != nil {
		if _, rbErr := g.exec(ctx, "Nested.RollbackTo", "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return fmt.Errorf("svckit: savepoint rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	_, err := g.exec(ctx, "Nested.Release", "RELEASE SAVEPOINT "+savepoint)
	return err
}

// Savepoint creates a named savepoint for manual control. The name is
// quoted as an identifier.
func (g *Guard) Savepoint(ctx context.Context, name string) error {
	_, err := g.exec(ctx, "Savepoint", "SAVEPOINT ?", bun.Ident(name))
	return err
}

// RollbackTo rolls back to a named savepoint
func (g *Guard) RollbackTo(ctx context.Context, name string) error {
	_, err := g.exec(ctx, "RollbackTo", "ROLLBACK TO SAVEPOINT ?", bun.Ident(name))
	return err
}

// ReleaseSavepoint releases a named savepoint
func (g *Guard) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := g.exec(ctx, "ReleaseSavepoint", "RELEASE SAVEPOINT ?", bun.Ident(name))
	return err
}
