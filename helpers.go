package svckit

import (
	"context"

	"github.com/uptrace/bun"
)

// Generic helpers over IDB. They accept a Pool or a Guard and always return
// classified errors, so a query run on a finalized guard reports
// ErrTxFinalized instead of a bare sql.ErrTxDone.

// FindByID loads the record whose id column equals id
func FindByID[T any](ctx context.Context, db IDB, id any) (*T, error) {
	model := new(T)
	if err := db.NewSelect().Model(model).Where("?TableAlias.id = ?", id).Scan(ctx); err != nil {
		return nil, wrapError(err, "FindByID")
	}
	return model, nil
}

// FindOne loads the first record matching query
func FindOne[T any](ctx context.Context, db IDB, query func(q *bun.SelectQuery) *bun.SelectQuery) (*T, error) {
	model := new(T)
	q := db.NewSelect().Model(model)
	if query != nil {
		q = query(q)
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		return nil, wrapError(err, "FindOne")
	}
	return model, nil
}

// Create inserts model, scanning database defaults back into it
func Create[T any](ctx context.Context, db IDB, model *T) error {
	_, err := db.NewInsert().Model(model).Returning("*").Exec(ctx)
	return wrapError(err, "Create")
}

// UpdateColumns updates the given columns of model by primary key.
// It returns ErrNotFound when no row matched.
func UpdateColumns[T any](ctx context.Context, db IDB, model *T, columns ...string) error {
	res, err := db.NewUpdate().Model(model).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		return wrapError(err, "UpdateColumns")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &Error{Code: CodeNotFound, Message: "record not found", Op: "UpdateColumns"}
	}
	return nil
}

// DeleteByID deletes the record whose id column equals id.
// It returns ErrNotFound when no row matched.
func DeleteByID[T any](ctx context.Context, db IDB, id any) error {
	res, err := db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return wrapError(err, "DeleteByID")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &Error{Code: CodeNotFound, Message: "record not found", Op: "DeleteByID"}
	}
	return nil
}

// Exists reports whether any record matches query
func Exists[T any](ctx context.Context, db IDB, query func(q *bun.SelectQuery) *bun.SelectQuery) (bool, error) {
	q := db.NewSelect().Model((*T)(nil))
	if query != nil {
		q = query(q)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return false, wrapError(err, "Exists")
	}
	return exists, nil
}

// Exec runs a statement and returns the number of affected rows
func Exec(ctx context.Context, db IDB, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapError(err, "Exec")
	}
	n, err := res.RowsAffected()
	return n, wrapError(err, "Exec")
}

// DefaultBatchSize is the number of rows per statement in BatchUpsert
const DefaultBatchSize = 100

// BatchUpsert inserts items in statements of batchSize rows. Rows that
// conflict on conflictColumns are updated with the set expressions instead
// (for example "qty = ?TableAlias.qty + EXCLUDED.qty"). It returns the
// number of rows written before any failure.
func BatchUpsert[T any](ctx context.Context, db IDB, items []T, conflictColumns string, set []string, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total int64
	for start := 0; start < len(items); start += batchSize {
		batch := items[start:min(start+batchSize, len(items))]

		q := db.NewInsert().Model(&batch)
		if len(set) == 0 {
			q = q.On("CONFLICT (" + conflictColumns + ") DO NOTHING")
		} else {
			q = q.On("CONFLICT (" + conflictColumns + ") DO UPDATE")
			for _, expr := range set {
				q = q.Set(expr)
			}
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return total, wrapError(err, "BatchUpsert")
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
