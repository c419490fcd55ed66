package svckit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Migration is one forward-only schema change
type Migration struct {
	ID          string // Unique, applied in slice order
	Description string
	SQL         string
}

// MigrationResult reports what a Migrate call did
type MigrationResult struct {
	Applied   []AppliedMigration
	Skipped   []string // IDs already recorded
	TotalTime time.Duration
}

// AppliedMigration is a migration applied by this call
type AppliedMigration struct {
	ID       string
	Checksum string
	Duration time.Duration
}

// MigrationStatusEntry is the recorded state of a known migration
type MigrationStatusEntry struct {
	ID            string
	Description   string
	Applied       bool
	ChecksumMatch bool // only meaningful when Applied
}

const (
	migrationsDDL = `CREATE TABLE IF NOT EXISTS svckit_migrations (
    id VARCHAR(255) PRIMARY KEY,
    description TEXT,
    checksum VARCHAR(64) NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    duration_ms BIGINT NOT NULL
)`

	// Arbitrary key shared by every process migrating the same database
	migrationLock = "SELECT pg_advisory_xact_lock(7305672336845076252)"
)

type migrationRow struct {
	ID       string `bun:"id"`
	Checksum string `bun:"checksum"`
}

// Migrate applies the migrations not yet recorded, in order. Everything runs
// in a single guarded transaction holding an advisory lock, so concurrent
// callers serialize and a failing migration leaves the schema untouched.
// An already applied migration whose SQL changed is an error.
func (p *Pool) Migrate(ctx context.Context, migrations []Migration) (*MigrationResult, error) {
	if err := checkMigrations(migrations); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &MigrationResult{}
	err := p.WithTx(ctx, func(tx *Guard) error {
		if _, err := tx.ExecContext(ctx, migrationLock); err != nil {
			return wrapError(err, "Migrate.Lock")
		}
		applied, err := appliedMigrations(ctx, tx)
		if err != nil {
			return err
		}

		for _, m := range migrations {
			checksum := checksumSQL(m.SQL)
			if existing, ok := applied[m.ID]; ok {
				if existing != checksum {
					return &Error{
						Code:    CodeUnknown,
						Message: fmt.Sprintf("migration %s has changed since it was applied", m.ID),
						Op:      "Migrate",
					}
				}
				result.Skipped = append(result.Skipped, m.ID)
				continue
			}

			began := time.Now()
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				code, ok := GetErrorCode(err)
				if !ok {
					code = CodeUnknown
				}
				return &Error{
					Code:    code,
					Message: fmt.Sprintf("migration %s failed", m.ID),
					Op:      "Migrate.Apply",
					Cause:   err,
				}
			}
			took := time.Since(began)

			if _, err := tx.NewRaw(
				"INSERT INTO svckit_migrations (id, description, checksum, duration_ms) VALUES (?, ?, ?, ?)",
				m.ID, m.Description, checksum, took.Milliseconds(),
			).Exec(ctx); err != nil {
				return wrapError(err, "Migrate.Record")
			}
			result.Applied = append(result.Applied, AppliedMigration{ID: m.ID, Checksum: checksum, Duration: took})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.TotalTime = time.Since(start)
	for _, m := range result.Applied {
		p.config.Logger.Info("migration applied", "id", m.ID, "duration", m.Duration)
	}
	return result, nil
}

// MigrationStatus compares migrations with what the database has recorded
func (p *Pool) MigrationStatus(ctx context.Context, migrations []Migration) ([]MigrationStatusEntry, error) {
	var applied map[string]string
	err := p.WithTx(ctx, func(tx *Guard) error {
		var err error
		applied, err = appliedMigrations(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]MigrationStatusEntry, 0, len(migrations))
	for _, m := range migrations {
		entry := MigrationStatusEntry{ID: m.ID, Description: m.Description}
		if checksum, ok := applied[m.ID]; ok {
			entry.Applied = true
			entry.ChecksumMatch = checksum == checksumSQL(m.SQL)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func checkMigrations(migrations []Migration) error {
	seen := make(map[string]bool, len(migrations))
	for i, m := range migrations {
		var msg string
		switch {
		case m.ID == "":
			msg = fmt.Sprintf("migration %d has no ID", i)
		case m.SQL == "":
			msg = fmt.Sprintf("migration %s has no SQL", m.ID)
		case seen[m.ID]:
			msg = fmt.Sprintf("migration %s is listed twice", m.ID)
		}
		if msg != "" {
			return &Error{Code: CodeInvalidConfig, Message: msg, Op: "Migrate"}
		}
		seen[m.ID] = true
	}
	return nil
}

// appliedMigrations returns recorded checksums by migration ID, creating
// the bookkeeping table if needed
func appliedMigrations(ctx context.Context, tx *Guard) (map[string]string, error) {
	if _, err := tx.ExecContext(ctx, migrationsDDL); err != nil {
		return nil, wrapError(err, "Migrate.Init")
	}

	var rows []migrationRow
	if err := tx.NewSelect().
		TableExpr("svckit_migrations").
		Column("id", "checksum").
		Scan(ctx, &rows); err != nil {
		return nil, wrapError(err, "Migrate.Applied")
	}

	applied := make(map[string]string, len(rows))
	for _, row := range rows {
		applied[row.ID] = row.Checksum
	}
	return applied, nil
}

func checksumSQL(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}
