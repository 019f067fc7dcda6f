// package repositories provides persistence layer implementations for all model types.
//
// Each repository is bound to a [DBTX]: the shared *sql.DB, or a *sql.Tx obtained from [RunInTx].
// WithDB rebinds a repository so that several of them write inside one transaction.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/bilisync/internal/shared"
)

// batchSize bounds the rows written or matched per statement, keeping well under SQLite's variable limit.
const batchSize = 200

// DBTX is the query surface shared by [sql.DB] and [sql.Tx].
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunInTx runs fn inside a single transaction.
//
// The transaction commits when fn returns nil and rolls back when fn returns an error or panics;
// a panic is re-raised after the rollback. Errors returned by fn are passed through unchanged.
func RunInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("failed to begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dbError("failed to commit transaction", err)
	}
	committed = true
	return nil
}

// inTx runs fn in q's transaction when q already is one, and in a fresh transaction otherwise.
func inTx(ctx context.Context, q DBTX, fn func(DBTX) error) error {
	switch q := q.(type) {
	case *sql.Tx:
		return fn(q)
	case *sql.DB:
		return RunInTx(ctx, q, func(tx *sql.Tx) error { return fn(tx) })
	default:
		return fn(q)
	}
}

// dbError wraps a storage failure so it matches both [shared.ErrDatabase] and the driver error.
func dbError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrDatabase, action, err)
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// valueRows returns rows tuples of width columns, e.g. "(?, ?), (?, ?)".
func valueRows(rows, width int) string {
	tuple := "(" + placeholders(width) + ")"
	parts := make([]string, rows)
	for i := range parts {
		parts[i] = tuple
	}
	return strings.Join(parts, ", ")
}

// chunk splits items into consecutive slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
