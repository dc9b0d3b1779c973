// Package dbx holds the small database/sql abstractions shared by the
// server's postgres repositories and the client's sqlite history.
package dbx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/mindwell/internal/common"
)

// DBTX is the subset of database/sql used by repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// NotFound translates sql.ErrNoRows into common.ErrorNotFound and leaves
// every other error untouched.
func NotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return err
}

// NullString maps "" to NULL.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr is the inverse of NullString.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Int64Ptr converts a nullable integer column.
func Int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
