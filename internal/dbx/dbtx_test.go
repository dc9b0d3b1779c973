package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS jobs (id TEXT PRIMARY KEY, status TEXT NOT NULL);`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO jobs(id, status) VALUES ('job-1', 'pending')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, db), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO jobs(id, status) VALUES ('job-2', 'pending')`)
		require.NoError(t, e)
		return errors.New("advance failed")
	})
	require.Error(t, err)

	require.Equal(t, 0, countRows(t, db), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countRows(t, db), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO jobs(id, status) VALUES ('job-3', 'pending')`)
		require.NoError(t, e)
		panic("stage crashed")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
}

func TestNotFound(t *testing.T) {
	require.ErrorIs(t, NotFound(sql.ErrNoRows), common.ErrorNotFound)
	require.ErrorIs(t, NotFound(fmt.Errorf("scan: %w", sql.ErrNoRows)), common.ErrorNotFound)

	other := errors.New("conn reset")
	require.Equal(t, other, NotFound(other))
	require.NoError(t, NotFound(nil))
}

func TestNullableHelpers(t *testing.T) {
	msg := "boom"
	require.Equal(t, sql.NullString{String: "boom", Valid: true}, NullString(&msg))
	require.False(t, NullString(nil).Valid)

	require.Nil(t, StringPtr(sql.NullString{}))
	require.Equal(t, "x", *StringPtr(sql.NullString{String: "x", Valid: true}))

	require.Nil(t, Int64Ptr(sql.NullInt64{}))
	require.Equal(t, int64(42), *Int64Ptr(sql.NullInt64{Int64: 42, Valid: true}))
}
