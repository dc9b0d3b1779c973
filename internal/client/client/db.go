package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mindwell/internal/client/migrations"
	"github.com/dmitrijs2005/mindwell/internal/client/repositories/history"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	History history.Repository
	DB      *sql.DB
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the sqlite file at dsn and brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		History: history.NewSQLiteRepository(db),
		DB:      db,
	}, nil
}
