// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mindwell/internal/dbx"
	"github.com/dmitrijs2005/mindwell/internal/server/migrations"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/checkins"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/jobs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Jobs returns a jobs.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Jobs(db dbx.DBTX) jobs.Repository {
	return jobs.NewPostgresRepository(db)
}

// CheckIns returns a checkins.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) CheckIns(db dbx.DBTX) checkins.Repository {
	return checkins.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
