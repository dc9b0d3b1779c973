package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mindwell/internal/dbx"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/checkins"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/jobs"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Jobs(db dbx.DBTX) jobs.Repository
	CheckIns(db dbx.DBTX) checkins.Repository
}
