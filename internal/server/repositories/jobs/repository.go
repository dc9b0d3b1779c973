// Package jobs persists processing jobs. Every mutation is guarded so that
// a job in a terminal state is never modified again.
package jobs

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
)

// Purged describes a job row removed by the retention sweep.
type Purged struct {
	ID       string
	Status   common.JobStatus
	AudioURL string
}

type Repository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	// Advance moves a non-terminal job to status/stage. Progress never decreases.
	// It returns common.ErrJobFinalized when the job is already terminal.
	Advance(ctx context.Context, id string, status common.JobStatus, stage string, progress int) (*models.Job, error)
	Complete(ctx context.Context, id string, resultEntryID int64) (*models.Job, error)
	Fail(ctx context.Context, id string, message string) (*models.Job, error)
	// FailStale fails every non-terminal job not updated since before and returns their ids.
	FailStale(ctx context.Context, before time.Time, message string) ([]string, error)
	// DeleteFinishedBefore removes terminal jobs finished before the given time
	// and returns what was removed.
	DeleteFinishedBefore(ctx context.Context, before time.Time) ([]Purged, error)
}
