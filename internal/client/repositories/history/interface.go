package history

import (
	"context"

	"github.com/dmitrijs2005/mindwell/internal/client/models"
)

type Repository interface {
	Save(ctx context.Context, s *models.Submission) error
	UpdateStatus(ctx context.Context, jobID string, st *models.JobStatus) error
	Get(ctx context.Context, jobID string) (*models.Submission, error)
	List(ctx context.Context, limit int) ([]*models.Submission, error)
}
