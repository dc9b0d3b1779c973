// Package checkins persists finished voice check-ins.
package checkins

import (
	"context"

	"github.com/dmitrijs2005/mindwell/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.CheckIn) (*models.CheckIn, error)
	GetByID(ctx context.Context, id int64) (*models.CheckIn, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error)
}
