package services

import (
	"context"

	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/events"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
)

// StatusCache is a read-through store of the latest job snapshot.
// Get returns common.ErrorNotFound on a miss. Set records a transition and
// never regresses a snapshot; Fill only populates a missing entry.
type StatusCache interface {
	Get(ctx context.Context, jobID string) (*models.JobView, error)
	Set(ctx context.Context, v models.JobView) error
	Fill(ctx context.Context, v models.JobView) error
	Delete(ctx context.Context, jobID string) error
}

// Notifier propagates every persisted job transition to the status cache
// and the event broker. Both are optional and failures are only logged:
// Postgres stays the source of truth.
type Notifier struct {
	cache  StatusCache
	broker events.Broker
	logger logging.Logger
}

func NewNotifier(cache StatusCache, broker events.Broker, logger logging.Logger) *Notifier {
	return &Notifier{cache: cache, broker: broker, logger: logger.With("module", "notifier")}
}

func (n *Notifier) Publish(ctx context.Context, job *models.Job) {
	if n == nil {
		return
	}
	v := job.View()
	if n.cache != nil {
		if err := n.cache.Set(ctx, v); err != nil {
			n.logger.Warn(ctx, "status cache write failed", "job_id", job.ID, "error", err)
		}
	}
	if n.broker != nil {
		if err := n.broker.Publish(ctx, v); err != nil {
			n.logger.Warn(ctx, "status broadcast failed", "job_id", job.ID, "error", err)
		}
	}
}

// Forget evicts a deleted job from the status cache.
func (n *Notifier) Forget(ctx context.Context, jobID string) {
	if n == nil || n.cache == nil {
		return
	}
	if err := n.cache.Delete(ctx, jobID); err != nil {
		n.logger.Warn(ctx, "status cache eviction failed", "job_id", jobID, "error", err)
	}
}
