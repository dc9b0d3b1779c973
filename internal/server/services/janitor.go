package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mindwell/internal/server/storage"
)

// Janitor periodically fails jobs nobody is working on anymore and removes
// old finished jobs. Check-in records are never touched, and neither is the
// audio they point at: only audio of failed jobs is deleted.
type Janitor struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.AudioStore
	notifier    *Notifier
	logger      logging.Logger

	// StaleAfter is how long a non-terminal job may go without an update.
	StaleAfter time.Duration
	Retention  time.Duration
	Interval   time.Duration

	now func() time.Time
}

func NewJanitor(db *sql.DB, rm repomanager.RepositoryManager, store storage.AudioStore, notifier *Notifier,
	logger logging.Logger, staleAfter, retention, interval time.Duration) *Janitor {
	return &Janitor{
		db:          db,
		repomanager: rm,
		store:       store,
		notifier:    notifier,
		logger:      logger.With("module", "janitor"),
		StaleAfter:  staleAfter,
		Retention:   retention,
		Interval:    interval,
		now:         time.Now,
	}
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		j.Sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep performs one housekeeping pass.
func (j *Janitor) Sweep(ctx context.Context) {
	repo := j.repomanager.Jobs(j.db)
	now := j.now()

	ids, err := repo.FailStale(ctx, now.Add(-j.StaleAfter), MsgAbandoned)
	if err != nil {
		j.logger.Error(ctx, "failing stale jobs", "error", err)
	}
	for _, id := range ids {
		j.logger.Warn(ctx, "job abandoned", "job_id", id)
		if job, err := repo.GetByID(ctx, id); err == nil {
			j.notifier.Publish(ctx, job)
		}
	}

	purged, err := repo.DeleteFinishedBefore(ctx, now.Add(-j.Retention))
	if err != nil {
		j.logger.Error(ctx, "deleting finished jobs", "error", err)
		return
	}
	for _, p := range purged {
		j.notifier.Forget(ctx, p.ID)
		if p.Status != common.StatusError || p.AudioURL == "" {
			continue
		}
		if err := j.store.Delete(ctx, p.AudioURL); err != nil {
			j.logger.Warn(ctx, "deleting audio of failed job", "job_id", p.ID, "key", p.AudioURL, "error", err)
		}
	}
	if len(purged) > 0 {
		j.logger.Info(ctx, "finished jobs purged", "count", len(purged))
	}
}
