package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/dbx"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
)

const jobColumns = `id, user_id, audio_url, audio_checksum, audio_type, duration_seconds, text, mood,
		 status, stage, progress, result_entry_id, error_message, created_at, updated_at, finished_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, job *models.Job) error {
	query :=
		`INSERT INTO processing_jobs (id, user_id, audio_url, audio_checksum, audio_type, duration_seconds, text, mood, status, stage, progress)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		job.ID, job.UserID, job.AudioURL, job.AudioChecksum, job.AudioType, job.DurationSeconds,
		job.Text, job.Mood, string(job.Status), job.Stage, job.Progress,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM processing_jobs
		 WHERE id = $1
		 `

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return job, nil
}

func (r *PostgresRepository) Advance(ctx context.Context, id string, status common.JobStatus, stage string, progress int) (*models.Job, error) {
	query :=
		`UPDATE processing_jobs
		 SET status = $2, stage = $3, progress = GREATEST(progress, $4), updated_at = now()
		 WHERE id = $1 AND status NOT IN ('completed', 'error')
		 RETURNING ` + jobColumns

	return r.update(ctx, query, id, string(status), stage, progress)
}

func (r *PostgresRepository) Complete(ctx context.Context, id string, resultEntryID int64) (*models.Job, error) {
	query :=
		`UPDATE processing_jobs
		 SET status = 'completed', stage = 'completed', progress = 100, result_entry_id = $2,
		     error_message = NULL, updated_at = now(), finished_at = now()
		 WHERE id = $1 AND status NOT IN ('completed', 'error')
		 RETURNING ` + jobColumns

	return r.update(ctx, query, id, resultEntryID)
}

func (r *PostgresRepository) Fail(ctx context.Context, id string, message string) (*models.Job, error) {
	query :=
		`UPDATE processing_jobs
		 SET status = 'error', stage = 'error', error_message = $2, result_entry_id = NULL,
		     updated_at = now(), finished_at = now()
		 WHERE id = $1 AND status NOT IN ('completed', 'error')
		 RETURNING ` + jobColumns

	return r.update(ctx, query, id, message)
}

func (r *PostgresRepository) update(ctx context.Context, query string, args ...any) (*models.Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrJobFinalized
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return job, nil
}

func (r *PostgresRepository) FailStale(ctx context.Context, before time.Time, message string) ([]string, error) {
	query :=
		`UPDATE processing_jobs
		 SET status = 'error', stage = 'error', error_message = $2, updated_at = now(), finished_at = now()
		 WHERE status NOT IN ('completed', 'error') AND updated_at < $1
		 RETURNING id
		 `

	rows, err := r.db.QueryContext(ctx, query, before, message)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) DeleteFinishedBefore(ctx context.Context, before time.Time) ([]Purged, error) {
	query :=
		`DELETE FROM processing_jobs
		 WHERE status IN ('completed', 'error') AND finished_at < $1
		 RETURNING id, status, audio_url
		 `

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var purged []Purged
	for rows.Next() {
		var (
			p      Purged
			status string
		)
		if err := rows.Scan(&p.ID, &status, &p.AudioURL); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.Status = common.JobStatus(status)
		purged = append(purged, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return purged, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job        models.Job
		status     string
		resultID   sql.NullInt64
		errMessage sql.NullString
		finishedAt sql.NullTime
	)

	err := row.Scan(&job.ID, &job.UserID, &job.AudioURL, &job.AudioChecksum, &job.AudioType,
		&job.DurationSeconds, &job.Text, &job.Mood, &status, &job.Stage, &job.Progress,
		&resultID, &errMessage, &job.CreatedAt, &job.UpdatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	job.Status = common.JobStatus(status)
	job.ResultEntryID = dbx.Int64Ptr(resultID)
	job.ErrorMessage = dbx.StringPtr(errMessage)
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	return &job, nil
}
