package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/client/models"
	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Save upserts a submission by job id.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Submission) error {
	now := r.now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `INSERT INTO submissions (job_id, user_id, duration, has_audio, status, progress,
			result_id, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET status = excluded.status,
			progress = excluded.progress,
			result_id = excluded.result_id,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.JobID, s.UserID, s.DurationSeconds, s.HasAudio, string(s.Status), s.Progress,
		s.ResultID, s.ErrorMessage, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// UpdateStatus stores the latest sample for jobID. Rows that already reached
// a terminal status are left untouched.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, jobID string, st *models.JobStatus) error {
	query := `UPDATE submissions SET status = ?, progress = ?, result_id = ?, error_message = ?, updated_at = ?
		WHERE job_id = ? AND status NOT IN (?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		string(st.Status), st.Progress, st.ResultID, st.ErrorMessage, r.now().UTC(),
		jobID, string(common.StatusCompleted), string(common.StatusError))
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, jobID); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, jobID string) (*models.Submission, error) {
	query := `SELECT job_id, user_id, duration, has_audio, status, progress, result_id, error_message,
			created_at, updated_at
		FROM submissions WHERE job_id = ?`

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if err = dbx.NotFound(err); errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

// List returns up to limit submissions, newest first. limit <= 0 means no limit.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*models.Submission, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT job_id, user_id, duration, has_audio, status, progress, result_id, error_message,
			created_at, updated_at
		FROM submissions ORDER BY created_at DESC, job_id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submission rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		s        models.Submission
		status   string
		resultID sql.NullInt64
		errMsg   sql.NullString
	)
	err := row.Scan(&s.JobID, &s.UserID, &s.DurationSeconds, &s.HasAudio, &status, &s.Progress,
		&resultID, &errMsg, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.Status = common.JobStatus(status)
	s.ResultID = dbx.Int64Ptr(resultID)
	s.ErrorMessage = dbx.StringPtr(errMsg)
	return &s, nil
}
