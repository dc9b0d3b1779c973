package checkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/dbx"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
)

const checkInColumns = `id, user_id, job_id, audio_url, duration_seconds, transcript, text, mood,
		 sentiment, sentiment_score, emotions, category, title, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.CheckIn) (*models.CheckIn, error) {
	emotions := c.Emotions
	if emotions == nil {
		emotions = []string{}
	}
	payload, err := json.Marshal(emotions)
	if err != nil {
		return nil, fmt.Errorf("encode emotions: %w", err)
	}

	query :=
		`INSERT INTO voice_checkins (user_id, job_id, audio_url, duration_seconds, transcript, text, mood,
		     sentiment, sentiment_score, emotions, category, title)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
		 RETURNING id, created_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		c.UserID, c.JobID, c.AudioURL, c.DurationSeconds, c.Transcript, c.Text, c.Mood,
		c.Sentiment, c.SentimentScore, string(payload), c.Category, c.Title,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM voice_checkins
		 WHERE id = $1
		 `

	c, err := scanCheckIn(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err = dbx.NotFound(err); errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM voice_checkins
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.CheckIn, 0)
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(row rowScanner) (*models.CheckIn, error) {
	var (
		c        models.CheckIn
		emotions []byte
	)

	err := row.Scan(&c.ID, &c.UserID, &c.JobID, &c.AudioURL, &c.DurationSeconds, &c.Transcript, &c.Text, &c.Mood,
		&c.Sentiment, &c.SentimentScore, &emotions, &c.Category, &c.Title, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Emotions = []string{}
	if len(emotions) > 0 {
		if err := json.Unmarshal(emotions, &c.Emotions); err != nil {
			return nil, fmt.Errorf("decode emotions: %w", err)
		}
	}
	return &c, nil
}
