package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mindwell/internal/server/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Submission is one upload from the client: audio, free text, or both.
type Submission struct {
	UserID          int64
	Audio           []byte
	ContentType     string
	DurationSeconds int
	Text            string
	Mood            string
}

// CheckInService accepts submissions and answers status and read queries.
type CheckInService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.AudioStore
	dispatcher  Dispatcher
	notifier    *Notifier
	cache       StatusCache
	logger      logging.Logger
	presignTTL  time.Duration
	maxAudio    int64
}

type CheckInServiceOptions struct {
	Cache      StatusCache
	PresignTTL time.Duration
	MaxAudio   int64
}

func NewCheckInService(db *sql.DB, rm repomanager.RepositoryManager, store storage.AudioStore,
	dispatcher Dispatcher, notifier *Notifier, logger logging.Logger, opts CheckInServiceOptions) *CheckInService {
	return &CheckInService{
		db:          db,
		repomanager: rm,
		store:       store,
		dispatcher:  dispatcher,
		notifier:    notifier,
		cache:       opts.Cache,
		logger:      logger.With("module", "checkins"),
		presignTTL:  opts.PresignTTL,
		maxAudio:    opts.MaxAudio,
	}
}

func (s *CheckInService) validate(sub *Submission) error {
	if sub.UserID <= 0 {
		return common.ValidationError("userId must be a positive integer")
	}
	if len(sub.Audio) == 0 && strings.TrimSpace(sub.Text) == "" {
		return common.ValidationError("audio or text is required")
	}
	if sub.DurationSeconds < 0 {
		return common.ValidationError("duration must not be negative")
	}
	if s.maxAudio > 0 && int64(len(sub.Audio)) > s.maxAudio {
		return fmt.Errorf("%w: audio exceeds %d bytes", common.ErrTooLarge, s.maxAudio)
	}
	return nil
}

// Submit stores the audio, records a pending job and schedules it. It returns
// as soon as the job exists; processing failures never surface here.
func (s *CheckInService) Submit(ctx context.Context, sub Submission) (*models.JobView, error) {
	if err := s.validate(&sub); err != nil {
		return nil, err
	}

	job := &models.Job{
		ID:              uuid.NewString(),
		UserID:          sub.UserID,
		DurationSeconds: sub.DurationSeconds,
		Text:            sub.Text,
		Mood:            sub.Mood,
		Status:          common.StatusPending,
		Stage:           StageUploaded,
		Progress:        0,
	}

	if len(sub.Audio) > 0 {
		sum := blake2b.Sum256(sub.Audio)
		job.AudioChecksum = hex.EncodeToString(sum[:])
		job.AudioType = sub.ContentType
		job.AudioURL = storage.NewKey(sub.ContentType)

		if err := s.store.Put(ctx, job.AudioURL, bytes.NewReader(sub.Audio), int64(len(sub.Audio)), sub.ContentType); err != nil {
			return nil, fmt.Errorf("store audio: %w", err)
		}
	}

	if err := s.repomanager.Jobs(s.db).Create(ctx, job); err != nil {
		if job.HasAudio() {
			if derr := s.store.Delete(context.WithoutCancel(ctx), job.AudioURL); derr != nil {
				s.logger.Warn(ctx, "orphaned audio left in storage", "key", job.AudioURL, "error", derr)
			}
		}
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.notifier.Publish(ctx, job)

	s.logger.Info(ctx, "check-in submitted", "job_id", job.ID, "user_id", job.UserID,
		"audio_bytes", len(sub.Audio), "has_text", strings.TrimSpace(sub.Text) != "")

	if err := s.dispatcher.Dispatch(ctx, job.ID); err != nil {
		s.logger.Error(ctx, "dispatch failed", "job_id", job.ID, "error", err)
		failed, ferr := s.repomanager.Jobs(s.db).Fail(context.WithoutCancel(ctx), job.ID, MsgDispatchFailed)
		if ferr == nil {
			job = failed
			s.notifier.Publish(ctx, job)
		}
	}

	v := job.View()
	return &v, nil
}

// Status returns the current snapshot of a job. It never mutates anything.
func (s *CheckInService) Status(ctx context.Context, jobID string) (*models.JobView, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, common.ErrorNotFound
	}

	if s.cache != nil {
		v, err := s.cache.Get(ctx, jobID)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "status cache read failed", "job_id", jobID, "error", err)
		}
	}

	job, err := s.repomanager.Jobs(s.db).GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	v := job.View()

	if s.cache != nil {
		if err := s.cache.Fill(ctx, v); err != nil {
			s.logger.Warn(ctx, "status cache fill failed", "job_id", jobID, "error", err)
		}
	}
	return &v, nil
}

// JobOwner returns the user a job belongs to.
func (s *CheckInService) JobOwner(ctx context.Context, jobID string) (int64, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return 0, common.ErrorNotFound
	}
	job, err := s.repomanager.Jobs(s.db).GetByID(ctx, jobID)
	if err != nil {
		return 0, err
	}
	return job.UserID, nil
}

// Get returns a finished check-in. requester is the authenticated user, or
// 0 when authentication is disabled.
func (s *CheckInService) Get(ctx context.Context, id int64, requester int64) (*models.CheckIn, error) {
	c, err := s.repomanager.CheckIns(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requester != 0 && c.UserID != requester {
		return nil, common.ErrorForbidden
	}
	s.fillPlaybackURL(ctx, c)
	return c, nil
}

// List returns a user's check-ins, newest first.
func (s *CheckInService) List(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error) {
	if userID <= 0 {
		return nil, common.ValidationError("userId must be a positive integer")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := s.repomanager.CheckIns(s.db).ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		s.fillPlaybackURL(ctx, c)
	}
	return list, nil
}

// OpenAudio streams the stored recording of a check-in.
func (s *CheckInService) OpenAudio(ctx context.Context, id int64, requester int64) (io.ReadCloser, string, error) {
	c, err := s.repomanager.CheckIns(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if requester != 0 && c.UserID != requester {
		return nil, "", common.ErrorForbidden
	}
	if c.AudioURL == "" {
		return nil, "", common.ErrorNotFound
	}

	rc, err := s.store.Open(ctx, c.AudioURL)
	if err != nil {
		return nil, "", err
	}

	return rc, storage.ContentType(c.AudioURL), nil
}

func (s *CheckInService) fillPlaybackURL(ctx context.Context, c *models.CheckIn) {
	if c.AudioURL == "" {
		return
	}
	if p, ok := s.store.(storage.Presigner); ok {
		url, err := p.PresignGet(ctx, c.AudioURL, s.presignTTL)
		if err == nil {
			c.PlaybackURL = url
			return
		}
		s.logger.Warn(ctx, "presign failed, falling back to proxy url", "id", c.ID, "error", err)
	}
	c.PlaybackURL = fmt.Sprintf("/api/voice-checkins/%d/audio", c.ID)
}
