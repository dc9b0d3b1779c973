// Package services contains the server-side business logic: accepting
// check-in submissions, running the processing pipeline, answering status
// queries and housekeeping of old jobs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/dbx"
	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mindwell/internal/server/storage"
)

// Failure messages stored on jobs.
const (
	MsgAudioUnavailable     = "uploaded audio could not be read"
	MsgTranscriptionFailed  = "transcription failed"
	MsgEmptyTranscript      = "no speech detected in the recording"
	MsgSentimentFailed      = "sentiment analysis failed"
	MsgCategorizationFailed = "categorization failed"
	MsgTitleFailed          = "title generation failed"
	MsgSaveFailed           = "could not save the check-in"
	MsgTimedOut             = "processing timed out"
	MsgAbandoned            = "processing abandoned"
	MsgDispatchFailed       = "could not schedule processing"
)

// finalizeTimeout bounds the writes that record a job's failure after its
// own context is already done.
const finalizeTimeout = 10 * time.Second

// Pipeline runs one job through transcription, analysis, categorization,
// title generation and persistence. Stages run strictly in order and the
// first failure ends the job; nothing is retried.
type Pipeline struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.AudioStore
	transcriber Transcriber
	analyzer    Analyzer
	notifier    *Notifier
	logger      logging.Logger
	jobTimeout  time.Duration
}

func NewPipeline(db *sql.DB, rm repomanager.RepositoryManager, store storage.AudioStore,
	transcriber Transcriber, analyzer Analyzer, notifier *Notifier, logger logging.Logger, jobTimeout time.Duration) *Pipeline {
	return &Pipeline{
		db:          db,
		repomanager: rm,
		store:       store,
		transcriber: transcriber,
		analyzer:    analyzer,
		notifier:    notifier,
		logger:      logger.With("module", "pipeline"),
		jobTimeout:  jobTimeout,
	}
}

// Run processes jobID to a terminal state. Processing failures are recorded
// on the job and also returned. A job that is already terminal is skipped,
// so redelivery is harmless. When ctx is cancelled (shutdown) the job is
// left as is for the janitor.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	logger := p.logger.With("job_id", jobID)

	job, err := p.repomanager.Jobs(p.db).GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Status.IsTerminal() {
		logger.Info(ctx, "job already finished, skipping", "status", job.Status)
		return nil
	}

	logger.Info(ctx, "processing started")
	started := time.Now()

	err = p.process(ctx, job)
	switch {
	case err == nil:
		logger.Info(ctx, "processing completed", "elapsed", time.Since(started))
		return nil
	case errors.Is(err, common.ErrJobFinalized):
		logger.Warn(ctx, "job finalized elsewhere, stopping")
		return nil
	case errors.Is(err, context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Warn(ctx, "processing interrupted", "error", err)
		return err
	}

	msg := failureMessage(ctx, err)
	logger.Error(ctx, "processing failed", "error", err, "message", msg)
	p.fail(ctx, jobID, msg)
	return err
}

func (p *Pipeline) process(ctx context.Context, job *models.Job) error {
	transcript := strings.TrimSpace(job.Text)

	if job.HasAudio() {
		rc, err := p.store.Open(ctx, job.AudioURL)
		if err != nil {
			return &common.StageError{Stage: StageUploaded, Message: MsgAudioUnavailable, Err: err}
		}
		defer rc.Close()

		if err := p.advance(ctx, job, StageTranscribing); err != nil {
			return err
		}

		text, err := p.transcriber.Transcribe(ctx, rc, path.Base(job.AudioURL), job.AudioType)
		if err != nil {
			return common.NewProviderError(StageTranscribing, MsgTranscriptionFailed, err)
		}
		transcript = strings.TrimSpace(text)
		if transcript == "" {
			return &common.StageError{Stage: StageTranscribing, Message: MsgEmptyTranscript}
		}
	}

	if err := p.advance(ctx, job, StageAnalyzing); err != nil {
		return err
	}
	sentiment, err := p.analyzer.AnalyzeSentiment(ctx, transcript)
	if err != nil {
		return common.NewProviderError(StageAnalyzing, MsgSentimentFailed, err)
	}

	if err := p.advance(ctx, job, StageCategorizing); err != nil {
		return err
	}
	category, err := p.analyzer.Categorize(ctx, transcript)
	if err != nil {
		return common.NewProviderError(StageCategorizing, MsgCategorizationFailed, err)
	}

	if err := p.advance(ctx, job, StageGeneratingTitle); err != nil {
		return err
	}
	title, err := p.analyzer.GenerateTitle(ctx, transcript)
	if err != nil {
		return common.NewProviderError(StageGeneratingTitle, MsgTitleFailed, err)
	}

	if err := p.advance(ctx, job, StageSaving); err != nil {
		return err
	}

	checkIn := &models.CheckIn{
		UserID:          job.UserID,
		JobID:           job.ID,
		AudioURL:        job.AudioURL,
		DurationSeconds: job.DurationSeconds,
		Transcript:      transcript,
		Text:            job.Text,
		Mood:            job.Mood,
		Sentiment:       sentiment.Label,
		SentimentScore:  sentiment.Score,
		Emotions:        sentiment.Emotions,
		Category:        category,
		Title:           title,
	}

	var completed *models.Job
	err = dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		saved, err := p.repomanager.CheckIns(tx).Create(ctx, checkIn)
		if err != nil {
			return err
		}
		completed, err = p.repomanager.Jobs(tx).Complete(ctx, job.ID, saved.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrJobFinalized) {
			return err
		}
		return &common.StageError{Stage: StageSaving, Message: MsgSaveFailed, Err: err}
	}

	*job = *completed
	p.notifier.Publish(ctx, job)
	return nil
}

func (p *Pipeline) advance(ctx context.Context, job *models.Job, stage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	status, progress, ok := StageStatus(stage)
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}

	updated, err := p.repomanager.Jobs(p.db).Advance(ctx, job.ID, status, stage, progress)
	if err != nil {
		return err
	}
	*job = *updated
	p.notifier.Publish(ctx, job)
	p.logger.Debug(ctx, "stage entered", "job_id", job.ID, "stage", stage, "progress", job.Progress)
	return nil
}

// fail records msg on the job. It uses a fresh context because ctx may be
// the one that just timed out.
func (p *Pipeline) fail(ctx context.Context, jobID, msg string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	job, err := p.repomanager.Jobs(p.db).Fail(fctx, jobID, msg)
	if err != nil {
		if !errors.Is(err, common.ErrJobFinalized) {
			p.logger.Error(fctx, "could not record job failure", "job_id", jobID, "error", err)
		}
		return
	}
	p.notifier.Publish(fctx, job)
}

// failureMessage picks the user-visible message for err.
func failureMessage(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return MsgTimedOut
	}
	var se *common.StageError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return common.FallbackErrorMessage
}
