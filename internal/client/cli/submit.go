package cli

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/mindwell/internal/client/models"
	"github.com/dmitrijs2005/mindwell/internal/client/poller"
	"github.com/dmitrijs2005/mindwell/internal/client/recorder"
	"github.com/dmitrijs2005/mindwell/internal/client/uploader"
	"github.com/dmitrijs2005/mindwell/internal/common"
)

// Upload submits an existing audio file.
func (a *App) Upload(ctx context.Context, path string, durationSeconds int) error {
	s, err := (&recorder.FileDevice{Path: path}).Open(ctx)
	if err != nil {
		if errors.Is(err, common.ErrPermission) {
			return common.ValidationError("cannot read " + path)
		}
		return err
	}
	blob, err := io.ReadAll(s)
	_ = s.Close()
	if err != nil {
		return err
	}

	note, err := GetSimpleText(a.reader, "Add a note (optional)", a.out)
	if err != nil {
		return err
	}

	return a.submit(ctx, blob, uploader.Metadata{
		UserID:          a.config.UserID,
		DurationSeconds: durationSeconds,
		Text:            note,
		ContentType:     a.contentTypeFor(path),
		FileName:        filepath.Base(path),
	})
}

func (a *App) contentTypeFor(path string) string {
	ct := mime.TypeByExtension(filepath.Ext(path))
	if strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "video/webm") {
		return ct
	}
	return a.config.AudioContentType
}

// Text submits a check-in without audio.
func (a *App) Text(ctx context.Context) error {
	text, err := GetMultiline(a.reader, "How are you feeling today?", a.out)
	if err != nil {
		return err
	}
	mood, err := GetSimpleText(a.reader, "Mood (optional)", a.out)
	if err != nil {
		return err
	}

	return a.submit(ctx, nil, uploader.Metadata{
		UserID: a.config.UserID,
		Text:   text,
		Mood:   mood,
	})
}

func (a *App) submit(ctx context.Context, blob []byte, meta uploader.Metadata) error {
	h, err := a.uploader.Upload(ctx, blob, meta)
	if err != nil {
		return err
	}
	a.printf("Uploaded, job %s.\n", h.ID)

	err = a.history.Save(ctx, &models.Submission{
		JobID:           h.ID,
		UserID:          meta.UserID,
		DurationSeconds: meta.DurationSeconds,
		HasAudio:        len(blob) > 0,
		Status:          h.Status,
		Progress:        h.Progress,
	})
	if err != nil {
		a.logger.Warn(ctx, "cannot record submission", "job_id", h.ID, "error", err)
	}

	return a.follow(ctx, h.ID)
}

// Status resumes following a job.
func (a *App) Status(ctx context.Context, jobID string) error {
	return a.follow(ctx, jobID)
}

// follow polls jobID until it finishes, printing progress and keeping the
// local history current.
func (a *App) follow(ctx context.Context, jobID string) error {
	lastProgress := -1
	opts := append([]poller.Option{
		poller.OnProgress(func(st models.JobStatus) {
			if st.Progress != lastProgress {
				lastProgress = st.Progress
				a.printf("  %-12s %3d%%\n", st.Status, st.Progress)
			}
			a.recordStatus(ctx, jobID, &st)
		}),
		poller.OnComplete(func(resultID int64) {
			a.printf("Check-in #%d is ready. Use 'show %d' to read it.\n", resultID, resultID)
		}),
		poller.OnError(func(message string) {
			a.printf("Processing failed: %s\n", message)
		}),
	}, a.pollerOpts...)

	out, err := poller.New(a.api, a.logger, opts...).Run(ctx, jobID)
	if errors.Is(err, common.ErrCancelled) {
		a.printf("Stopped following job %s; run 'status %s' to resume.\n", jobID, jobID)
		return nil
	}
	if err != nil {
		return err
	}
	if out.State == poller.StateCompleted {
		return a.Show(ctx, out.ResultID)
	}
	return nil
}

func (a *App) recordStatus(ctx context.Context, jobID string, st *models.JobStatus) {
	err := a.history.UpdateStatus(ctx, jobID, st)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		a.logger.Warn(ctx, "cannot update submission", "job_id", jobID, "error", err)
	}
}
