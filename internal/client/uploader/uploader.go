// Package uploader sends a finished recording, or a text-only note, to the
// MindWell API and returns the handle of the job the server created.
package uploader

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/mindwell/internal/client/client"
	"github.com/dmitrijs2005/mindwell/internal/client/models"
	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/logging"
)

// Submitter is the part of the API client the uploader needs.
type Submitter interface {
	Submit(ctx context.Context, req *client.SubmitRequest) (*models.JobHandle, error)
}

// Metadata travels next to the audio in the multipart form.
type Metadata struct {
	UserID          int64
	DurationSeconds int
	Text            string
	Mood            string
	ContentType     string
	FileName        string
}

type Uploader struct {
	api    Submitter
	logger logging.Logger
}

func New(api Submitter, logger logging.Logger) *Uploader {
	return &Uploader{api: api, logger: logger.With("module", "uploader")}
}

// Upload submits blob with meta. A submission without audio and without
// text fails with common.ErrValidation before any request is made.
// Transport failures are returned as-is, wrapping common.ErrNetwork; there
// is no retry.
func (u *Uploader) Upload(ctx context.Context, blob []byte, meta Metadata) (*models.JobHandle, error) {
	text := strings.TrimSpace(meta.Text)
	if len(blob) == 0 && text == "" {
		return nil, common.ValidationError("audio or text is required")
	}
	if meta.DurationSeconds < 0 {
		return nil, common.ValidationError("duration must not be negative")
	}

	h, err := u.api.Submit(ctx, &client.SubmitRequest{
		UserID:          meta.UserID,
		DurationSeconds: meta.DurationSeconds,
		Text:            text,
		Mood:            strings.TrimSpace(meta.Mood),
		Audio:           blob,
		FileName:        meta.FileName,
		ContentType:     meta.ContentType,
	})
	if err != nil {
		u.logger.Warn(ctx, "upload failed", "error", err)
		return nil, err
	}

	u.logger.Info(ctx, "upload accepted", "job_id", h.ID, "bytes", len(blob))
	return h, nil
}
