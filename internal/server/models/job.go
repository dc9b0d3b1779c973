// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
)

// Job is one asynchronous processing run for a submitted check-in.
type Job struct {
	ID     string
	UserID int64

	// AudioURL is the storage key of the raw audio; empty for text-only submissions.
	AudioURL        string
	AudioChecksum   string
	AudioType       string
	DurationSeconds int
	Text            string
	Mood            string

	Status   common.JobStatus
	Stage    string
	Progress int

	// ResultEntryID and ErrorMessage are mutually exclusive.
	ResultEntryID *int64
	ErrorMessage  *string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// HasAudio reports whether the submission carried an audio payload.
func (j *Job) HasAudio() bool {
	return j.AudioURL != ""
}

// View returns the client-facing status snapshot of the job.
func (j *Job) View() JobView {
	v := JobView{
		JobID:    j.ID,
		Status:   j.Status,
		Progress: j.Progress,
	}
	if j.ResultEntryID != nil {
		id := *j.ResultEntryID
		v.ResultEntryID = &id
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		v.ErrorMessage = &msg
	}
	return v
}

// JobView is the status payload served to clients, cached and broadcast.
type JobView struct {
	JobID         string           `json:"jobId,omitempty"`
	Status        common.JobStatus `json:"status"`
	Progress      int              `json:"progress"`
	ResultEntryID *int64           `json:"id,omitempty"`
	ErrorMessage  *string          `json:"errorMessage,omitempty"`
}
