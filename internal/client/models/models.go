// Package models defines client-side data models used by the MindWell CLI.
package models

import (
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
)

// JobHandle identifies an accepted submission.
type JobHandle struct {
	ID       string           `json:"id"`
	Status   common.JobStatus `json:"status"`
	Progress int              `json:"progress"`
}

// JobStatus is one sample of a job's processing state.
type JobStatus struct {
	Status   common.JobStatus `json:"status"`
	Progress int              `json:"progress"`

	// ResultID is the finished check-in; set only when completed.
	ResultID     *int64  `json:"id,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

// Message returns the job's failure message, or the generic fallback.
func (s *JobStatus) Message() string {
	if s.ErrorMessage == nil || *s.ErrorMessage == "" {
		return common.FallbackErrorMessage
	}
	return *s.ErrorMessage
}

// CheckIn is a finished voice check-in as served by the API.
type CheckIn struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	JobID           string    `json:"jobId"`
	DurationSeconds int       `json:"duration"`
	Transcript      string    `json:"transcript"`
	Text            string    `json:"text,omitempty"`
	Mood            string    `json:"mood,omitempty"`
	Sentiment       string    `json:"sentiment"`
	SentimentScore  float64   `json:"sentimentScore"`
	Emotions        []string  `json:"emotions"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"createdAt"`
	PlaybackURL     string    `json:"audioUrl,omitempty"`
}

// Submission is one locally remembered upload.
type Submission struct {
	JobID           string
	UserID          int64
	DurationSeconds int
	HasAudio        bool
	Status          common.JobStatus
	Progress        int
	ResultID        *int64
	ErrorMessage    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
