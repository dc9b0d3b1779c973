package services

import (
	"context"
	"io"

	"github.com/dmitrijs2005/mindwell/internal/server/models"
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error)
}

// Analyzer derives mood, category and title from a transcript.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, transcript string) (*models.Sentiment, error)
	Categorize(ctx context.Context, transcript string) (string, error)
	GenerateTitle(ctx context.Context, transcript string) (string, error)
}

// Dispatcher hands a persisted job to whatever runs the pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
}
