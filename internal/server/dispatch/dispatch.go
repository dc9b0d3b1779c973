// Package dispatch hands accepted jobs to the processing pipeline, either
// in-process or through a Redis-backed asynq queue.
package dispatch

import (
	"context"
	"errors"
)

// Runner processes one job to a terminal state.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// ErrStopped is returned by dispatchers that no longer accept work.
var ErrStopped = errors.New("dispatcher stopped")
