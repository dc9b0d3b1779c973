package common

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageError_MatchesProviderAndCause(t *testing.T) {
	err := NewProviderError("transcribing", "transcription failed", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "transcribing: transcription failed")

	var se *StageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "transcribing", se.Stage)
}

func TestStageError_NilSafe(t *testing.T) {
	var se *StageError
	assert.Equal(t, "", se.Error())
	assert.Nil(t, se.Unwrap())
}

func TestStageError_WithoutCause(t *testing.T) {
	err := &StageError{Stage: "analyzing", Message: "empty analysis"}
	assert.Equal(t, "analyzing: empty analysis", err.Error())
}

func TestValidationError(t *testing.T) {
	err := ValidationError("audio or text is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation error: audio or text is required", err.Error())
}

func TestJobStatus(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
		valid    bool
	}{
		{StatusPending, false, true},
		{StatusTranscribing, false, true},
		{StatusAnalyzing, false, true},
		{StatusCompleted, true, true},
		{StatusError, true, true},
		{JobStatus("categorizing"), false, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.terminal, tc.status.IsTerminal())
			assert.Equal(t, tc.valid, tc.status.Valid())
		})
	}
}

func TestStageError_NonProviderDoesNotMatch(t *testing.T) {
	err := &StageError{Stage: "uploaded", Message: "audio missing", Err: io.EOF}
	assert.NotErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, io.EOF)
}
