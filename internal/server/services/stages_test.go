package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/events"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageStatus(t *testing.T) {
	tests := []struct {
		stage    string
		status   common.JobStatus
		progress int
	}{
		{StageUploaded, common.StatusPending, 0},
		{StageTranscribing, common.StatusTranscribing, 30},
		{StageAnalyzing, common.StatusAnalyzing, 60},
		{StageCategorizing, common.StatusAnalyzing, 70},
		{StageGeneratingTitle, common.StatusAnalyzing, 85},
		{StageSaving, common.StatusAnalyzing, 95},
		{StageCompleted, common.StatusCompleted, 100},
		{StageError, common.StatusError, -1},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			status, progress, ok := StageStatus(tt.stage)
			assert.True(t, ok)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.progress, progress)
		})
	}

	_, _, ok := StageStatus("mixing")
	assert.False(t, ok)
}

func TestNotifier_Publish(t *testing.T) {
	var nilNotifier *Notifier
	assert.NotPanics(t, func() { nilNotifier.Publish(context.Background(), &models.Job{ID: "x"}) })

	broker := events.NewMemoryBroker()
	ch, cancel, err := broker.Subscribe(context.Background(), "job-1")
	require.NoError(t, err)
	defer cancel()

	cache := &recordingCache{}
	n := NewNotifier(cache, broker, logging.NewNop())
	n.Publish(context.Background(), &models.Job{ID: "job-1", Status: common.StatusTranscribing, Progress: 30})

	select {
	case v := <-ch:
		assert.Equal(t, common.StatusTranscribing, v.Status)
		assert.Equal(t, 30, v.Progress)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	assert.Len(t, cache.history("job-1"), 1)
}
