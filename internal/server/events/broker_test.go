package events

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan models.JobView) models.JobView {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return models.JobView{}
	}
}

func TestMemoryBroker_DeliversPerJob(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	ch1, cancel1, err := b.Subscribe(ctx, "j1")
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := b.Subscribe(ctx, "j2")
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, b.Publish(ctx, models.JobView{JobID: "j1", Status: common.StatusTranscribing, Progress: 30}))

	v := recv(t, ch1)
	assert.Equal(t, common.StatusTranscribing, v.Status)

	select {
	case v := <-ch2:
		t.Fatalf("unexpected update for j2: %+v", v)
	default:
	}
}

func TestMemoryBroker_CancelClosesAndUnregisters(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel, err := b.Subscribe(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.subscribers("j1"))

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.subscribers("j1"))

	// publishing after cancel is harmless
	require.NoError(t, b.Publish(context.Background(), models.JobView{JobID: "j1"}))
}

func TestMemoryBroker_SlowSubscriberKeepsNewest(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel, err := b.Subscribe(context.Background(), "j1")
	require.NoError(t, err)
	defer cancel()

	for i := 0; i <= subscriberBuffer+5; i++ {
		require.NoError(t, b.Publish(context.Background(), models.JobView{JobID: "j1", Progress: i}))
	}

	var last models.JobView
	for i := 0; i < subscriberBuffer; i++ {
		last = recv(t, ch)
	}
	assert.Equal(t, subscriberBuffer+5, last.Progress)
}
