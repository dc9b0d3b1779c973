package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "mindwell:jobs:"

// RedisBroker publishes updates over Redis pub/sub so that API replicas
// and asynq workers in other processes reach the same subscribers.
type RedisBroker struct {
	client *redis.Client
	logger logging.Logger
}

func NewRedisBroker(client *redis.Client, logger logging.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger.With("module", "events")}
}

func channel(jobID string) string {
	return channelPrefix + jobID
}

func (b *RedisBroker) Publish(ctx context.Context, v models.JobView) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channel(v.JobID), raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, jobID string) (<-chan models.JobView, func(), error) {
	ps := b.client.Subscribe(ctx, channel(jobID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan models.JobView, subscriberBuffer)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var v models.JobView
				if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
					b.logger.Warn(ctx, "dropping malformed job update", "job_id", jobID, "error", err)
					continue
				}
				deliver(out, v)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
			wg.Wait()
		})
	}
	return out, cancel, nil
}
