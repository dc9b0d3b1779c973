// Package events fans out job status updates to live subscribers such as
// websocket connections.
package events

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mindwell/internal/server/models"
)

// Broker delivers JobView updates per job id.
type Broker interface {
	Publish(ctx context.Context, v models.JobView) error
	// Subscribe returns a channel of updates for jobID and a cancel func that
	// must be called to release the subscription. The channel is closed on cancel.
	Subscribe(ctx context.Context, jobID string) (<-chan models.JobView, func(), error)
}

const subscriberBuffer = 16

// MemoryBroker is an in-process Broker. It only reaches subscribers in the
// same process as the publisher.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan models.JobView
	once sync.Once
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*subscriber]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, v models.JobView) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs[v.JobID] {
		deliver(s.ch, v)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, jobID string) (<-chan models.JobView, func(), error) {
	s := &subscriber{ch: make(chan models.JobView, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[*subscriber]struct{})
	}
	b.subs[jobID][s] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[jobID], s)
			if len(b.subs[jobID]) == 0 {
				delete(b.subs, jobID)
			}
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel, nil
}

// subscribers reports how many subscriptions exist for jobID.
func (b *MemoryBroker) subscribers(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[jobID])
}

// deliver never blocks the publisher: when a slow subscriber's buffer is
// full the oldest pending update is dropped. Snapshots are cumulative, so
// the newest one is always the one worth keeping.
func deliver(ch chan models.JobView, v models.JobView) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
