// Package poller follows a processing job until it reaches a terminal status.
//
// A Poller is a small state machine: idle → polling → completed | failed |
// cancelled. It asks the API for the job's status on a fixed interval,
// reports every sample through OnProgress and finishes with OnComplete or
// OnError. Requests that fail in transit are logged and retried on the next
// tick, so a flaky connection never turns into a failed job. Cancelling the
// context stops polling immediately.
package poller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/client/client"
	"github.com/dmitrijs2005/mindwell/internal/client/models"
	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/logging"
)

// DefaultInterval is the pause between two status requests.
const DefaultInterval = 2 * time.Second

// ErrAlreadyStarted is returned when Run is called on a used Poller.
var ErrAlreadyStarted = errors.New("poller already started")

type State int

const (
	StateIdle State = iota
	StatePolling
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// StatusSource is the part of the API client the poller needs.
type StatusSource interface {
	Status(ctx context.Context, jobID string) (*models.JobStatus, error)
}

// Ticker abstracts time.Ticker so tests can drive the loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// Outcome is how a run ended.
type Outcome struct {
	State        State
	ResultID     int64
	ErrorMessage string
	Last         *models.JobStatus
}

type Poller struct {
	api       StatusSource
	logger    logging.Logger
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	manual    *models.JobStatus

	onProgress func(models.JobStatus)
	onComplete func(resultID int64)
	onError    func(message string)

	mu    sync.Mutex
	state State
	last  *models.JobStatus
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(p *Poller) { p.newTicker = fn }
}

// WithManualStatus makes Run process st instead of issuing any request.
func WithManualStatus(st models.JobStatus) Option {
	return func(p *Poller) { p.manual = &st }
}

func OnProgress(fn func(models.JobStatus)) Option {
	return func(p *Poller) { p.onProgress = fn }
}

func OnComplete(fn func(resultID int64)) Option {
	return func(p *Poller) { p.onComplete = fn }
}

func OnError(fn func(message string)) Option {
	return func(p *Poller) { p.onError = fn }
}

func New(api StatusSource, logger logging.Logger, opts ...Option) *Poller {
	p := &Poller{
		api:       api,
		logger:    logger.With("module", "poller"),
		interval:  DefaultInterval,
		newTicker: newTimeTicker,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Last returns the most recent sample, or nil before the first one.
func (p *Poller) Last() *models.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run polls jobID until the job is terminal or ctx is done. The first
// request goes out immediately, then one per interval. A cancelled context
// ends the run with common.ErrCancelled. A 4xx answer other than a transport
// failure ends it with that error, since retrying cannot change it.
func (p *Poller) Run(ctx context.Context, jobID string) (*Outcome, error) {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	p.state = StatePolling
	p.mu.Unlock()

	if p.manual != nil {
		p.apply(*p.manual)
		return p.outcome(), nil
	}

	ticker := p.newTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return p.cancel()
		}

		st, err := p.api.Status(ctx, jobID)
		switch {
		case err == nil:
			if p.apply(*st) {
				return p.outcome(), nil
			}
		case ctx.Err() != nil:
			return p.cancel()
		case permanent(err):
			p.logger.Error(ctx, "status request rejected", "job_id", jobID, "error", err)
			p.setState(StateFailed)
			return p.outcome(), err
		default:
			p.logger.Warn(ctx, "status request failed, will retry", "job_id", jobID, "error", err)
		}

		select {
		case <-ctx.Done():
			return p.cancel()
		case <-ticker.C():
		}
	}
}

// apply records st and fires callbacks. It reports whether st is terminal.
func (p *Poller) apply(st models.JobStatus) bool {
	p.mu.Lock()
	p.last = &st
	switch st.Status {
	case common.StatusCompleted:
		p.state = StateCompleted
	case common.StatusError:
		p.state = StateFailed
	}
	p.mu.Unlock()

	if p.onProgress != nil {
		p.onProgress(st)
	}

	switch st.Status {
	case common.StatusCompleted:
		if p.onComplete != nil {
			var id int64
			if st.ResultID != nil {
				id = *st.ResultID
			}
			p.onComplete(id)
		}
		return true
	case common.StatusError:
		if p.onError != nil {
			p.onError(st.Message())
		}
		return true
	}
	return false
}

func (p *Poller) cancel() (*Outcome, error) {
	p.setState(StateCancelled)
	return p.outcome(), common.ErrCancelled
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Poller) outcome() *Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	o := &Outcome{State: p.state, Last: p.last}
	if p.last != nil {
		switch p.last.Status {
		case common.StatusCompleted:
			if p.last.ResultID != nil {
				o.ResultID = *p.last.ResultID
			}
		case common.StatusError:
			o.ErrorMessage = p.last.Message()
		}
	}
	return o
}

func permanent(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError &&
		apiErr.Status != http.StatusTooManyRequests && apiErr.Status != http.StatusRequestTimeout
}
