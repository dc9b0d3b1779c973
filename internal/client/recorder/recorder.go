package recorder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/logging"
)

// DefaultContentType labels blobs produced by the default capture command.
const DefaultContentType = "audio/webm"

const chunkSize = 32 << 10

// drainTimeout bounds how long Stop waits for the device to flush.
var drainTimeout = 5 * time.Second

var ErrAlreadyRecording = errors.New("already recording")

type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Ticker abstracts time.Ticker so tests can drive the duration counter.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// Capture is a finished recording.
type Capture struct {
	Blob            []byte
	DurationSeconds int
	ContentType     string
	State           State
}

// ObjectURL returns a playable data: URL for the blob.
func (c *Capture) ObjectURL() string {
	return "data:" + c.ContentType + ";base64," + base64.StdEncoding.EncodeToString(c.Blob)
}

type Recorder struct {
	device      Device
	contentType string
	newTicker   func(time.Duration) Ticker
	onStop      func(*Capture)
	logger      logging.Logger

	mu      sync.Mutex
	state   State
	session *RecordingSession
	last    *Capture
}

type Option func(*Recorder)

func WithContentType(ct string) Option {
	return func(r *Recorder) {
		if ct != "" {
			r.contentType = ct
		}
	}
}

func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(r *Recorder) { r.newTicker = fn }
}

// OnStop registers the listener that receives every finished capture.
func OnStop(fn func(*Capture)) Option {
	return func(r *Recorder) { r.onStop = fn }
}

func New(device Device, logger logging.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		device:      device,
		contentType: DefaultContentType,
		newTicker:   newTimeTicker,
		logger:      logger.With("module", "recorder"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Duration is the elapsed whole seconds of the current or last recording.
func (r *Recorder) Duration() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.session != nil:
		return r.session.Duration()
	case r.last != nil:
		return r.last.DurationSeconds
	}
	return 0
}

// Last returns the most recent capture, or nil.
func (r *Recorder) Last() *Capture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Start opens the device and begins counting seconds. A previous capture is
// dropped.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrAlreadyRecording
	}

	stream, err := r.device.Open(ctx)
	if err != nil {
		r.logger.Warn(ctx, "cannot open audio device", "error", err)
		return err
	}

	r.session = newSession(stream, r.newTicker(time.Second))
	r.state = StateRecording
	r.last = nil
	r.logger.Debug(ctx, "recording started")
	return nil
}

// Stop finishes the recording and emits the capture. It returns nil, nil
// when nothing is being recorded.
func (r *Recorder) Stop() (*Capture, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil, nil
	}
	s := r.session
	r.session = nil

	blob, err := s.Dispose()
	c := &Capture{
		Blob:            blob,
		DurationSeconds: s.Duration(),
		ContentType:     r.contentType,
		State:           StateStopped,
	}
	r.state = StateStopped
	r.last = c
	onStop := r.onStop
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn(context.Background(), "capture ended with error", "error", err)
	}
	if onStop != nil {
		onStop(c)
	}
	return c, err
}

// Cancel discards the current recording. Nothing is emitted.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		_, _ = r.session.Dispose()
		r.session = nil
	}
	r.state = StateIdle
	r.last = nil
}

// Dispose releases the device and ticker. Safe to call more than once.
func (r *Recorder) Dispose() {
	r.Cancel()
}

// RecordingSession owns the device stream and ticker of one recording.
type RecordingSession struct {
	stream   Stream
	ticker   Ticker
	duration atomic.Int64

	stopTick chan struct{}
	tickDone chan struct{}

	mu          sync.Mutex
	buf         bytes.Buffer
	captureErr  error
	captureDone chan struct{}

	once sync.Once
	blob []byte
}

func newSession(stream Stream, ticker Ticker) *RecordingSession {
	s := &RecordingSession{
		stream:      stream,
		ticker:      ticker,
		stopTick:    make(chan struct{}),
		tickDone:    make(chan struct{}),
		captureDone: make(chan struct{}),
	}
	go s.tick()
	go s.capture()
	return s
}

func (s *RecordingSession) Duration() int {
	return int(s.duration.Load())
}

func (s *RecordingSession) tick() {
	defer close(s.tickDone)
	for {
		select {
		case <-s.stopTick:
			return
		case <-s.ticker.C():
			s.duration.Add(1)
		}
	}
}

func (s *RecordingSession) capture() {
	defer close(s.captureDone)
	chunk := make([]byte, chunkSize)
	for {
		n, err := s.stream.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf.Write(chunk[:n])
			s.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.mu.Lock()
				s.captureErr = err
				s.mu.Unlock()
			}
			return
		}
	}
}

// Dispose stops the ticker and the device and returns the buffered audio.
// Later calls return the same blob.
func (s *RecordingSession) Dispose() ([]byte, error) {
	var err error
	s.once.Do(func() {
		close(s.stopTick)
		s.ticker.Stop()
		<-s.tickDone

		_ = s.stream.Stop()
		select {
		case <-s.captureDone:
		case <-time.After(drainTimeout):
		}
		_ = s.stream.Close()
		<-s.captureDone

		s.mu.Lock()
		s.blob = bytes.Clone(s.buf.Bytes())
		err = s.captureErr
		s.mu.Unlock()
	})
	return s.blob, err
}
