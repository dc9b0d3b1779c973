package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/hibiken/asynq"
)

const (
	TaskProcessCheckIn = "checkin:process"
	DefaultQueue       = "checkins"
)

type processPayload struct {
	JobID string `json:"jobId"`
}

// Queue enqueues jobs for a Worker, possibly running in another process.
type Queue struct {
	client *asynq.Client
	queue  string
}

func NewQueue(redisOpt asynq.RedisClientOpt, queue string) *Queue {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Queue{client: asynq.NewClient(redisOpt), queue: queue}
}

// Dispatch enqueues jobID once. The task id is the job id, so a repeated
// dispatch of the same job is a no-op. Pipeline stages are never retried.
func (q *Queue) Dispatch(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(processPayload{JobID: jobID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskProcessCheckIn, payload)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(q.queue),
		asynq.TaskID(jobID),
		asynq.MaxRetry(0),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", jobID, err)
	}
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

type WorkerOptions struct {
	Concurrency     int
	Queue           string
	ShutdownTimeout time.Duration
}

// Worker consumes queued jobs and runs them through the pipeline.
type Worker struct {
	server *asynq.Server
	runner Runner
	logger logging.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, runner Runner, logger logging.Logger, opts WorkerOptions) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Queue == "" {
		opts.Queue = DefaultQueue
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	logger = logger.With("module", "worker")
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     opts.Concurrency,
		Queues:          map[string]int{opts.Queue: 1},
		ShutdownTimeout: opts.ShutdownTimeout,
		Logger:          &asynqLogger{logger: logger},
		LogLevel:        asynq.WarnLevel,
	})
	return &Worker{server: server, runner: runner, logger: logger}
}

// Handler returns the task handler wrapped with lifecycle logging.
func (w *Worker) Handler() asynq.Handler {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskProcessCheckIn, w.processTask)
	return w.lifecycle(mux)
}

func (w *Worker) processTask(ctx context.Context, t *asynq.Task) error {
	var p processPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.JobID == "" {
		return fmt.Errorf("bad payload %q: %w", t.Payload(), asynq.SkipRetry)
	}
	return w.runner.Run(ctx, p.JobID)
}

func (w *Worker) lifecycle(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		id, _ := asynq.GetTaskID(ctx)
		started := time.Now()
		w.logger.Debug(ctx, "task started", "task_id", id, "type", t.Type())

		err := next.ProcessTask(ctx, t)
		if err != nil {
			w.logger.Warn(ctx, "task failed", "task_id", id, "elapsed", time.Since(started), "error", err)
		} else {
			w.logger.Debug(ctx, "task completed", "task_id", id, "elapsed", time.Since(started))
		}
		return err
	})
}

// Run starts consuming and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.Handler()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.logger.Info(ctx, "worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info(context.Background(), "worker stopped")
	return nil
}

// asynqLogger routes asynq's own messages into the application logger.
type asynqLogger struct {
	logger logging.Logger
}

func (l *asynqLogger) Debug(args ...any) { l.logger.Debug(context.Background(), fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.logger.Info(context.Background(), fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.logger.Warn(context.Background(), fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.logger.Error(context.Background(), fmt.Sprint(args...)) }

func (l *asynqLogger) Fatal(args ...any) {
	l.logger.Error(context.Background(), fmt.Sprint(args...))
	os.Exit(1)
}
