// Package server wires the MindWell server together: storage, providers,
// the processing pipeline, the HTTP API, gRPC health and housekeeping.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/config"
	"github.com/dmitrijs2005/mindwell/internal/server/dispatch"
	"github.com/dmitrijs2005/mindwell/internal/server/events"
	"github.com/dmitrijs2005/mindwell/internal/server/jobcache"
	"github.com/dmitrijs2005/mindwell/internal/server/providers/openaix"
	"github.com/dmitrijs2005/mindwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mindwell/internal/server/rest"
	"github.com/dmitrijs2005/mindwell/internal/server/services"
	"github.com/dmitrijs2005/mindwell/internal/server/storage"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/mindwell/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db    *sql.DB
	redis *redis.Client

	httpServer *rest.HTTPServer
	grpcServer *gs.GRPCServer
	janitor    *services.Janitor

	// jobsCtx bounds inline jobs; it outlives individual requests.
	jobsCtx  context.Context
	stopJobs context.CancelFunc
	inline   *dispatch.Inline
	queue    *dispatch.Queue
	worker   *dispatch.Worker
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{Format: c.LogFormat, Level: c.LogLevel, File: c.LogFile})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	store, err := app.newStore(ctx)
	if err != nil {
		return fmt.Errorf("storage init error: %w", err)
	}

	var cache services.StatusCache
	var broker events.Broker = events.NewMemoryBroker()
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis init error: %w", err)
		}
		cache = jobcache.NewRedisCache(app.redis, 2*c.JobTimeout, c.JobRetention)
		broker = events.NewRedisBroker(app.redis, app.logger)
	}
	notifier := services.NewNotifier(cache, broker, app.logger)

	provider := openaix.NewClient(openaix.Options{
		APIKey:             c.OpenAIAPIKey,
		BaseURL:            c.OpenAIBaseURL,
		TranscriptionModel: c.TranscriptionModel,
		AnalysisModel:      c.AnalysisModel,
		Language:           common.TranscriptionLanguage,
	}, app.logger)

	pipeline := services.NewPipeline(db, rm, store, provider, provider, notifier, app.logger, c.JobTimeout)

	var dispatcher services.Dispatcher
	app.jobsCtx, app.stopJobs = context.WithCancel(context.Background())
	switch c.Dispatcher {
	case "asynq":
		redisOpt := asynq.RedisClientOpt{Addr: c.RedisAddr}
		app.queue = dispatch.NewQueue(redisOpt, dispatch.DefaultQueue)
		app.worker = dispatch.NewWorker(redisOpt, pipeline, app.logger, dispatch.WorkerOptions{
			Concurrency: c.WorkerConcurrency,
			Queue:       dispatch.DefaultQueue,
		})
		dispatcher = app.queue
	default:
		app.inline = dispatch.NewInline(app.jobsCtx, pipeline, app.logger, c.WorkerConcurrency)
		dispatcher = app.inline
	}

	checkins := services.NewCheckInService(db, rm, store, dispatcher, notifier, app.logger, services.CheckInServiceOptions{
		Cache:      cache,
		PresignTTL: c.PresignTTL,
		MaxAudio:   c.MaxUploadBytes,
	})

	app.httpServer = rest.NewHTTPServer(rest.Options{
		Address:        c.EndpointAddrHTTP,
		SecretKey:      c.SecretKey,
		AuthRequired:   c.AuthRequired,
		MaxUploadBytes: c.MaxUploadBytes,
		CORSOrigins:    c.CORSOrigins,
	}, checkins, broker, app.logger)

	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, db)

	app.janitor = services.NewJanitor(db, rm, store, notifier, app.logger, 2*c.JobTimeout, c.JobRetention, c.JanitorInterval)

	return nil
}

func (app *App) newStore(ctx context.Context) (storage.AudioStore, error) {
	c := app.config
	if c.StorageBackend == "s3" {
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		})
	}
	return storage.NewLocalStore(c.LocalStorageDir)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a signal arrives or one of the components fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "dispatcher", app.config.Dispatcher, "storage", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.httpServer.Run(gctx) })
	g.Go(func() error { return app.grpcServer.Run(gctx) })
	g.Go(func() error { return app.janitor.Run(gctx) })
	if app.worker != nil {
		g.Go(func() error { return app.worker.Run(gctx) })
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	}

	app.close()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

// close releases resources. Inline jobs are cancelled and awaited first so
// nothing writes to a closed database.
func (app *App) close() {
	if app.stopJobs != nil {
		app.stopJobs()
	}
	if app.inline != nil {
		app.inline.Wait()
	}
	if app.queue != nil {
		_ = app.queue.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
	if z, ok := app.logger.(interface{ Sync() error }); ok {
		_ = z.Sync()
	}
}
