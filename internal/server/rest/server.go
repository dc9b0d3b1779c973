// Package rest exposes the check-in API over HTTP.
package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/logging"
	"github.com/dmitrijs2005/mindwell/internal/server/events"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/dmitrijs2005/mindwell/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CheckInService is what the handlers need from the service layer.
type CheckInService interface {
	Submit(ctx context.Context, sub services.Submission) (*models.JobView, error)
	Status(ctx context.Context, jobID string) (*models.JobView, error)
	JobOwner(ctx context.Context, jobID string) (int64, error)
	Get(ctx context.Context, id int64, requester int64) (*models.CheckIn, error)
	List(ctx context.Context, userID int64, limit, offset int) ([]*models.CheckIn, error)
	OpenAudio(ctx context.Context, id int64, requester int64) (io.ReadCloser, string, error)
}

type Options struct {
	Address        string
	SecretKey      string
	AuthRequired   bool
	MaxUploadBytes int64
	CORSOrigins    []string
}

type HTTPServer struct {
	address      string
	checkins     CheckInService
	broker       events.Broker
	logger       logging.Logger
	jwtSecret    []byte
	authRequired bool
	maxUpload    int64
	corsOrigins  []string
}

func NewHTTPServer(opts Options, checkins CheckInService, broker events.Broker, l logging.Logger) *HTTPServer {
	return &HTTPServer{
		address:      opts.Address,
		checkins:     checkins,
		broker:       broker,
		logger:       l.With("module", "http_server"),
		jwtSecret:    []byte(opts.SecretKey),
		authRequired: opts.AuthRequired,
		maxUpload:    opts.MaxUploadBytes,
		corsOrigins:  opts.CORSOrigins,
	}
}

// Router builds the gin engine with every route registered.
func (s *HTTPServer) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.Use(cors.New(s.corsConfig()))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api", s.authenticate())
	{
		api.POST("/voice-checkins", s.submit)
		api.GET("/voice-checkins/status/:jobId", s.status)
		api.GET("/voice-checkins/status/:jobId/events", s.events)
		api.GET("/voice-checkins/:id", s.getCheckIn)
		api.GET("/voice-checkins/:id/audio", s.audio)
		api.GET("/users/:userId/voice-checkins", s.listCheckIns)
	}
	return engine
}

func (s *HTTPServer) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if len(s.corsOrigins) == 0 || (len(s.corsOrigins) == 1 && s.corsOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.corsOrigins
	}
	return cfg
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			s.logger.Error(sctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
