// Package grpc serves the standard gRPC health protocol so orchestrators can
// check that the server is up.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") health status.
const ServiceName = "mindwell.VoiceCheckIns"

// Pinger reports whether a dependency is reachable; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	db       Pinger
	interval time.Duration
}

func NewGRPCServer(a string, l logging.Logger, db Pinger) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
		db:       db,
		interval: 15 * time.Second,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check pings the database and publishes the resulting serving status.
func (s *GRPCServer) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.db.PingContext(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "database unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
