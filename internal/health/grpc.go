package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the gallery.
const ServiceName = "gallery"

// GRPCServer serves the standard gRPC health protocol, keeping its status
// in step with the dependency checks.
type GRPCServer struct {
	server   *grpc.Server
	health   *grpchealth.Server
	checks   []Check
	interval time.Duration
}

// NewGRPCServer creates a health server that re-runs checks every interval.
func NewGRPCServer(checks []Check, interval time.Duration) *GRPCServer {
	s := &GRPCServer{
		server:   grpc.NewServer(),
		health:   grpchealth.NewServer(),
		checks:   checks,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	return s
}

func (s *GRPCServer) probe(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if !Run(checkCtx, s.checks).Healthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// ListenAndServe listens on addr and serves until ctx is canceled.
func (s *GRPCServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen grpc health on %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is canceled, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.probe(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.server.GracefulStop()
				return
			case <-ticker.C:
				s.probe(ctx)
			}
		}
	}()

	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	err := s.server.Serve(lis)
	cancel()
	<-done
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve grpc health: %w", err)
	}
	return nil
}
