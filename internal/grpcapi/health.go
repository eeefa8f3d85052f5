// Package grpcapi serves the standard gRPC health protocol so that
// supervisors can probe the scan worker without going through HTTP.
package grpcapi

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ScanServiceName is the health service name reported for the scan worker.
const ScanServiceName = "attend.v1.Scanner"

const DefaultProbeInterval = 5 * time.Second

type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	live     func() bool
	interval time.Duration
	logger   *slog.Logger
}

// NewHealthServer reports SERVING while live returns true.
func NewHealthServer(live func() bool, interval time.Duration, logger *slog.Logger) *HealthServer {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthServer{
		server:   grpc.NewServer(),
		health:   health.NewServer(),
		live:     live,
		interval: interval,
		logger:   logger,
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	h.Update()
	return h
}

// Update copies the current liveness into the health service.
func (h *HealthServer) Update() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if h.live() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ScanServiceName, status)
}

// Watch refreshes the status every interval until ctx ends.
func (h *HealthServer) Watch(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Update()
		}
	}
}

func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc health listening", "addr", lis.Addr().String())
	return h.server.Serve(lis)
}

// Stop marks everything NOT_SERVING and drains open streams.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
