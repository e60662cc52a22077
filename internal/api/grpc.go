package api

import (
	"context"
	"fmt"
	"net"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/anushreehmm/nodedown/internal/models"
)

// Health service names. The empty name is the dataset as a whole; the others
// follow each spreadsheet export.
const (
	HealthDataset       = ""
	HealthEventLog      = string(models.SourceEventLog)
	HealthMetricSamples = string(models.SourceMetricSamples)
)

// HealthServer exposes grpc.health.v1 for the loaded dataset and for each
// source export feeding it.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

// NewHealthServer listens on address. Every service reports NOT_SERVING
// until the first Publish.
func NewHealthServer(address string, opts ...grpc.ServerOption) (*HealthServer, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	server := grpc.NewServer(append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)...)

	hs := health.NewServer()
	for _, name := range []string{HealthDataset, HealthEventLog, HealthMetricSamples} {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	healthpb.RegisterHealthServer(server, hs)
	grpc_prometheus.Register(server)
	reflection.Register(server)

	return &HealthServer{server: server, health: hs, listener: lis}, nil
}

// Publish records the statistics of the dataset now live.
func (s *HealthServer) Publish(stats models.DatasetStats) {
	for name, status := range healthStatuses(stats) {
		s.health.SetServingStatus(name, status)
	}
}

// healthStatuses marks a source SERVING only when it contributed rows. The
// dataset is SERVING once any dataset is live, even an empty one.
func healthStatuses(stats models.DatasetStats) map[string]healthpb.HealthCheckResponse_ServingStatus {
	status := func(ok bool) healthpb.HealthCheckResponse_ServingStatus {
		if ok {
			return healthpb.HealthCheckResponse_SERVING
		}
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return map[string]healthpb.HealthCheckResponse_ServingStatus{
		HealthDataset:       status(stats.Generation != ""),
		HealthEventLog:      status(stats.EventLog.RowsKept > 0),
		HealthMetricSamples: status(stats.MetricSamples.RowsKept > 0),
	}
}

// Start blocks serving until Shutdown.
func (s *HealthServer) Start() error {
	if s.server == nil || s.listener == nil {
		return fmt.Errorf("health server not initialised")
	}
	return s.server.Serve(s.listener)
}

// Shutdown drains in-flight checks and stops hard once ctx expires.
func (s *HealthServer) Shutdown(ctx context.Context) {
	if s.server == nil {
		return
	}
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(drained)
	}()

	select {
	case <-ctx.Done():
		s.server.Stop()
	case <-drained:
	}
}

// Address is the bound listener address.
func (s *HealthServer) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
