package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"vehicle-checkpoint-backend/internal/api/grpc/interceptor"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/security"
)

// ServiceName is the health entry operators probe for the checkpoint backend.
const ServiceName = "checkpoint.v1.Checkpoint"

// Pinger reports whether the backing store is reachable.
type Pinger func(ctx context.Context) error

// OpsServer is the operations port: standard health checking and reflection.
type OpsServer struct {
	*grpc.Server
	health *health.Server
	ping   Pinger
}

func NewOpsServer(tm security.TokenManager, ping Pinger) *OpsServer {
	auth := interceptor.NewAuthInterceptor(tm)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(auth.Unary()),
		grpc.StreamInterceptor(auth.Stream()),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &OpsServer{Server: s, health: hs, ping: ping}
}

// Probe pings the store once and publishes the result for the overall server and ServiceName.
func (o *OpsServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if o.ping != nil {
		if err := o.ping(ctx); err != nil {
			logger.Warn("Store health probe failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	o.health.SetServingStatus("", st)
	o.health.SetServingStatus(ServiceName, st)
	return st
}

// WatchHealth probes every interval until ctx is done.
func (o *OpsServer) WatchHealth(ctx context.Context, interval time.Duration) {
	o.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval)
			o.Probe(probeCtx)
			cancel()
		}
	}
}

// Shutdown marks everything NOT_SERVING so load balancers drain, then stops gracefully.
func (o *OpsServer) Shutdown() {
	o.health.Shutdown()
	o.GracefulStop()
}
