package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

// GRPC bundles the server with its health service so callers can flip
// serving status during shutdown.
type GRPC struct {
	Server *grpc.Server
	Health *health.Server
}

// NewGRPCServer registers svc plus the health and reflection services.
func NewGRPCServer(svc IngestionService, logger *slog.Logger) *GRPC {
	if logger == nil {
		logger = slog.Default()
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(logger)))
	RegisterIngestionServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// reflection for grpcurl
	reflection.Register(s)
	return &GRPC{Server: s, Health: hs}
}

// Stop marks the services NOT_SERVING and drains in-flight calls.
func (g *GRPC) Stop() {
	g.Health.Shutdown()
	g.Server.GracefulStop()
}

func logUnary(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = common.WithRequestID(ctx, requestID(ctx))
		resp, err := handler(ctx, req)
		code := status.Code(err)
		logger.Debug("grpc call",
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// RequestIDHeader carries a caller-chosen request id.
const RequestIDHeader = "x-request-id"

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDHeader); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}
