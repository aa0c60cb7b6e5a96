package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/userauth-server/internal/api/grpc/middleware"
	"github.com/dtroode/userauth-server/internal/logger"
)

// Router builds the gRPC ops server.
type Router struct {
	health *grpchealth.Server
	logger *logger.Logger
}

// New creates new gRPC Router instance. health is the status source
// shared with the store health checker.
func New(health *grpchealth.Server, logger *logger.Logger) *Router {
	return &Router{health: health, logger: logger}
}

// Register returns a server exposing grpc.health.v1 and reflection.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	onPanic := recovery.WithRecoveryHandlerContext(logging.RecoverPanic)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(onPanic),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(onPanic),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}
