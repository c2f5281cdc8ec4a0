package httpapi

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"opsboard.io/internal/auth"
	"opsboard.io/internal/obs"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "opsboard.api"

const healthMethodPrefix = "/grpc.health.v1.Health/"

// NewGRPCServer builds the secondary gRPC listener: the standard health
// service and the session service behind the same access gate as the HTTP
// routes. Health methods are the only ones reachable without a token.
func NewGRPCServer(authn Authenticator, readiness ReadinessChecker, opts ...grpc.ServerOption) *grpc.Server {
	if readiness == nil {
		readiness = ReadyProbe{}
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(UnaryAuthInterceptor(authn)))
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, &healthServer{readiness: readiness})
	srv.RegisterService(&sessionServiceDesc, sessionServer{})
	return srv
}

type healthServer struct {
	healthpb.UnimplementedHealthServer
	readiness ReadinessChecker
}

// Check reports SERVING when the readiness probe passes.
func (s *healthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// UnaryAuthInterceptor authenticates the "authorization" metadata entry and
// puts the identity into the handler context.
func UnaryAuthInterceptor(authn Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthMethodPrefix) {
			return handler(ctx, req)
		}
		var raw string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				raw = vals[0]
			}
		}
		if strings.TrimSpace(raw) == "" {
			obs.RecordAuthRejection("grpc", "missing")
			return nil, status.Error(codes.Unauthenticated, msgMissingAuth)
		}
		id, err := authn.Authenticate(raw)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredential) && !errors.Is(err, auth.ErrMissingCredential) {
				obs.Warn("grpc authenticate failed", map[string]any{"method": info.FullMethod, "error": err.Error()})
			}
			obs.RecordAuthRejection("grpc", "invalid")
			return nil, status.Error(codes.Unauthenticated, msgInvalidToken)
		}
		return handler(auth.ContextWithIdentity(ctx, id), req)
	}
}
