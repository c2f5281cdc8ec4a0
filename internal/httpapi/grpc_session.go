package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"opsboard.io/internal/auth"
)

const (
	SessionServiceName = "opsboard.v1.Session"
	WhoAmIMethod       = "/" + SessionServiceName + "/WhoAmI"
)

// SessionServer is the gRPC counterpart of /auth/me.
type SessionServer interface {
	WhoAmI(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "opsboard/session",
}

func whoAmIHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WhoAmIMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

type sessionServer struct{}

// WhoAmI returns the identity the interceptor attached to ctx.
func (sessionServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, msgInvalidToken)
	}
	return structpb.NewStruct(map[string]any{
		"id":         id.SubjectID,
		"email":      id.Email,
		"role":       id.Role,
		"expires_at": id.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
