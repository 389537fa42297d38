package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	pb "github.com/dmitrijs2005/fieldsync/internal/proto"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalIDKey ctxKey = "principalID"

// publicMethods can be called without an access token.
var publicMethods = map[string]struct{}{
	pb.SignInFullMethodName: {},
	pb.PingFullMethodName:   {},
}

// PrincipalFromContext returns the principal attached by the interceptors.
func PrincipalFromContext(ctx context.Context) string {
	id, _ := ctx.Value(principalIDKey).(string)
	return id
}

func (s *GRPCServer) authenticate(ctx context.Context, method string) (context.Context, error) {
	if _, ok := publicMethods[method]; ok {
		return ctx, nil
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	principalID, err := auth.GetPrincipalIDFromToken(accessToken, s.jwtSecret)
	if errors.Is(err, common.ErrTokenExpired) {
		return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return context.WithValue(ctx, principalIDKey, principalID), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *authenticatedStream) Context() context.Context {
	return w.ctx
}

func (s *GRPCServer) streamAccessTokenInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authenticatedStream{ServerStream: ss, ctx: ctx})
}
