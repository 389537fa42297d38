package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	pb "github.com/dmitrijs2005/fieldsync/internal/proto"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func incoming(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, token))
}

func TestInterceptor_PublicMethodsSkipAuth(t *testing.T) {
	s := newTestServer(time.Hour)

	for _, m := range []string{pb.SignInFullMethodName, pb.PingFullMethodName} {
		called := false
		_, err := s.accessTokenInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: m},
			func(context.Context, interface{}) (interface{}, error) {
				called = true
				return "ok", nil
			})
		require.NoError(t, err)
		assert.True(t, called, m)
	}
}

func TestInterceptor_Rejections(t *testing.T) {
	s := newTestServer(time.Hour)
	expired, err := auth.GenerateToken("p1", []byte(testSecret), -time.Second)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("p1", []byte("other"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name string
		ctx  context.Context
		msg  string
	}{
		{name: "missing", ctx: context.Background(), msg: "missing token"},
		{name: "expired", ctx: incoming(expired), msg: common.ErrTokenExpired.Error()},
		{name: "bad signature", ctx: incoming(foreign), msg: common.ErrInvalidToken.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.accessTokenInterceptor(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: pb.UpsertFullMethodName},
				func(context.Context, interface{}) (interface{}, error) {
					t.Fatal("handler must not run")
					return nil, nil
				})
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, codes.Unauthenticated, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
}

func TestInterceptor_AttachesPrincipal(t *testing.T) {
	s := newTestServer(time.Hour)
	tok, err := auth.GenerateToken("device-7", []byte(testSecret), time.Hour)
	require.NoError(t, err)

	var got string
	_, err = s.accessTokenInterceptor(incoming(tok), nil, &grpc.UnaryServerInfo{FullMethod: pb.ReadAllFullMethodName},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			got = PrincipalFromContext(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	assert.Equal(t, "device-7", got)
}

func TestStreamInterceptor_RequiresToken(t *testing.T) {
	c := startBufconn(t, newTestServer(time.Hour))

	req, err := pb.CollectionRequest{Collection: "expenses"}.Encode()
	require.NoError(t, err)

	stream, err := c.Subscribe(context.Background(), req)
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
