package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	pb "github.com/dmitrijs2005/fieldsync/internal/proto"
	"github.com/dmitrijs2005/fieldsync/internal/server/documents"
	"github.com/google/uuid"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	pb.UnimplementedDocumentStoreServer
	address      string
	documents    *documents.Service
	logger       logging.Logger
	jwtSecret    []byte
	tokenTTL     time.Duration
	newPrincipal func() string

	// stopping is closed when shutdown starts so open subscriptions return
	// and GracefulStop can complete.
	stopping chan struct{}
}

func NewGRPCServer(a string, l logging.Logger, ds *documents.Service, secretKey string, tokenTTL time.Duration) *GRPCServer {
	return &GRPCServer{
		address:      a,
		logger:       l.With("module", "grpc_server"),
		documents:    ds,
		jwtSecret:    []byte(secretKey),
		tokenTTL:     tokenTTL,
		newPrincipal: uuid.NewString,
		stopping:     make(chan struct{}),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on an existing listener until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	)

	pb.RegisterDocumentStoreServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		close(s.stopping)
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	return srv.Serve(listen)
}
