package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	pb "github.com/dmitrijs2005/fieldsync/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const pingTimeout = 3 * time.Second

var _ Client = (*GRPCClient)(nil)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.DocumentStoreClient

	mu          sync.RWMutex
	principalID string
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	err := invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
	if err == nil || method == pb.SignInFullMethodName || !isTokenExpired(err) {
		return err
	}

	if rerr := s.refresh(ctx); rerr != nil {
		return err
	}

	// token refreshed, retrying once
	return invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.token()), desc, cc, method, opts...)
}

// refresh signs in again under the cached principal.
func (s *GRPCClient) refresh(ctx context.Context) error {
	s.mu.RLock()
	principalID := s.principalID
	s.mu.RUnlock()

	if principalID == "" {
		return ErrNotSignedIn
	}
	_, err := s.SignIn(ctx, principalID)
	return err
}

// NewGRPCClient creates a client for endpointURL. Extra dial options are
// appended to the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	err := c.InitGRPCClient(opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	}

	conn, err := grpc.NewClient(s.endpointURL, append(dialOpts, opts...)...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewDocumentStoreClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// SignIn authenticates as principalID, or as a new principal when it is
// empty, and keeps the issued token for later calls.
func (s *GRPCClient) SignIn(ctx context.Context, principalID string) (models.Principal, error) {

	req, err := pb.SignInRequest{Principal: principalID}.Encode()
	if err != nil {
		return models.Principal{}, err
	}

	resp, err := s.client.SignIn(ctx, req)
	if err != nil {
		return models.Principal{}, s.mapError(err)
	}

	out, err := pb.DecodeSignInResponse(resp)
	if err != nil {
		return models.Principal{}, err
	}

	s.mu.Lock()
	s.principalID = out.Principal
	s.accessToken = out.AccessToken
	s.mu.Unlock()

	return models.Principal{ID: out.Principal}, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}

	if st, ok := resp.AsMap()[pb.FieldStatus].(string); !ok || st != pb.StatusOK {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) Upsert(ctx context.Context, collection, key string, doc models.Document) error {

	req, err := pb.WriteRequest{Collection: collection, Key: key, Document: doc}.Encode()
	if err != nil {
		return err
	}

	if _, err := s.client.Upsert(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Create(ctx context.Context, collection string, doc models.Document) (string, error) {

	req, err := pb.WriteRequest{Collection: collection, Document: doc}.Encode()
	if err != nil {
		return "", err
	}

	resp, err := s.client.Create(ctx, req)
	if err != nil {
		return "", s.mapError(err)
	}

	return pb.DecodeWriteResponse(resp).Key, nil
}

// ReadAll returns every document of the collection as "added" events.
func (s *GRPCClient) ReadAll(ctx context.Context, collection string) ([]models.ChangeEvent, error) {

	req, err := pb.CollectionRequest{Collection: collection}.Encode()
	if err != nil {
		return nil, err
	}

	resp, err := s.client.ReadAll(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	docs := pb.DecodeDocuments(resp)
	events := make([]models.ChangeEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, models.ChangeEvent{Type: models.ChangeAdded, Key: d.Key, Data: models.Document(d.Data)})
	}
	return events, nil
}

// Subscribe opens a change stream on collection. The initial snapshot and
// every later batch are passed to onChange from a single goroutine. onError
// is called once if the stream fails; it is not called after unsubscribe.
func (s *GRPCClient) Subscribe(ctx context.Context, collection string, onChange func([]models.ChangeEvent), onError func(error)) (models.Unsubscribe, error) {

	req, err := pb.CollectionRequest{Collection: collection}.Encode()
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)

	stream, first, err := s.openStream(subCtx, req)
	if err != nil {
		cancel()
		return nil, s.mapError(err)
	}

	go s.readStream(subCtx, stream, first, onChange, onError)

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

// openStream starts the stream and waits for the snapshot, so that
// authentication failures surface to the caller.
func (s *GRPCClient) openStream(ctx context.Context, req *structpb.Struct) (grpc.ServerStreamingClient[structpb.Struct], *structpb.Struct, error) {
	for attempt := 0; ; attempt++ {
		stream, err := s.client.Subscribe(ctx, req)
		if err != nil {
			return nil, nil, err
		}

		first, err := stream.Recv()
		if err == nil {
			return stream, first, nil
		}

		if attempt > 0 || !isTokenExpired(err) {
			return nil, nil, err
		}
		if rerr := s.refresh(ctx); rerr != nil {
			return nil, nil, err
		}
	}
}

func (s *GRPCClient) readStream(ctx context.Context, stream grpc.ServerStreamingClient[structpb.Struct], msg *structpb.Struct, onChange func([]models.ChangeEvent), onError func(error)) {
	for {
		if events := toChangeEvents(pb.DecodeEvents(msg)); len(events) > 0 {
			onChange(events)
		}

		var err error
		msg, err = stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				// the server closed the stream without a status
				onError(fmt.Errorf("%w: stream closed", ErrUnavailable))
				return
			}
			onError(s.mapError(err))
			return
		}
	}
}

func toChangeEvents(in []pb.Event) []models.ChangeEvent {
	out := make([]models.ChangeEvent, 0, len(in))
	for _, e := range in {
		out = append(out, models.ChangeEvent{Type: models.ChangeType(e.Type), Key: e.Key, Data: models.Document(e.Data)})
	}
	return out
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
