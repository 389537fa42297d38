package grpc

import (
	"context"
	"errors"

	pb "github.com/dmitrijs2005/fieldsync/internal/proto"
	"github.com/dmitrijs2005/fieldsync/internal/server/auth"
	"github.com/dmitrijs2005/fieldsync/internal/server/documents"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxEventBatch caps how many queued changes are sent in one stream message.
const maxEventBatch = 64

const serverTimestampLayout = "2006-01-02T15:04:05.000Z"

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, pb.ErrMissingField), errors.Is(err, documents.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func encodeOrInternal(msg *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}

// SignIn issues an access token. A returning device passes its principal id;
// a new device gets a fresh one.
func (s *GRPCServer) SignIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := pb.DecodeSignInRequest(req)

	principal := in.Principal
	if principal == "" {
		principal = s.newPrincipal()
	}

	token, err := auth.GenerateToken(principal, s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.logger.Error(ctx, "token generation failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "Signed in", "principal", principal, "new", in.Principal == "")
	return encodeOrInternal(pb.SignInResponse{Principal: principal, AccessToken: token}.Encode())
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{pb.FieldStatus: pb.StatusOK})
}

func (s *GRPCServer) Upsert(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := pb.DecodeWriteRequest(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	doc, err := s.documents.Upsert(ctx, in.Collection, in.Key, in.Document)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeOrInternal(writeResponse(doc).Encode())
}

func (s *GRPCServer) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := pb.DecodeWriteRequest(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	doc, err := s.documents.Create(ctx, in.Collection, in.Document)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return encodeOrInternal(writeResponse(doc).Encode())
}

func writeResponse(doc documents.Document) pb.WriteResponse {
	return pb.WriteResponse{Key: doc.Key, ServerUpdatedAt: doc.UpdatedAt.UTC().Format(serverTimestampLayout)}
}

func (s *GRPCServer) ReadAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := pb.DecodeCollectionRequest(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	docs, err := s.documents.ReadAll(ctx, in.Collection)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	out := make([]pb.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, pb.Document{Key: d.Key, Data: d.Data})
	}
	return encodeOrInternal(pb.EncodeDocuments(out))
}

// Subscribe sends the collection snapshot as one "added" batch and then
// every committed change until the client goes away or the server stops.
func (s *GRPCServer) Subscribe(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	in, err := pb.DecodeCollectionRequest(req)
	if err != nil {
		return s.toStatus(ctx, err)
	}

	snapshot, changes, cancel, err := s.documents.Subscribe(ctx, in.Collection)
	if err != nil {
		return s.toStatus(ctx, err)
	}
	defer cancel()

	initial := make([]pb.Event, 0, len(snapshot))
	for _, d := range snapshot {
		initial = append(initial, pb.Event{Type: string(documents.ChangeAdded), Key: d.Key, Data: d.Data})
	}
	if err := s.sendEvents(stream, initial); err != nil {
		return err
	}

	s.logger.Info(ctx, "Subscription opened", "collection", in.Collection, "principal", PrincipalFromContext(ctx))
	defer s.logger.Info(ctx, "Subscription closed", "collection", in.Collection, "principal", PrincipalFromContext(ctx))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopping:
			return status.Error(codes.Unavailable, "server is shutting down")
		case c, ok := <-changes:
			if !ok {
				return status.Error(codes.ResourceExhausted, "subscriber fell behind")
			}
			batch := []pb.Event{toEvent(c)}
		drain:
			for len(batch) < maxEventBatch {
				select {
				case c, ok := <-changes:
					if !ok {
						break drain
					}
					batch = append(batch, toEvent(c))
				default:
					break drain
				}
			}
			if err := s.sendEvents(stream, batch); err != nil {
				return err
			}
		}
	}
}

func toEvent(c documents.Change) pb.Event {
	return pb.Event{Type: string(c.Type), Key: c.Document.Key, Data: c.Document.Data}
}

func (s *GRPCServer) sendEvents(stream grpc.ServerStreamingServer[structpb.Struct], events []pb.Event) error {
	msg, err := pb.EncodeEvents(events)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.Send(msg)
}
