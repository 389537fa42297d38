package proto

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Message field names.
const (
	FieldPrincipal       = "principal"
	FieldAccessToken     = "access_token"
	FieldStatus          = "status"
	FieldCollection      = "collection"
	FieldKey             = "key"
	FieldDocument        = "document"
	FieldDocuments       = "documents"
	FieldServerUpdatedAt = "server_updated_at"
	FieldEvents          = "events"
	FieldType            = "type"
	FieldData            = "data"
)

const StatusOK = "OK"

var ErrMissingField = errors.New("missing required field")

type SignInRequest struct {
	Principal string
}

type SignInResponse struct {
	Principal   string
	AccessToken string
}

// WriteRequest carries Upsert and Create. Key is empty for Create.
type WriteRequest struct {
	Collection string
	Key        string
	Document   map[string]any
}

type WriteResponse struct {
	Key             string
	ServerUpdatedAt string
}

type CollectionRequest struct {
	Collection string
}

type Document struct {
	Key  string
	Data map[string]any
}

type Event struct {
	Type string
	Key  string
	Data map[string]any
}

func (r SignInRequest) Encode() (*structpb.Struct, error) {
	m := map[string]any{}
	if r.Principal != "" {
		m[FieldPrincipal] = r.Principal
	}
	return structpb.NewStruct(m)
}

func DecodeSignInRequest(s *structpb.Struct) SignInRequest {
	return SignInRequest{Principal: str(s.AsMap(), FieldPrincipal)}
}

func (r SignInResponse) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldPrincipal:   r.Principal,
		FieldAccessToken: r.AccessToken,
	})
}

func DecodeSignInResponse(s *structpb.Struct) (SignInResponse, error) {
	m := s.AsMap()
	r := SignInResponse{Principal: str(m, FieldPrincipal), AccessToken: str(m, FieldAccessToken)}
	if r.Principal == "" || r.AccessToken == "" {
		return r, fmt.Errorf("sign in response: %w", ErrMissingField)
	}
	return r, nil
}

func (r WriteRequest) Encode() (*structpb.Struct, error) {
	doc := r.Document
	if doc == nil {
		doc = map[string]any{}
	}
	m := map[string]any{
		FieldCollection: r.Collection,
		FieldDocument:   doc,
	}
	if r.Key != "" {
		m[FieldKey] = r.Key
	}
	return structpb.NewStruct(m)
}

// DecodeWriteRequest requires a collection; whether a key is required
// depends on the method.
func DecodeWriteRequest(s *structpb.Struct) (WriteRequest, error) {
	m := s.AsMap()
	r := WriteRequest{
		Collection: str(m, FieldCollection),
		Key:        str(m, FieldKey),
		Document:   obj(m, FieldDocument),
	}
	if r.Collection == "" {
		return r, fmt.Errorf("%s: %w", FieldCollection, ErrMissingField)
	}
	if r.Document == nil {
		r.Document = map[string]any{}
	}
	return r, nil
}

func (r WriteResponse) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldKey:             r.Key,
		FieldServerUpdatedAt: r.ServerUpdatedAt,
	})
}

func DecodeWriteResponse(s *structpb.Struct) WriteResponse {
	m := s.AsMap()
	return WriteResponse{Key: str(m, FieldKey), ServerUpdatedAt: str(m, FieldServerUpdatedAt)}
}

func (r CollectionRequest) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{FieldCollection: r.Collection})
}

func DecodeCollectionRequest(s *structpb.Struct) (CollectionRequest, error) {
	r := CollectionRequest{Collection: str(s.AsMap(), FieldCollection)}
	if r.Collection == "" {
		return r, fmt.Errorf("%s: %w", FieldCollection, ErrMissingField)
	}
	return r, nil
}

func EncodeDocuments(docs []Document) (*structpb.Struct, error) {
	list := make([]any, 0, len(docs))
	for _, d := range docs {
		list = append(list, map[string]any{FieldKey: d.Key, FieldData: orEmpty(d.Data)})
	}
	return structpb.NewStruct(map[string]any{FieldDocuments: list})
}

func DecodeDocuments(s *structpb.Struct) []Document {
	var out []Document
	for _, item := range items(s.AsMap(), FieldDocuments) {
		out = append(out, Document{Key: str(item, FieldKey), Data: orEmpty(obj(item, FieldData))})
	}
	return out
}

func EncodeEvents(events []Event) (*structpb.Struct, error) {
	list := make([]any, 0, len(events))
	for _, e := range events {
		list = append(list, map[string]any{FieldType: e.Type, FieldKey: e.Key, FieldData: orEmpty(e.Data)})
	}
	return structpb.NewStruct(map[string]any{FieldEvents: list})
}

func DecodeEvents(s *structpb.Struct) []Event {
	var out []Event
	for _, item := range items(s.AsMap(), FieldEvents) {
		out = append(out, Event{Type: str(item, FieldType), Key: str(item, FieldKey), Data: orEmpty(obj(item, FieldData))})
	}
	return out
}

func str(m map[string]any, k string) string {
	s, _ := m[k].(string)
	return s
}

func obj(m map[string]any, k string) map[string]any {
	o, _ := m[k].(map[string]any)
	return o
}

func items(m map[string]any, k string) []map[string]any {
	list, _ := m[k].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if item, ok := v.(map[string]any); ok {
			out = append(out, item)
		}
	}
	return out
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
