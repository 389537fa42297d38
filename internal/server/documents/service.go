package documents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/google/uuid"
)

// Service validates writes, stamps the server timestamp and publishes every
// committed change to the hub.
type Service struct {
	store  Store
	hub    *Hub
	logger logging.Logger
	now    func() time.Time
	newKey func() string

	// mu keeps commit order and publish order identical.
	mu sync.Mutex
}

func NewService(store Store, hub *Hub, logger logging.Logger) *Service {
	return &Service{
		store:  store,
		hub:    hub,
		logger: logger.With("module", "documents"),
		now:    time.Now,
		newKey: uuid.NewString,
	}
}

func validate(collection, key string) error {
	if collection == "" {
		return fmt.Errorf("empty collection: %w", ErrInvalidArgument)
	}
	if key == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}
	return nil
}

// Upsert writes the document at a caller-chosen key.
func (s *Service) Upsert(ctx context.Context, collection, key string, data map[string]any) (Document, error) {
	if err := validate(collection, key); err != nil {
		return Document{}, err
	}
	return s.write(ctx, collection, key, data)
}

// Create writes the document at a new random key.
func (s *Service) Create(ctx context.Context, collection string, data map[string]any) (Document, error) {
	if collection == "" {
		return Document{}, fmt.Errorf("empty collection: %w", ErrInvalidArgument)
	}
	return s.write(ctx, collection, s.newKey(), data)
}

func (s *Service) write(ctx context.Context, collection, key string, data map[string]any) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	doc := Document{Collection: collection, Key: key, Data: data, UpdatedAt: now}.clone()
	doc.Data[FieldServerUpdatedAt] = now.Format(timestampLayout)

	created, err := s.store.Put(ctx, doc)
	if err != nil {
		return Document{}, err
	}

	change := Change{Type: ChangeModified, Document: doc}
	if created {
		change.Type = ChangeAdded
	}
	s.hub.Publish(change)
	s.logger.Debug(ctx, "document written", "collection", collection, "key", key, "type", string(change.Type))
	return doc, nil
}

func (s *Service) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("empty collection: %w", ErrInvalidArgument)
	}
	return s.store.List(ctx, collection)
}

// Subscribe returns the current snapshot together with a channel of the
// changes committed after it. Writes are held off while both are taken,
// so no change is missed or repeated.
func (s *Service) Subscribe(ctx context.Context, collection string) ([]Document, <-chan Change, func(), error) {
	if collection == "" {
		return nil, nil, nil, fmt.Errorf("empty collection: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	ch, cancel := s.hub.Subscribe(collection)
	snapshot, err := s.store.List(ctx, collection)
	s.mu.Unlock()

	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return snapshot, ch, cancel, nil
}
