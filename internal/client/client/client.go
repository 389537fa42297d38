package client

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Client is the remote document store as seen by the rest of the client.
type Client interface {
	Close() error
	SignIn(ctx context.Context, principalID string) (models.Principal, error)
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, collection, key string, doc models.Document) error
	Create(ctx context.Context, collection string, doc models.Document) (string, error)
	ReadAll(ctx context.Context, collection string) ([]models.ChangeEvent, error)
	Subscribe(ctx context.Context, collection string, onChange func([]models.ChangeEvent), onError func(error)) (models.Unsubscribe, error)
}
