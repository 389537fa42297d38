package syncer

import (
	"context"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
)

// Remote is the remote document store.
type Remote interface {
	Upsert(ctx context.Context, collection, key string, doc models.Document) error
	Create(ctx context.Context, collection string, doc models.Document) (string, error)
	ReadAll(ctx context.Context, collection string) ([]models.ChangeEvent, error)
	Subscribe(ctx context.Context, collection string, onChange func([]models.ChangeEvent), onError func(error)) (models.Unsubscribe, error)
}

// Identity resolves the principal remote calls run under.
type Identity interface {
	EnsureSignedIn(ctx context.Context) (models.Principal, error)
}

// Notifier receives "local data changed" signals.
type Notifier interface {
	Notify(entity, source string)
}

// Notification sources.
const (
	SourceRemote = "remote"
	SourcePush   = "push"
)

// Store is the slice of a local repository a Reconciler needs.
// Lookups return (nil, nil) when nothing matches.
type Store[T any] interface {
	GetDirty(ctx context.Context) ([]T, error)
	FindByRemoteID(ctx context.Context, remoteID string) (*T, error)
	// FindMatch finds the local row a remote document most likely stands for
	// when no row is linked to its key yet.
	FindMatch(ctx context.Context, candidate *T) (*T, error)
	// InsertRemote stores a row sourced from the remote store as synced.
	InsertRemote(ctx context.Context, row *T) (int64, error)
	// ApplyRemote overwrites the row with LocalID from remote data and marks it synced.
	ApplyRemote(ctx context.Context, row *T) error
	Link(ctx context.Context, localID int64, remoteID string) error
	// MarkSynced clears the dirty flag only if updated_at still equals
	// seenUpdatedAt; the remote id is stamped either way.
	MarkSynced(ctx context.Context, localID int64, remoteID, seenUpdatedAt, pushedUpdatedAt string) error
	MarkDeletedRemote(ctx context.Context, localID int64, remoteID, updatedAt string) error
}

// Policy describes one entity to the generic Reconciler.
type Policy[T any] struct {
	Entity     string
	Collection string
	Meta       func(*T) *models.SyncMeta
	// Encode renders business fields; the reconciler adds deleted and updatedAt.
	Encode func(*T) models.Document
	Decode func(key string, doc models.Document) (T, error)
	// NaturalKey derives the remote key from content. Nil means the remote
	// store assigns keys and deletes are matched by key only.
	NaturalKey func(*T) string
}
