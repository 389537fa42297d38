package documents

import "context"

// Store persists documents. Implementations must be safe for concurrent use.
type Store interface {
	// Put writes the document and reports whether its key was new.
	Put(ctx context.Context, doc Document) (created bool, err error)
	// List returns every document of a collection, oldest write first.
	List(ctx context.Context, collection string) ([]Document, error)
}
