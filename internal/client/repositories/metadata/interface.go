// Package metadata is a small key/value table for client-local settings
// that are not synced, such as the cached principal id.
package metadata

import "context"

// KeyAnonPrincipal holds the id of the anonymous principal this device
// signed in as.
const KeyAnonPrincipal = "anon_principal"

type Repository interface {
	// Get returns ("", false, nil) for a missing key.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
