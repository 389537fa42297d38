package models

import "strings"

// Named is an engineer or a client: a display name that doubles as the
// natural key.
type Named struct {
	SyncMeta
	Name string
}

// Document name fields. The legacy field "name" is read but never written.
const (
	FieldEngineerName = "engName"
	FieldClientName   = "clientName"
	FieldLegacyName   = "name"
)

// NormalizeName trims surrounding whitespace.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}
