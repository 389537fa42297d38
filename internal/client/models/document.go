package models

import (
	"strconv"
	"strings"
)

// Common document fields.
const (
	FieldDeleted         = "deleted"
	FieldUpdatedAt       = "updatedAt"
	FieldServerUpdatedAt = "serverUpdatedAt"
)

// Document is the JSON-like payload of one remote document.
type Document map[string]any

// String returns the field as text. Numbers are formatted without
// trailing zeros; missing fields yield "".
func (d Document) String(field string) string {
	switch v := d[field].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Float returns the field as a number. Numeric strings are parsed;
// anything else yields 0.
func (d Document) Float(field string) float64 {
	switch v := d[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Bool accepts booleans and numbers (non-zero is true), which covers
// documents written with 0/1 flags.
func (d Document) Bool(field string) bool {
	switch v := d[field].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

// Deleted reports the document's soft-delete flag.
func (d Document) Deleted() bool {
	return d.Bool(FieldDeleted)
}

// UpdatedAt returns the client-supplied logical clock.
func (d Document) UpdatedAt() string {
	return d.String(FieldUpdatedAt)
}

// ChangeType is the kind of a remote change event.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// ChangeEvent is one change delivered by a remote subscription.
type ChangeEvent struct {
	Type ChangeType
	Key  string
	Data Document
}

// Unsubscribe ends a subscription. Implementations must be idempotent.
type Unsubscribe func()

// Principal is the anonymous identity remote calls are made under.
type Principal struct {
	ID string
}
