// Package documents is the server side of the remote change store: a
// collection/key document store with pluggable persistence and a change
// hub that feeds streaming subscriptions.
package documents

import (
	"errors"
	"maps"
	"time"
)

// FieldServerUpdatedAt is stamped into every stored document. Clients use
// it for diagnostics only; conflicts are resolved on their own updatedAt.
const FieldServerUpdatedAt = "serverUpdatedAt"

const timestampLayout = "2006-01-02T15:04:05.000Z"

var ErrInvalidArgument = errors.New("invalid argument")

type Document struct {
	Collection string
	Key        string
	Data       map[string]any
	UpdatedAt  time.Time
}

func (d Document) clone() Document {
	d.Data = maps.Clone(d.Data)
	if d.Data == nil {
		d.Data = map[string]any{}
	}
	return d
}

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
)

type Change struct {
	Type     ChangeType
	Document Document
}
