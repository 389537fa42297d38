// Package services is the surface the presentation layer calls. Every
// mutation is written to the local store first, then announced to change
// subscribers and handed to the sync orchestrator for a best-effort push.
// Remote failures never reach callers.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/notify"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

var (
	ErrDuplicate   = errors.New("duplicate entry")
	ErrEmptyName   = errors.New("name must not be empty")
	ErrInvalidCost = errors.New("cost must be a non-negative number")
)

// PushRequester schedules a background push of one entity type.
type PushRequester interface {
	RequestPush(entity string)
}

// Notifier announces local data changes.
type Notifier interface {
	Notify(entity, source string)
}

type base struct {
	db       *sql.DB
	pusher   PushRequester
	notifier Notifier
	logger   logging.Logger
	now      func() time.Time
}

func newBase(db *sql.DB, pusher PushRequester, notifier Notifier, logger logging.Logger) base {
	return base{db: db, pusher: pusher, notifier: notifier, logger: logger, now: time.Now}
}

func (b *base) timestamp() string {
	return models.Timestamp(b.now())
}

func (b *base) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, b.db, nil, fn)
}

// changed publishes a local change and requests a push.
func (b *base) changed(entity string) {
	if b.notifier != nil {
		b.notifier.Notify(entity, notify.SourceLocal)
	}
	if b.pusher != nil {
		b.pusher.RequestPush(entity)
	}
}
