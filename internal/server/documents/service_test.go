package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

type failingStore struct{ err error }

func (f failingStore) Put(context.Context, Document) (bool, error)      { return false, f.err }
func (f failingStore) List(context.Context, string) ([]Document, error) { return nil, f.err }

func newTestService() *Service {
	s := NewService(NewMemoryStore(), NewHub(), nopLogger{})
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC) }
	n := 0
	s.newKey = func() string {
		n++
		return "gen-" + string(rune('0'+n))
	}
	return s
}

func TestService_StampsServerTime(t *testing.T) {
	s := newTestService()

	doc, err := s.Upsert(context.Background(), "clients", "Acme", map[string]any{"clientName": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04T05:06:07.008Z", doc.Data[FieldServerUpdatedAt])
	assert.Equal(t, "Acme", doc.Data["clientName"])
}

func TestService_CreateAssignsKey(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	a, err := s.Create(ctx, "expenses", map[string]any{"cost": "1"})
	require.NoError(t, err)
	b, err := s.Create(ctx, "expenses", nil)
	require.NoError(t, err)
	assert.Equal(t, "gen-1", a.Key)
	assert.Equal(t, "gen-2", b.Key)

	docs, err := s.ReadAll(ctx, "expenses")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestService_Validation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Upsert(ctx, "", "k", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.Upsert(ctx, "c", "", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.Create(ctx, "", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.ReadAll(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, _, err = s.Subscribe(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestService_SubscribeSnapshotThenChanges(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	_, err := s.Upsert(ctx, "engineers", "Asif", map[string]any{"engName": "Asif"})
	require.NoError(t, err)

	snapshot, ch, cancel, err := s.Subscribe(ctx, "engineers")
	require.NoError(t, err)
	defer cancel()
	require.Len(t, snapshot, 1)

	_, err = s.Upsert(ctx, "engineers", "Asif", map[string]any{"engName": "Asif", "deleted": true})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "engineers", "Ravi", map[string]any{"engName": "Ravi"})
	require.NoError(t, err)

	first := <-ch
	second := <-ch
	assert.Equal(t, ChangeModified, first.Type)
	assert.Equal(t, true, first.Document.Data["deleted"])
	assert.Equal(t, ChangeAdded, second.Type)
	assert.Equal(t, "Ravi", second.Document.Key)
}

func TestService_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("disk full")
	hub := NewHub()
	s := NewService(failingStore{err: boom}, hub, nopLogger{})
	ctx := context.Background()

	_, err := s.Upsert(ctx, "c", "k", nil)
	assert.ErrorIs(t, err, boom)

	_, _, _, err = s.Subscribe(ctx, "c")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, hub.Subscribers("c"))
}
