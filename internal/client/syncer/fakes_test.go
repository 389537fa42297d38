package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

var errOffline = errors.New("offline")

// fakeRemote keeps documents in memory and records every write.
type fakeRemote struct {
	mu sync.Mutex

	docs    map[string]map[string]models.Document
	readAll map[string][]models.ChangeEvent

	upserts int
	creates int
	nextID  int

	failWrites   bool
	failSub      error
	beforeWrite  func()
	onChange     map[string]func([]models.ChangeEvent)
	onError      map[string]func(error)
	unsubscribed int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:     map[string]map[string]models.Document{},
		readAll:  map[string][]models.ChangeEvent{},
		onChange: map[string]func([]models.ChangeEvent){},
		onError:  map[string]func(error){},
	}
}

func (f *fakeRemote) Upsert(_ context.Context, collection, key string, doc models.Document) error {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errOffline
	}
	f.upserts++
	f.put(collection, key, doc)
	return nil
}

func (f *fakeRemote) Create(_ context.Context, collection string, doc models.Document) (string, error) {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return "", errOffline
	}
	f.creates++
	f.nextID++
	key := fmt.Sprintf("doc-%d", f.nextID)
	f.put(collection, key, doc)
	return key, nil
}

func (f *fakeRemote) put(collection, key string, doc models.Document) {
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]models.Document{}
	}
	f.docs[collection][key] = doc
}

func (f *fakeRemote) ReadAll(_ context.Context, collection string) ([]models.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readAll[collection], nil
}

func (f *fakeRemote) Subscribe(_ context.Context, collection string, onChange func([]models.ChangeEvent), onError func(error)) (models.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSub != nil {
		return nil, f.failSub
	}
	f.onChange[collection] = onChange
	f.onError[collection] = onError
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.unsubscribed++
			delete(f.onChange, collection)
			f.mu.Unlock()
		})
	}, nil
}

func (f *fakeRemote) emit(collection string, events ...models.ChangeEvent) {
	f.mu.Lock()
	cb := f.onChange[collection]
	f.mu.Unlock()
	if cb != nil {
		cb(events)
	}
}

func (f *fakeRemote) fail(collection string, err error) {
	if cb := f.errorHandler(collection); cb != nil {
		cb(err)
	}
}

// errorHandler returns the onError callback of the latest subscription.
func (f *fakeRemote) errorHandler(collection string) func(error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onError[collection]
}

func (f *fakeRemote) unsubscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

func (f *fakeRemote) doc(collection, key string) (models.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[collection][key]
	return d, ok
}

func (f *fakeRemote) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[collection])
}

func (f *fakeRemote) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts + f.creates
}

type fakeIdentity struct {
	err   error
	calls int
}

func (f *fakeIdentity) EnsureSignedIn(context.Context) (models.Principal, error) {
	f.calls++
	if f.err != nil {
		return models.Principal{}, f.err
	}
	return models.Principal{ID: "device-1"}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	sources []string
}

func (n *recordingNotifier) Notify(_ string, source string) {
	n.mu.Lock()
	n.sources = append(n.sources, source)
	n.mu.Unlock()
}

func (n *recordingNotifier) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sources...)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }
