package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// taskQueueSize bounds the batches waiting for the apply worker. A full
// queue blocks the subscription reader.
const taskQueueSize = 64

var (
	ErrStopped  = errors.New("reconciler stopped")
	errEmptyKey = errors.New("change event without key")
)

// State is the lifecycle state of a Reconciler.
type State int

const (
	// StateUninitialized: not subscribed. Start may be called.
	StateUninitialized State = iota
	// StateListening: the subscription is open and the worker is running.
	StateListening
	// StateSuspended is terminal. It follows Stop or a rejected subscription.
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateSuspended:
		return "suspended"
	default:
		return "uninitialized"
	}
}

// PushResult summarizes one push sweep.
type PushResult struct {
	Attempted int
	Pushed    int
	Failed    int
}

// Reconciler keeps one entity's local table and its remote collection in
// step: it pushes dirty rows and applies remote change batches under the
// entity's Policy.
type Reconciler[T any] struct {
	policy   Policy[T]
	store    Store[T]
	remote   Remote
	identity Identity
	notifier Notifier
	logger   logging.Logger
	now      func() time.Time

	// mu serializes push sweeps and apply tasks.
	mu sync.Mutex

	stateMu     sync.Mutex
	state       State
	gen         uint64
	unsubscribe models.Unsubscribe
	done        chan struct{}
	exited      chan struct{}
	wg          sync.WaitGroup

	errMu  sync.Mutex
	subErr error
}

// New returns an uninitialized Reconciler for the entity described by p.
func New[T any](p Policy[T], store Store[T], remote Remote, identity Identity, notifier Notifier, logger logging.Logger) *Reconciler[T] {
	return &Reconciler[T]{
		policy:   p,
		store:    store,
		remote:   remote,
		identity: identity,
		notifier: notifier,
		logger:   logger.With("module", "reconciler", "entity", p.Entity),
		now:      time.Now,
	}
}

// Entity returns the entity name of the policy.
func (r *Reconciler[T]) Entity() string {
	return r.policy.Entity
}

// State reports the lifecycle state.
func (r *Reconciler[T]) State() State {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.state
}

// SubscriptionErr returns the error that ended the last subscription, if
// any. It is cleared by the next successful Start.
func (r *Reconciler[T]) SubscriptionErr() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.subErr
}

func (r *Reconciler[T]) setSubscriptionErr(err error) {
	r.errMu.Lock()
	r.subErr = err
	r.errMu.Unlock()
}

func (r *Reconciler[T]) timestamp() string {
	return models.Timestamp(r.now())
}

func (r *Reconciler[T]) notify(source string) {
	if r.notifier != nil {
		r.notifier.Notify(r.policy.Entity, source)
	}
}

// Start resolves the identity, opens the remote subscription and starts the
// apply worker. Starting a listening reconciler is a no-op.
func (r *Reconciler[T]) Start(ctx context.Context) error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	switch r.state {
	case StateListening:
		return nil
	case StateSuspended:
		return ErrStopped
	}

	if _, err := r.identity.EnsureSignedIn(ctx); err != nil {
		return err
	}

	// The subscription and the worker outlive the caller's context.
	base := context.WithoutCancel(ctx)

	tasks := make(chan []models.ChangeEvent, taskQueueSize)
	done := make(chan struct{})

	onChange := func(events []models.ChangeEvent) {
		select {
		case tasks <- events:
		case <-done:
		}
	}

	r.gen++
	gen := r.gen
	onError := func(err error) {
		r.subscriptionFailed(gen, err)
	}

	exited := make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer close(exited)
		r.work(base, tasks, done)
	}()

	r.setSubscriptionErr(nil)
	unsubscribe, err := r.remote.Subscribe(base, r.policy.Collection, onChange, onError)
	if err != nil {
		close(done)
		<-exited
		err = common.RemoteSubscriptionError("subscribe "+r.policy.Collection, err)
		r.logger.Error(ctx, "failed to subscribe", "error", err)
		return err
	}

	r.unsubscribe = unsubscribe
	r.done, r.exited = done, exited
	r.state = StateListening
	r.logger.Info(ctx, "listening for remote changes", "collection", r.policy.Collection)
	return nil
}

// subscriptionFailed tears down the subscription started as generation gen.
// Transport failures leave the reconciler Uninitialized so that it can be
// started again; anything else suspends it.
func (r *Reconciler[T]) subscriptionFailed(gen uint64, err error) {
	transient := errors.Is(err, common.ErrRemoteUnavailable)
	err = common.RemoteSubscriptionError("subscribe "+r.policy.Collection, err)

	r.stateMu.Lock()
	if gen != r.gen || r.state != StateListening {
		r.stateMu.Unlock()
		return
	}
	unsubscribe, done, exited := r.unsubscribe, r.done, r.exited
	r.unsubscribe, r.done, r.exited = nil, nil, nil
	if transient {
		r.state = StateUninitialized
	} else {
		r.state = StateSuspended
	}
	r.setSubscriptionErr(err)
	r.stateMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	close(done)
	<-exited

	if transient {
		r.logger.Warn(context.Background(), "remote subscription lost", "error", err)
		return
	}
	r.logger.Error(context.Background(), "remote subscription ended", "error", err)
}

// Stop unsubscribes and waits for the apply task in progress to finish.
// It is safe to call more than once.
func (r *Reconciler[T]) Stop() {
	r.stateMu.Lock()
	if r.state != StateListening {
		r.state = StateSuspended
		r.stateMu.Unlock()
		r.wg.Wait()
		return
	}
	r.state = StateSuspended
	unsubscribe, done := r.unsubscribe, r.done
	r.unsubscribe, r.done, r.exited = nil, nil, nil
	r.stateMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	close(done)
	r.wg.Wait()
	r.logger.Info(context.Background(), "stopped")
}

func (r *Reconciler[T]) work(ctx context.Context, tasks <-chan []models.ChangeEvent, done <-chan struct{}) {
	defer r.wg.Done()
	for {
		select {
		case <-done:
			return
		case batch := <-tasks:
			r.applyBatch(ctx, batch)
		}
	}
}

// Resync reads every remote document and applies it as an added event.
func (r *Reconciler[T]) Resync(ctx context.Context) error {
	if _, err := r.identity.EnsureSignedIn(ctx); err != nil {
		return err
	}
	events, err := r.remote.ReadAll(ctx, r.policy.Collection)
	if err != nil {
		return common.RemoteSubscriptionError("read "+r.policy.Collection, err)
	}
	r.applyBatch(ctx, events)
	return nil
}

func (r *Reconciler[T]) applyBatch(ctx context.Context, events []models.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	changed := false

	r.mu.Lock()
	for _, ev := range events {
		c, err := r.apply(ctx, ev)
		if err != nil {
			r.logger.Warn(ctx, "failed to apply remote change", "key", ev.Key, "type", string(ev.Type), "error", err)
			continue
		}
		changed = changed || c
	}
	r.mu.Unlock()

	if changed {
		r.notify(SourceRemote)
	}
}

// apply merges one remote change and reports whether local state changed.
func (r *Reconciler[T]) apply(ctx context.Context, ev models.ChangeEvent) (bool, error) {
	if ev.Key == "" {
		return false, errEmptyKey
	}
	if ev.Data == nil {
		ev.Data = models.Document{}
	}

	incoming, err := r.policy.Decode(ev.Key, ev.Data)
	if err != nil {
		return false, err
	}

	if ev.Type == models.ChangeRemoved || ev.Data.Deleted() {
		return r.applyDelete(ctx, ev, &incoming)
	}

	local, err := r.locate(ctx, ev.Key, &incoming, true)
	if err != nil {
		return false, err
	}

	remoteUpdatedAt := ev.Data.UpdatedAt()

	if local == nil {
		m := r.policy.Meta(&incoming)
		m.RemoteID = ev.Key
		m.Deleted = false
		m.Dirty = false
		m.UpdatedAt = remoteUpdatedAt
		if _, err := r.store.InsertRemote(ctx, &incoming); err != nil {
			return false, common.LocalWriteError("insert "+r.policy.Entity, err)
		}
		return true, nil
	}

	lm := r.policy.Meta(local)
	changed := false

	if lm.RemoteID == "" {
		if err := r.store.Link(ctx, lm.LocalID, ev.Key); err != nil {
			return false, common.LocalWriteError("link "+r.policy.Entity, err)
		}
		lm.RemoteID = ev.Key
		changed = true
	}

	if lm.Deleted {
		r.reassertDelete(ctx, ev.Key, local)
		return changed, nil
	}

	if lm.Dirty {
		r.logger.Debug(ctx, "local row has pending changes, remote change skipped", "key", ev.Key, "local_id", lm.LocalID)
		return changed, nil
	}

	if !models.RemoteIsNewer(remoteUpdatedAt, lm.UpdatedAt) {
		return changed, nil
	}

	m := r.policy.Meta(&incoming)
	m.LocalID = lm.LocalID
	m.RemoteID = lm.RemoteID
	m.Deleted = false
	m.Dirty = false
	m.UpdatedAt = remoteUpdatedAt
	if err := r.store.ApplyRemote(ctx, &incoming); err != nil {
		return false, common.LocalWriteError("update "+r.policy.Entity, err)
	}
	return true, nil
}

func (r *Reconciler[T]) applyDelete(ctx context.Context, ev models.ChangeEvent, incoming *T) (bool, error) {
	local, err := r.locate(ctx, ev.Key, incoming, r.policy.NaturalKey != nil)
	if err != nil {
		return false, err
	}
	if local == nil {
		return false, nil
	}

	lm := r.policy.Meta(local)
	if lm.Deleted {
		return false, nil
	}

	updatedAt := ev.Data.UpdatedAt()
	if updatedAt == "" {
		updatedAt = r.timestamp()
	}
	if err := r.store.MarkDeletedRemote(ctx, lm.LocalID, ev.Key, updatedAt); err != nil {
		return false, common.LocalWriteError("delete "+r.policy.Entity, err)
	}
	return true, nil
}

func (r *Reconciler[T]) locate(ctx context.Context, key string, candidate *T, allowMatch bool) (*T, error) {
	row, err := r.store.FindByRemoteID(ctx, key)
	if err != nil {
		return nil, common.LocalWriteError("find "+r.policy.Entity, err)
	}
	if row != nil || !allowMatch {
		return row, nil
	}

	row, err = r.store.FindMatch(ctx, candidate)
	if err != nil {
		return nil, common.LocalWriteError("match "+r.policy.Entity, err)
	}
	return row, nil
}

// reassertDelete answers a stale "active" event for a locally deleted row by
// writing the deletion back to the remote document.
func (r *Reconciler[T]) reassertDelete(ctx context.Context, key string, local *T) {
	doc := r.policy.Encode(local)
	doc[models.FieldDeleted] = true
	doc[models.FieldUpdatedAt] = r.timestamp()

	if err := r.remote.Upsert(ctx, r.policy.Collection, key, doc); err != nil {
		r.logger.Warn(ctx, "failed to re-push deletion", "key", key, "error", common.RemoteWriteError("upsert "+key, err))
		return
	}
	r.logger.Info(ctx, "re-pushed deletion for stale remote document", "key", key)
}

// Push writes every dirty row to the remote store.
func (r *Reconciler[T]) Push(ctx context.Context) (PushResult, error) {
	if _, err := r.identity.EnsureSignedIn(ctx); err != nil {
		r.logger.Warn(ctx, "push abandoned", "error", err)
		return PushResult{}, err
	}

	res, err := r.sweep(ctx)
	if err != nil {
		r.logger.Error(ctx, "push failed", "error", err)
		return res, err
	}

	if res.Attempted > 0 {
		r.logger.Info(ctx, "push finished", "pushed", res.Pushed, "failed", res.Failed)
	}
	if res.Pushed > 0 {
		r.notify(SourcePush)
	}
	return res, nil
}

func (r *Reconciler[T]) sweep(ctx context.Context) (PushResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res PushResult

	rows, err := r.store.GetDirty(ctx)
	if err != nil {
		return res, common.LocalWriteError("load dirty "+r.policy.Entity, err)
	}

	for i := range rows {
		res.Attempted++
		if err := r.pushRow(ctx, &rows[i]); err != nil {
			res.Failed++
			m := r.policy.Meta(&rows[i])
			r.logger.Warn(ctx, "push failed, row stays dirty", "local_id", m.LocalID, "remote_id", m.RemoteID, "error", err)
			continue
		}
		res.Pushed++
	}
	return res, nil
}

func (r *Reconciler[T]) pushRow(ctx context.Context, row *T) error {
	m := r.policy.Meta(row)
	seen := m.UpdatedAt
	now := r.timestamp()

	doc := r.policy.Encode(row)
	doc[models.FieldDeleted] = m.Deleted
	doc[models.FieldUpdatedAt] = now

	key := m.RemoteID
	if key == "" && r.policy.NaturalKey != nil {
		key = r.policy.NaturalKey(row)
	}

	if key == "" {
		created, err := r.remote.Create(ctx, r.policy.Collection, doc)
		if err != nil {
			return common.RemoteWriteError("create "+r.policy.Entity, err)
		}
		key = created
	} else if err := r.remote.Upsert(ctx, r.policy.Collection, key, doc); err != nil {
		return common.RemoteWriteError("upsert "+r.policy.Entity+"/"+key, err)
	}

	if err := r.store.MarkSynced(ctx, m.LocalID, key, seen, now); err != nil {
		return common.LocalWriteError("mark synced "+r.policy.Entity, err)
	}
	return nil
}
