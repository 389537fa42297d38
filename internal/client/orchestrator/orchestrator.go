// Package orchestrator drives the reconcilers: it starts them, triggers push
// sweeps after local writes and on reconnect, and tears them down.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"golang.org/x/sync/errgroup"
)

// defaultRetryInterval is how often reconcilers that are not running are
// started again while the device is online.
const defaultRetryInterval = 5 * time.Second

var ErrUnknownEntity = errors.New("unknown entity")

// Syncer is one entity's reconciler.
type Syncer interface {
	Entity() string
	State() syncer.State
	Start(ctx context.Context) error
	Stop()
	Push(ctx context.Context) (syncer.PushResult, error)
	Resync(ctx context.Context) error
}

// Connectivity reports reachability of the remote store.
type Connectivity interface {
	IsOnline() bool
	OnChange(fn func(online bool)) func()
}

// Identity signs the device in.
type Identity interface {
	syncer.Identity
}

// pushSlot coalesces background push requests for one entity.
type pushSlot struct {
	running bool
	queued  bool
}

type Orchestrator struct {
	syncers  map[string]Syncer
	order    []string
	conn     Connectivity
	identity Identity
	logger   logging.Logger

	retryInterval time.Duration
	quit          chan struct{}

	mu         sync.Mutex
	bg         context.Context
	slots      map[string]*pushSlot
	started    bool
	stopped    bool
	unregister func()
	wg         sync.WaitGroup
}

func New(syncers []Syncer, conn Connectivity, identity Identity, logger logging.Logger) *Orchestrator {
	o := &Orchestrator{
		syncers:  make(map[string]Syncer, len(syncers)),
		conn:     conn,
		identity: identity,
		logger:   logger.With("module", "orchestrator"),
		bg:       context.Background(),
		slots:    make(map[string]*pushSlot, len(syncers)),

		retryInterval: defaultRetryInterval,
		quit:          make(chan struct{}),
	}
	for _, s := range syncers {
		o.syncers[s.Entity()] = s
		o.order = append(o.order, s.Entity())
		o.slots[s.Entity()] = &pushSlot{}
	}
	return o
}

// Start wires the connectivity listener and, when online, starts every
// reconciler and pushes pending changes. Reconcilers that fail to start, or
// lose their subscription later, are started again on reconnect, on the next
// push of their entity, or by the periodic retry. Start errors are returned
// joined.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started || o.stopped {
		o.mu.Unlock()
		return nil
	}
	o.started = true
	o.bg = context.WithoutCancel(ctx)
	o.unregister = o.conn.OnChange(o.onConnectivityChange)
	o.wg.Add(1)
	go o.retryLoop(o.bg)
	o.mu.Unlock()

	if !o.conn.IsOnline() {
		o.logger.Info(ctx, "Starting offline, sync deferred until the server is reachable")
		return nil
	}

	if _, err := o.identity.EnsureSignedIn(ctx); err != nil {
		o.logger.Warn(ctx, "Sign-in failed, sync deferred", "error", err)
		return err
	}

	return o.resume(ctx)
}

// resume starts the reconcilers that are not running and pushes every entity.
func (o *Orchestrator) resume(ctx context.Context) error {
	err := o.startPending(ctx)
	for _, entity := range o.order {
		o.RequestPush(entity)
	}
	return err
}

func (o *Orchestrator) hasPending() bool {
	for _, entity := range o.order {
		if o.syncers[entity].State() == syncer.StateUninitialized {
			return true
		}
	}
	return false
}

func (o *Orchestrator) retryLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.quit:
			return
		case <-ticker.C:
			if !o.conn.IsOnline() || !o.hasPending() {
				continue
			}
			o.logger.Info(ctx, "Restarting stalled reconcilers")
			_ = o.resume(ctx)
		}
	}
}

func (o *Orchestrator) startPending(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, entity := range o.order {
		s := o.syncers[entity]
		if s.State() != syncer.StateUninitialized {
			continue
		}
		g.Go(func() error {
			if err := s.Start(gctx); err != nil {
				o.logger.Warn(ctx, "Reconciler not started", "entity", s.Entity(), "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.Entity(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (o *Orchestrator) onConnectivityChange(online bool) {
	if !online {
		return
	}

	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	ctx := o.bg
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		o.logger.Info(ctx, "Back online, resuming sync")
		_ = o.resume(ctx)
	}()
}

// RequestPush schedules a background push of entity. While a push for the
// entity runs, further requests collapse into one follow-up sweep. Requests
// made while offline are dropped; reconnecting pushes everything.
func (o *Orchestrator) RequestPush(entity string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	slot, ok := o.slots[entity]
	if !ok || o.stopped || !o.started {
		return
	}
	if !o.conn.IsOnline() {
		o.logger.Debug(o.bg, "Offline, push deferred", "entity", entity)
		return
	}
	if slot.running {
		slot.queued = true
		return
	}

	slot.running = true
	o.wg.Add(1)
	go o.pushLoop(o.bg, entity, slot)
}

func (o *Orchestrator) pushLoop(ctx context.Context, entity string, slot *pushSlot) {
	defer o.wg.Done()

	s := o.syncers[entity]
	if s.State() == syncer.StateUninitialized {
		if err := s.Start(ctx); err != nil {
			o.logger.Warn(ctx, "Reconciler not started", "entity", entity, "error", err)
		}
	}
	for {
		if _, err := s.Push(ctx); err != nil {
			o.logger.Warn(ctx, "Background push failed", "entity", entity, "error", err)
		}

		o.mu.Lock()
		if slot.queued && !o.stopped {
			slot.queued = false
			o.mu.Unlock()
			continue
		}
		slot.running, slot.queued = false, false
		o.mu.Unlock()
		return
	}
}

// PushAll runs one push sweep per entity and waits for all of them.
func (o *Orchestrator) PushAll(ctx context.Context) (map[string]syncer.PushResult, error) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	results := make(map[string]syncer.PushResult, len(o.order))

	for _, entity := range o.order {
		s := o.syncers[entity]
		g.Go(func() error {
			res, err := s.Push(gctx)
			mu.Lock()
			results[s.Entity()] = res
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("%s: %w", s.Entity(), err)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// Resync re-reads one entity from the remote store, or all of them when
// entity is empty.
func (o *Orchestrator) Resync(ctx context.Context, entity string) error {
	if entity != "" {
		s, ok := o.syncers[entity]
		if !ok {
			return fmt.Errorf("%q: %w", entity, ErrUnknownEntity)
		}
		return s.Resync(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range o.order {
		s := o.syncers[e]
		g.Go(func() error { return s.Resync(gctx) })
	}
	return g.Wait()
}

// States reports each reconciler's lifecycle state.
func (o *Orchestrator) States() map[string]syncer.State {
	out := make(map[string]syncer.State, len(o.order))
	for _, e := range o.order {
		out[e] = o.syncers[e].State()
	}
	return out
}

// Stop unsubscribes every reconciler and waits for background pushes.
// It is safe to call more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	unregister := o.unregister
	close(o.quit)
	o.mu.Unlock()

	if unregister != nil {
		unregister()
	}
	for _, e := range o.order {
		o.syncers[e].Stop()
	}
	o.wg.Wait()
	o.logger.Info(context.Background(), "Sync stopped")
}
