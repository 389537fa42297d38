// Package connectivity tracks whether the remote store is reachable.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

const pingTimeout = 3 * time.Second

// Pinger checks server liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor polls a Pinger and reports online/offline transitions.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	logger   logging.Logger

	mu        sync.Mutex
	online    bool
	listeners map[int]func(bool)
	nextID    int
}

func NewMonitor(p Pinger, interval time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{
		pinger:    p,
		interval:  interval,
		logger:    logger.With("module", "connectivity"),
		listeners: map[int]func(bool){},
	}
}

// IsOnline reports the result of the last probe. It is false until the
// first probe succeeds.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers fn to be called with the new state on every
// transition. The returned func unregisters it.
func (m *Monitor) OnChange(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)
	m.Watch(ctx)
}

// Watch probes every interval until ctx is done. The first probe happens
// one interval after the call.
func (m *Monitor) Watch(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Probe pings once and notifies listeners if the state changed.
func (m *Monitor) Probe(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := m.pinger.Ping(pingCtx)
	cancel()

	online := err == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	var fns []func(bool)
	if changed {
		fns = make([]func(bool), 0, len(m.listeners))
		for _, fn := range m.listeners {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	if !changed {
		return online
	}

	if online {
		m.logger.Info(ctx, "Switched to online mode")
	} else {
		m.logger.Info(ctx, "Switched to offline mode", "error", err)
	}

	for _, fn := range fns {
		fn(online)
	}
	return online
}
