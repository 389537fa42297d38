// Package notify fans out "local data changed" signals to the presentation
// layer: in-process subscribers via Hub and external ones via a websocket Feed.
package notify

import (
	"sync"
	"time"
)

// Change sources.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
	SourcePush   = "push"
)

// Change says that rows of Entity changed in the local store.
type Change struct {
	Entity string    `json:"entity"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[int]func(Change)
	nextID int
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{subs: map[int]func(Change){}, now: time.Now}
}

// Subscribe registers fn and returns a func that removes it.
func (h *Hub) Subscribe(fn func(Change)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

// Publish calls every subscriber synchronously.
func (h *Hub) Publish(c Change) {
	if c.At.IsZero() {
		c.At = h.now().UTC()
	}

	h.mu.RLock()
	fns := make([]func(Change), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Notify publishes a change; it lets Hub serve as a syncer.Notifier.
func (h *Hub) Notify(entity, source string) {
	h.Publish(Change{Entity: entity, Source: source})
}
