package documents

import "sync"

// subscriberBuffer is how many changes a subscriber may lag behind before
// it is dropped.
const subscriberBuffer = 256

// Hub fans committed changes out to per-collection subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Change]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Change]struct{})}
}

// Subscribe registers a listener for one collection. The channel is closed
// when cancel is called or when the listener falls too far behind.
func (h *Hub) Subscribe(collection string) (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	h.mu.Lock()
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[chan Change]struct{})
	}
	h.subs[collection][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			h.drop(collection, ch)
			h.mu.Unlock()
		})
	}
}

// Publish never blocks.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[c.Document.Collection] {
		select {
		case ch <- Change{Type: c.Type, Document: c.Document.clone()}:
		default:
			h.drop(c.Document.Collection, ch)
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(collection string, ch chan Change) {
	subs := h.subs[collection]
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(h.subs, collection)
	}
}

// Subscribers returns the number of listeners on a collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}
