package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps documents in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]Document)}
}

func (m *MemoryStore) Put(_ context.Context, doc Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.docs[doc.Collection]
	if !ok {
		c = make(map[string]Document)
		m.docs[doc.Collection] = c
	}
	_, exists := c[doc.Key]
	c[doc.Key] = doc.clone()
	return !exists, nil
}

func (m *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Document, 0, len(m.docs[collection]))
	for _, d := range m.docs[collection] {
		out = append(out, d.clone())
	}
	sortByWrite(out)
	return out, nil
}

func sortByWrite(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.Before(docs[j].UpdatedAt)
		}
		return docs[i].Key < docs[j].Key
	})
}
