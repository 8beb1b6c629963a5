package encoding

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by stores that hold nothing for a key.
var ErrNotFound = errors.New("encoding: snapshot not found")

// Store keeps encoded snapshots by history entry ID.
type Store interface {
	Put(entryID uint64, encoded string) error
	Get(entryID uint64) (string, error)
	Delete(entryID uint64) error
}

// MemoryStore is a Store backed by a map, bounded to the most recent Limit
// entries (0 means unbounded).
type MemoryStore struct {
	Limit int

	mu    sync.Mutex
	data  map[uint64]string
	order []uint64
}

// NewMemoryStore returns a store that keeps at most limit snapshots.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{Limit: limit, data: make(map[uint64]string)}
}

func (m *MemoryStore) Put(entryID uint64, encoded string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[uint64]string)
	}
	if _, ok := m.data[entryID]; !ok {
		m.order = append(m.order, entryID)
	}
	m.data[entryID] = encoded
	for m.Limit > 0 && len(m.order) > m.Limit {
		delete(m.data, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *MemoryStore) Get(entryID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[entryID]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Delete(entryID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[entryID]; !ok {
		return nil
	}
	delete(m.data, entryID)
	for i, id := range m.order {
		if id == entryID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
