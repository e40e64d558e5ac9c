package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-process reference store backed by a locked map. It is
// the canonical implementation of the Store contract and supports partial
// writes.
type MemStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: map[string][]byte{}}
}

func (m *MemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MemStore) GetPartial(_ context.Context, key string, ranges []ByteRange) ([][]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	spans, err := SliceRanges(value, ranges)
	if err != nil {
		return nil, true, &StoreError{Op: "get_partial", Key: key, Err: err}
	}
	out := make([][]byte, len(spans))
	for i, s := range spans {
		out[i] = append([]byte(nil), s...)
	}
	return out, true, nil
}

func (m *MemStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) SetPartial(_ context.Context, key string, offset uint64, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.values[key]
	need := offset + uint64(len(value))
	if uint64(len(current)) < need {
		grown := make([]byte, need)
		copy(grown, current)
		current = grown
	}
	copy(current[offset:], value)
	m.values[key] = current
	return nil
}

func (m *MemStore) Erase(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemStore) ErasePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

func (m *MemStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
