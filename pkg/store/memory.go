package store

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]Fields
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[string]Fields)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, table, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.tables[table][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return Record{ID: id, Fields: fields.Clone()}, nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, table, id string, fields Fields) error {
	if err := CheckFields(fields); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tables[table][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

// Put implements Putter. An existing record is replaced.
func (m *MemoryStore) Put(_ context.Context, table string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[table]
	if !ok {
		t = make(map[string]Fields)
		m.tables[table] = t
	}
	t[rec.ID] = rec.Fields.Clone()
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
