package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Snapshot is the full content of a store keyed by collection then id.
type Snapshot map[string]map[string]Record

// Memory is an in-process Port. Records are copied through their document
// form on the way in and out so callers never share maps with the store.
type Memory struct {
	mu          sync.RWMutex
	collections Snapshot
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(Snapshot)}
}

// NewMemoryFrom returns a store seeded with the snapshot.
func NewMemoryFrom(snapshot Snapshot) (*Memory, error) {
	m := NewMemory()
	for collection, records := range snapshot {
		for id, record := range records {
			cloned, err := Clone(record)
			if err != nil {
				return nil, err
			}
			cloned["id"] = id
			m.bucketLocked(collection)[id] = cloned
		}
	}
	return m, nil
}

// Snapshot returns a deep copy of the store content.
func (m *Memory) Snapshot() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(Snapshot, len(m.collections))
	for collection, records := range m.collections {
		copied := make(map[string]Record, len(records))
		for id, record := range records {
			cloned, err := Clone(record)
			if err != nil {
				return nil, err
			}
			copied[id] = cloned
		}
		out[collection] = copied
	}
	return out, nil
}

// Select returns matching records ordered by id.
func (m *Memory) Select(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.collections[collection]
	if id, ok := filter.IDOnly(); ok {
		record, found := records[id]
		if !found {
			return nil, nil
		}
		cloned, err := Clone(record)
		if err != nil {
			return nil, err
		}
		return []Record{cloned}, nil
	}

	ids := m.matchingLocked(collection, filter)
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		cloned, err := Clone(records[id])
		if err != nil {
			return nil, err
		}
		out = append(out, cloned)
	}
	return out, nil
}

// Exists reports whether any record matches.
func (m *Memory) Exists(ctx context.Context, collection string, filter Filter) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id, ok := filter.IDOnly(); ok {
		_, found := m.collections[collection][id]
		return found, nil
	}
	return len(m.matchingLocked(collection, filter)) > 0, nil
}

// Insert stores a new record.
func (m *Memory) Insert(ctx context.Context, collection string, record Record) error {
	id, err := record.ID()
	if err != nil {
		return err
	}
	cloned, err := Clone(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.bucketLocked(collection)
	if _, ok := bucket[id]; ok {
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, id)
	}
	bucket[id] = cloned
	return nil
}

// Update replaces every matching record with the given record.
func (m *Memory) Update(ctx context.Context, collection string, filter Filter, record Record) error {
	id, err := record.ID()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.matchingLocked(collection, filter)
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, collection)
	}
	bucket := m.bucketLocked(collection)
	for _, matched := range ids {
		if matched != id {
			return fmt.Errorf("%w: update of %s would change id to %s", ErrInvalidRecord, matched, id)
		}
		cloned, err := Clone(record)
		if err != nil {
			return err
		}
		bucket[matched] = cloned
	}
	return nil
}

// Delete removes every matching record.
func (m *Memory) Delete(ctx context.Context, collection string, filter Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.matchingLocked(collection, filter)
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, collection)
	}
	bucket := m.bucketLocked(collection)
	for _, id := range ids {
		delete(bucket, id)
	}
	return nil
}

func (m *Memory) bucketLocked(collection string) map[string]Record {
	bucket, ok := m.collections[collection]
	if !ok {
		bucket = make(map[string]Record)
		m.collections[collection] = bucket
	}
	return bucket
}

func (m *Memory) matchingLocked(collection string, filter Filter) []string {
	records := m.collections[collection]
	if id, ok := filter.IDOnly(); ok {
		if _, found := records[id]; found {
			return []string{id}
		}
		return nil
	}
	ids := make([]string, 0, len(records))
	for id, record := range records {
		if filter.Match(record) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
