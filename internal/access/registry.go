package access

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry serves page entries from memory and writes through to a
// TableStore. It is safe for concurrent use.
type Registry struct {
	store TableStore

	mu    sync.RWMutex
	table Table
}

func NewRegistry(store TableStore) *Registry {
	return &Registry{store: store, table: Table{}}
}

// Reload replaces the cached table with the store's contents.
func (r *Registry) Reload(ctx context.Context) error {
	entries, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list page permissions: %w", err)
	}
	t := make(Table, len(entries))
	for _, e := range entries {
		t[e.PageID] = e
	}
	r.mu.Lock()
	r.table = t
	r.mu.Unlock()
	return nil
}

func (r *Registry) Entry(pageID string) (PageEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.table[pageID]
	return e, ok
}

func (r *Registry) List() []PageEntry {
	r.mu.RLock()
	res := make([]PageEntry, 0, len(r.table))
	for _, e := range r.table {
		res = append(res, e)
	}
	r.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].PageID < res[j].PageID })
	return res
}

func (r *Registry) Put(ctx context.Context, e PageEntry) (PageEntry, error) {
	if err := r.store.Put(ctx, &e); err != nil {
		return PageEntry{}, err
	}
	r.mu.Lock()
	r.table[e.PageID] = e
	r.mu.Unlock()
	return e, nil
}

func (r *Registry) Delete(ctx context.Context, pageID string) error {
	if err := r.store.Delete(ctx, pageID); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.table, pageID)
	r.mu.Unlock()
	return nil
}

// Seed stores every entry of t that the store does not have yet.
func (r *Registry) Seed(ctx context.Context, t Table) (int, error) {
	n := 0
	for pageID, e := range t {
		if _, ok := r.Entry(pageID); ok {
			continue
		}
		e.PageID = pageID
		if _, err := r.Put(ctx, e); err != nil {
			return n, fmt.Errorf("seed %s: %w", pageID, err)
		}
		n++
	}
	return n, nil
}

// MemoryTableStore is a TableStore over a Table, used when the portal runs
// without a database.
type MemoryTableStore struct {
	mu    sync.Mutex
	table Table
}

func NewMemoryTableStore(t Table) *MemoryTableStore {
	if t == nil {
		t = Table{}
	}
	return &MemoryTableStore{table: t}
}

func (m *MemoryTableStore) List(ctx context.Context) ([]PageEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]PageEntry, 0, len(m.table))
	for pageID, e := range m.table {
		e.PageID = pageID
		res = append(res, e)
	}
	return res, nil
}

func (m *MemoryTableStore) Put(ctx context.Context, e *PageEntry) error {
	e.Roles = nonNil(e.Roles)
	e.JobTitles = nonNil(e.JobTitles)
	e.UpdatedAt = time.Now().UTC()
	m.mu.Lock()
	m.table[e.PageID] = *e
	m.mu.Unlock()
	return nil
}

func (m *MemoryTableStore) Delete(ctx context.Context, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.table[pageID]; !ok {
		return ErrEntryNotFound
	}
	delete(m.table, pageID)
	return nil
}
