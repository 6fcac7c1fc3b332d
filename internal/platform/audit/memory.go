package audit

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryStore keeps entries in process. Used by tests and by the worker
// command when it runs without a database-backed trail.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	seq     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if e.ID == "" {
		e.ID = "audit-" + strconv.Itoa(s.seq)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	s.entries = append(s.entries, &cp)
	return nil
}

// Search returns matching entries newest first.
func (s *MemoryStore) Search(_ context.Context, p SearchParams) ([]*Entry, int, error) {
	p.applyDefaults()

	s.mu.RLock()
	var filtered []*Entry
	for _, e := range s.entries {
		if matchEntry(e, p) {
			filtered = append(filtered, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := len(filtered)
	start := min(p.Offset, total)
	end := min(start+p.Limit, total)
	return filtered[start:end], total, nil
}

// Entries returns a snapshot in insertion order.
func (s *MemoryStore) Entries() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func matchEntry(e *Entry, p SearchParams) bool {
	if p.UserID != "" && e.UserID != p.UserID {
		return false
	}
	if p.EntityType != "" && e.EntityType != p.EntityType {
		return false
	}
	if p.EntityID != "" && e.EntityID != p.EntityID {
		return false
	}
	if p.Action != "" && e.Action != p.Action {
		return false
	}
	if p.From != nil && e.CreatedAt.Before(*p.From) {
		return false
	}
	if p.To != nil && e.CreatedAt.After(*p.To) {
		return false
	}
	return true
}
