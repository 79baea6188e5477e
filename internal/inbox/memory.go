package inbox

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

type MemoryRepository struct {
	mu      sync.Mutex
	entries []Entry
	events  map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: map[string]struct{}{}}
}

func (r *MemoryRepository) Add(_ context.Context, e Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.events[e.EventID]; dup {
		return false, nil
	}
	r.events[e.EventID] = struct{}{}
	r.entries = append(r.entries, e)
	return true, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id && r.entries[i].UserID == userID {
			r.entries[i].Read = true
			return nil
		}
	}
	return library.Errorf(library.CodeNotFound, "notification %s not found", id)
}
