package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/synckit/synckit/internal/synckit"
)

// MemoryRunRepository keeps run history in memory.
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]*synckit.RunRecord
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]*synckit.RunRecord)}
}

func (r *MemoryRunRepository) Create(_ context.Context, rec *synckit.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.runs[rec.ID] = &cp
	return nil
}

func (r *MemoryRunRepository) Get(_ context.Context, id string) (*synckit.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRunRepository) List(_ context.Context, limit int) ([]*synckit.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]*synckit.RunRecord, 0, len(r.runs))
	for _, rec := range r.runs {
		cp := *rec
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
