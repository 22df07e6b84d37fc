package repository

import (
	"context"
	"log/slog"

	"github.com/synckit/synckit/internal/db"
	"github.com/synckit/synckit/internal/synckit"
)

// PersistentRunRepository wraps a MemoryRunRepository with a PostgreSQL
// backend. Writes go to both stores (DB failure is logged but non-fatal),
// mirroring the cache policy: run history degrades, it never aborts a run.
type PersistentRunRepository struct {
	mem *MemoryRunRepository
	db  *db.DB
}

func NewPersistentRunRepository(mem *MemoryRunRepository, database *db.DB) *PersistentRunRepository {
	return &PersistentRunRepository{mem: mem, db: database}
}

func (r *PersistentRunRepository) Create(ctx context.Context, rec *synckit.RunRecord) error {
	_ = r.mem.Create(ctx, rec)
	if err := r.db.CreateRun(ctx, rec); err != nil {
		slog.Warn("db create run failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentRunRepository) Get(ctx context.Context, id string) (*synckit.RunRecord, error) {
	rec, err := r.mem.Get(ctx, id)
	if err == nil {
		return rec, nil
	}

	dbRec, dbErr := r.db.GetRun(ctx, id)
	if dbErr != nil {
		return nil, err // return original ErrNotFound
	}
	_ = r.mem.Create(ctx, dbRec)
	return dbRec, nil
}

func (r *PersistentRunRepository) List(ctx context.Context, limit int) ([]*synckit.RunRecord, error) {
	runs, err := r.db.ListRuns(ctx, limit)
	if err == nil {
		return runs, nil
	}
	slog.Warn("db list runs failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, limit)
}
