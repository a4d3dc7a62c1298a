package analyses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]memoryEntry
	seq  int64
}

type memoryEntry struct {
	record Record
	seq    int64
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]memoryEntry)}
}

func (r *MemoryRepo) Add(ctx context.Context, rec Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec, err := prepare(rec)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.byID[rec.ID] = memoryEntry{record: rec, seq: r.seq}
	return rec.ID, nil
}

func (r *MemoryRepo) GetLatest(ctx context.Context) (Record, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return Record{}, err
	}
	if len(all) == 0 {
		return Record{}, ErrNotFound
	}
	return all[0], nil
}

// GetAll returns records newest first; records created in the same millisecond
// are ordered by insertion.
func (r *MemoryRepo) GetAll(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	entries := make([]memoryEntry, 0, len(r.byID))
	for _, e := range r.byID {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.record.CreatedAt.Equal(b.record.CreatedAt) {
			return a.record.CreatedAt.After(b.record.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = e.record.clone()
	}
	return out, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return e.record.clone(), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, id string, p Patch) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	e.record = p.applyTo(e.record)
	r.byID[id] = e
	return true, nil
}

func (r *MemoryRepo) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]memoryEntry)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
