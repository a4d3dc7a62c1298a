package analyses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repo defines persistence operations for saved analyses.
type Repo interface {
	// Add stores r and returns its id. An empty ID or zero CreatedAt is filled in.
	Add(ctx context.Context, r Record) (string, error)
	// GetLatest returns the most recently created record or ErrNotFound.
	GetLatest(ctx context.Context) (Record, error)
	// GetAll returns every record, newest first.
	GetAll(ctx context.Context) ([]Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	// Delete removes id. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
	// Update applies p to id and reports whether a record was changed.
	// false means the record no longer exists.
	Update(ctx context.Context, id string, p Patch) (bool, error)
	Clear(ctx context.Context) error
}

var now = func() time.Time { return time.Now().UTC() }

func prepare(r Record) (Record, error) {
	if strings.TrimSpace(r.ContractText) == "" {
		return Record{}, fmt.Errorf("%w: contract text is empty", ErrInvalidInput)
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Millisecond)
	if strings.TrimSpace(r.DocumentTitle) == "" {
		r.DocumentTitle = r.Analysis.DocumentTitle
	}
	return r.clone(), nil
}
