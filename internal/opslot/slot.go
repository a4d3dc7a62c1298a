// Package opslot holds the single process-wide active operation.
//
// Starting analysis, starting a chat turn or switching tools acquires the slot.
// Acquisition swaps the new lease in and cancels whichever lease held it, so at
// most one background operation can still mutate state.
package opslot

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrCanceled reports that an operation lost the slot or was cancelled explicitly.
var ErrCanceled = errors.New("operation canceled")

// Kind names what a lease is doing.
type Kind string

const (
	KindAnalysis   Kind = "analysis"
	KindReanalysis Kind = "reanalysis"
	KindChat       Kind = "chat"
	KindNavigation Kind = "navigation"
)

// Lease is one acquisition of the slot.
type Lease struct {
	id     string
	kind   Kind
	ctx    context.Context
	cancel context.CancelCauseFunc
}

func (l *Lease) ID() string { return l.id }
func (l *Lease) Kind() Kind { return l.kind }
func (l *Lease) Context() context.Context { return l.ctx }
func (l *Lease) Done() <-chan struct{} { return l.ctx.Done() }
func (l *Lease) Canceled() bool { return l.ctx.Err() != nil }

// Err returns nil while the lease is live, ErrCanceled once it has been
// cancelled, or the parent's deadline error if that fired first.
func (l *Lease) Err() error {
	cause := context.Cause(l.ctx)
	if cause == nil {
		return nil
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	return ErrCanceled
}

// Slot is a single-slot holder. The zero value is ready to use.
type Slot struct {
	cur atomic.Pointer[Lease]
}

func New() *Slot {
	return &Slot{}
}

// Acquire installs a new lease derived from ctx and cancels the previous holder.
func (s *Slot) Acquire(ctx context.Context, kind Kind) *Lease {
	lctx, cancel := context.WithCancelCause(ctx)
	next := &Lease{id: uuid.NewString(), kind: kind, ctx: lctx, cancel: cancel}
	for {
		prev := s.cur.Load()
		if s.cur.CompareAndSwap(prev, next) {
			if prev != nil {
				prev.cancel(ErrCanceled)
			}
			return next
		}
	}
}

// Release clears the slot if l still holds it and frees the lease's context.
// It reports whether l was the holder.
func (s *Slot) Release(l *Lease) bool {
	if l == nil {
		return false
	}
	held := s.cur.CompareAndSwap(l, nil)
	l.cancel(ErrCanceled)
	return held
}

// Cancel cancels the current holder, if any, and empties the slot.
func (s *Slot) Cancel() (Kind, bool) {
	prev := s.cur.Swap(nil)
	if prev == nil {
		return "", false
	}
	prev.cancel(ErrCanceled)
	return prev.kind, true
}

// Current returns the live lease, or nil.
func (s *Slot) Current() *Lease {
	return s.cur.Load()
}

// Holds reports whether l is the current holder.
func (s *Slot) Holds(l *Lease) bool {
	return l != nil && s.cur.Load() == l
}

// IsCanceled reports whether err is a cancellation rather than a failure.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
