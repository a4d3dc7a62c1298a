// Package orchestrator drives chunked clause extraction and header synthesis as a lazy event stream.
package orchestrator

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"
	"time"

	"contract-decoder/internal/chunker"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/prompts"
	"contract-decoder/internal/shared/metrics"
	"contract-decoder/internal/shared/telemetry"
	"contract-decoder/internal/shared/util"
)

type EventKind string

const (
	EventProgress EventKind = "progress"
	EventClause   EventKind = "clause"
	EventHeader   EventKind = "header"
)

type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Event is one item of an analysis stream. Only the field matching Kind is set.
type Event struct {
	Kind     EventKind              `json:"kind"`
	Progress Progress               `json:"progress"`
	Clause   contract.DecodedClause `json:"clause"`
	Header   contract.Header        `json:"header"`
}

type Option func(*Orchestrator)

// WithChunkSize overrides the chunk limit in runes.
func WithChunkSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

type Orchestrator struct {
	client    llm.Client
	slot      *opslot.Slot
	chunkSize int
}

func New(client llm.Client, slot *opslot.Slot, opts ...Option) *Orchestrator {
	o := &Orchestrator{client: client, slot: slot, chunkSize: chunker.DefaultMaxChunkSize}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run is one analysis invocation. It holds the shared slot from Start until its
// events are exhausted or Close is called.
type Run struct {
	o     *Orchestrator
	lease *opslot.Lease
	text  string
	opts  contract.AnalysisOptions
	used  atomic.Bool
}

// Start acquires the slot, cancelling any operation that held it.
func (o *Orchestrator) Start(ctx context.Context, text string, opts contract.AnalysisOptions) *Run {
	return &Run{
		o:     o,
		lease: o.slot.Acquire(ctx, opslot.KindAnalysis),
		text:  text,
		opts:  opts,
	}
}

// Stream is Start(...).Events().
func (o *Orchestrator) Stream(ctx context.Context, text string, opts contract.AnalysisOptions) iter.Seq2[Event, error] {
	return o.Start(ctx, text, opts).Events()
}

func (r *Run) ID() string { return r.lease.ID() }

// Close releases the slot without consuming the events.
func (r *Run) Close() {
	r.o.slot.Release(r.lease)
}

// Events yields progress, clause and header events in order. A terminal error,
// if any, is yielded last with a zero Event. Cancellation surfaces as opslot.ErrCanceled.
func (r *Run) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		if !r.used.CompareAndSwap(false, true) {
			yield(Event{}, ErrConsumed)
			return
		}
		defer r.Close()
		r.run(yield)
	}
}

func (r *Run) run(yield func(Event, error) bool) {
	ctx := r.lease.Context()
	// stopped yields the cancellation error once the lease is no longer live.
	stopped := func() bool {
		if err := r.lease.Err(); err != nil {
			yield(Event{}, err)
			return true
		}
		return false
	}
	emit := func(ev Event) bool {
		if stopped() {
			return false
		}
		return yield(ev, nil)
	}
	if stopped() {
		return
	}

	text := util.SanitizePromptText(r.text)
	if strings.TrimSpace(text) == "" {
		yield(Event{}, ErrEmptyDocument)
		return
	}
	opts := r.opts.Normalize()
	opts.Focus = util.SanitizePromptText(opts.Focus)

	chunks := chunker.Split(text, r.o.chunkSize)
	total := len(chunks)
	began := time.Now()
	telemetry.Info("analysis started", map[string]any{
		"run_id":   r.ID(),
		"chunks":   total,
		"persona":  string(opts.Persona),
		"doc_hash": util.HashText(text)[:16],
	})

	if !emit(Event{Kind: EventProgress, Progress: Progress{Current: 0, Total: total}}) {
		return
	}

	seen := make(map[string]int)
	accepted := make([]contract.DecodedClause, 0)
	for i, chunk := range chunks {
		if stopped() {
			return
		}
		reqStart := time.Now()
		raw, err := r.o.client.Generate(ctx, prompts.ClauseExtraction(chunk, i, total, opts))
		metrics.ObserveChunkDurationMs(float64(time.Since(reqStart).Milliseconds()))
		if stopped() {
			return
		}
		var raws []contract.RawClause
		if err == nil {
			raws, err = contract.ParseClauses(raw)
		}
		if err != nil {
			if opslot.IsCanceled(err) {
				yield(Event{}, opslot.ErrCanceled)
				return
			}
			telemetry.Warn("analysis chunk failed", map[string]any{
				"run_id": r.ID(),
				"chunk":  i,
				"error":  err,
			})
			if !emit(Event{Kind: EventProgress, Progress: Progress{Current: i + 1, Total: total}}) {
				return
			}
			yield(Event{}, &PartialResultsError{Accepted: len(accepted), Chunk: i, Total: total, Err: err})
			return
		}

		rejected := 0
		for _, rc := range raws {
			res := contract.ValidateClause(rc)
			if !res.Accepted {
				rejected++
				telemetry.Debug("clause dropped", map[string]any{"run_id": r.ID(), "chunk": i, "reason": res.Reason})
				continue
			}
			clause := res.Clause
			clause.ID = fmt.Sprintf("clause-%d", len(accepted)+1)
			// Keyed by literal text across the whole document, so identical boilerplate in
			// different sections shares one counter.
			clause.OccurrenceIndex = seen[clause.OriginalClause]
			seen[clause.OriginalClause]++
			accepted = append(accepted, clause)
			if !emit(Event{Kind: EventClause, Clause: clause}) {
				return
			}
		}
		metrics.AddClauses(len(raws)-rejected, rejected)

		if !emit(Event{Kind: EventProgress, Progress: Progress{Current: i + 1, Total: total}}) {
			return
		}
	}

	if len(accepted) == 0 {
		telemetry.Info("analysis found no clauses", map[string]any{"run_id": r.ID(), "chunks": total})
		return
	}

	if stopped() {
		return
	}
	raw, err := r.o.client.Generate(ctx, prompts.HeaderSynthesis(prompts.Digests(accepted), opts))
	if stopped() {
		return
	}
	var header contract.Header
	if err == nil {
		header, err = contract.ParseHeader(raw)
	}
	if err != nil {
		if opslot.IsCanceled(err) {
			yield(Event{}, opslot.ErrCanceled)
			return
		}
		telemetry.Warn("analysis header failed", map[string]any{"run_id": r.ID(), "error": err})
		yield(Event{}, &HeaderError{Err: err})
		return
	}
	if !emit(Event{Kind: EventHeader, Header: header}) {
		return
	}
	telemetry.Info("analysis finished", map[string]any{
		"run_id":      r.ID(),
		"clauses":     len(accepted),
		"duration_ms": time.Since(began).Milliseconds(),
	})
}
