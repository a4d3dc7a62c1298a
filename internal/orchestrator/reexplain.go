package orchestrator

import (
	"context"
	"sync/atomic"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/prompts"
	"contract-decoder/internal/shared/util"
)

// ReexplainRun rewrites clause explanations for another persona under the shared slot.
type ReexplainRun struct {
	o        *Orchestrator
	lease    *opslot.Lease
	analysis contract.ContractAnalysis
	opts     contract.AnalysisOptions
	used     atomic.Bool
}

// Reexplain acquires the slot for a persona re-analysis of an existing result.
func (o *Orchestrator) Reexplain(ctx context.Context, analysis contract.ContractAnalysis, opts contract.AnalysisOptions) *ReexplainRun {
	return &ReexplainRun{
		o:        o,
		lease:    o.slot.Acquire(ctx, opslot.KindReanalysis),
		analysis: analysis.Clone(),
		opts:     opts,
	}
}

func (r *ReexplainRun) ID() string { return r.lease.ID() }

func (r *ReexplainRun) Close() { r.o.slot.Release(r.lease) }

// Wait performs the request and returns new explanations keyed by clause id.
// Ids not present in the analysis are dropped.
func (r *ReexplainRun) Wait() (map[string]string, error) {
	if !r.used.CompareAndSwap(false, true) {
		return nil, ErrConsumed
	}
	defer r.Close()
	if err := r.lease.Err(); err != nil {
		return nil, err
	}
	if len(r.analysis.Clauses) == 0 {
		return nil, ErrNoClauses
	}
	opts := r.opts.Normalize()
	opts.Focus = util.SanitizePromptText(opts.Focus)
	clauses := make([]contract.DecodedClause, len(r.analysis.Clauses))
	for i, c := range r.analysis.Clauses {
		c.OriginalClause = util.SanitizePromptText(c.OriginalClause)
		clauses[i] = c
	}

	raw, err := r.o.client.Generate(r.lease.Context(), prompts.ClauseReexplanation(clauses, opts))
	if lerr := r.lease.Err(); lerr != nil {
		return nil, lerr
	}
	if err != nil {
		if opslot.IsCanceled(err) {
			return nil, opslot.ErrCanceled
		}
		return nil, err
	}
	parsed, err := contract.ParseExplanations(raw)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(clauses))
	for _, c := range clauses {
		known[c.ID] = true
	}
	out := make(map[string]string, len(parsed))
	for id, text := range parsed {
		if known[id] {
			out[id] = text
		}
	}
	return out, nil
}
