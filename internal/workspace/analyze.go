package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"contract-decoder/internal/analyses"
	"contract-decoder/internal/appstate"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/orchestrator"
	"contract-decoder/internal/shared/metrics"
	"contract-decoder/internal/shared/telemetry"
)

const (
	noticeHeaderMissing = "The summary could not be generated. The clause results are still usable."
	noticeNotSaved      = "The analysis could not be saved to history."
	msgNoClauses        = "No clauses were found in this document."
	msgReanalysisFailed = "The explanations could not be rewritten for that persona. The previous explanations are shown."
)

// Analyze streams a new analysis of the current document. emit, if set, receives
// every event accepted into state. A successful analysis with at least one clause
// is saved and becomes the current record; a missing summary is reported as a notice.
func (w *Workspace) Analyze(ctx context.Context, opts contract.AnalysisOptions, emit func(orchestrator.Event)) (appstate.State, error) {
	if err := w.requireDisclaimer(); err != nil {
		return w.State(), err
	}
	doc := w.State().Document
	if strings.TrimSpace(doc.Text) == "" {
		return w.State(), contract.ErrEmptyDocument
	}
	opts = opts.Normalize()

	run := w.orch.Start(ctx, doc.Text, opts)
	opID := run.ID()
	w.dispatch(appstate.StartAnalysis{OpID: opID, Options: opts})
	metrics.IncAnalysisStarted()
	began := time.Now()

	var streamErr error
	for ev, err := range run.Events() {
		if err != nil {
			streamErr = err
			break
		}
		var action appstate.Action
		switch ev.Kind {
		case orchestrator.EventProgress:
			action = appstate.AnalysisProgress{OpID: opID, Progress: appstate.Progress{Current: ev.Progress.Current, Total: ev.Progress.Total}}
		case orchestrator.EventClause:
			action = appstate.ClauseReceived{OpID: opID, Clause: ev.Clause}
		case orchestrator.EventHeader:
			action = appstate.HeaderReceived{OpID: opID, Header: ev.Header}
		default:
			continue
		}
		w.dispatch(action)
		if emit != nil {
			emit(ev)
		}
	}

	var headerErr *orchestrator.HeaderError
	switch {
	case streamErr == nil:
	case errors.As(streamErr, &headerErr):
	case opslot.IsCanceled(streamErr):
		metrics.IncAnalysisCanceled()
		return w.dispatch(appstate.AnalysisCanceled{OpID: opID}), opslot.ErrCanceled
	default:
		metrics.IncAnalysisFailed()
		return w.fail(opID, userMessage(streamErr)), streamErr
	}

	result, live := w.resultOf(opID)
	if !live {
		metrics.IncAnalysisCanceled()
		return w.State(), opslot.ErrCanceled
	}
	if len(result.Clauses) == 0 {
		metrics.IncAnalysisFailed()
		return w.fail(opID, msgNoClauses), orchestrator.ErrNoClauses
	}

	notice := ""
	if headerErr != nil {
		notice = noticeHeaderMissing
	}
	id, err := w.repo.Add(ctx, analyses.Record{
		DocumentTitle: recordTitle(result, doc.Title),
		ContractText:  doc.Text,
		Analysis:      result,
		Options:       opts,
	})
	if err != nil {
		telemetry.Error("analysis save failed", map[string]any{"run_id": opID, "error": err})
		notice = strings.TrimSpace(notice + " " + noticeNotSaved)
		id = ""
	}

	before, after := w.dispatchFrom(appstate.AnalysisSucceeded{OpID: opID, RecordID: id, Notice: notice})
	if before.ActiveOp.ID != opID {
		// Another operation took over while the record was being saved.
		w.discardRecord(id)
		metrics.IncAnalysisCanceled()
		return after, opslot.ErrCanceled
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(began).Milliseconds()))
	w.chat.Dispose()
	w.initChat(ctx, result, opts.Persona, nil)
	return w.State(), nil
}

// fail records a failed run. The analysis it replaced is gone, so its chat goes too.
func (w *Workspace) fail(opID, message string) appstate.State {
	before, after := w.dispatchFrom(appstate.AnalysisFailed{OpID: opID, Message: message})
	if before.ActiveOp.ID == opID {
		w.chat.Dispose()
	}
	return after
}

func (w *Workspace) discardRecord(id string) {
	if id == "" {
		return
	}
	// The run's context may already be cancelled.
	if err := w.repo.Delete(context.Background(), id); err != nil {
		telemetry.Warn("orphaned analysis not removed", map[string]any{"record_id": id, "error": err})
	}
}

// resultOf returns the accumulated result while opID is still the active operation.
func (w *Workspace) resultOf(opID string) (contract.ContractAnalysis, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.ActiveOp.ID != opID {
		return contract.ContractAnalysis{}, false
	}
	return w.state.Analysis.Result.Clone(), true
}

func recordTitle(result contract.ContractAnalysis, documentTitle string) string {
	if t := strings.TrimSpace(result.DocumentTitle); t != "" && t != contract.DefaultDocumentTitle {
		return t
	}
	if t := strings.TrimSpace(documentTitle); t != "" {
		return t
	}
	return contract.DefaultDocumentTitle
}

// Reanalyze rewrites the explanations of the current record for persona. The
// record is checked before and after the model call; if it was deleted
// elsewhere the state moves to deleted_externally and nothing is applied.
func (w *Workspace) Reanalyze(ctx context.Context, persona contract.Persona) (appstate.State, error) {
	if err := w.requireDisclaimer(); err != nil {
		return w.State(), err
	}
	s := w.State()
	recordID := s.Analysis.RecordID
	if s.Analysis.Status != appstate.AnalysisSuccess || recordID == "" || len(s.Analysis.Result.Clauses) == 0 {
		return s, ErrNothingToReanalyze
	}
	opts := s.Analysis.Options
	opts.Persona = contract.NormalizePersona(string(persona))
	if opts.Persona == s.Analysis.Options.Persona {
		return s, nil
	}

	exists, err := w.repo.Update(ctx, recordID, analyses.Patch{})
	if err != nil {
		return s, err
	}
	if !exists {
		return w.dispatch(appstate.RecordDeletedExternally{RecordID: recordID}), ErrRecordDeleted
	}

	run := w.orch.Reexplain(ctx, s.Analysis.Result, opts)
	opID := run.ID()
	w.dispatch(appstate.StartReanalysis{OpID: opID, Persona: opts.Persona})

	explanations, err := run.Wait()
	if err != nil {
		if opslot.IsCanceled(err) {
			return w.dispatch(appstate.AnalysisCanceled{OpID: opID}), opslot.ErrCanceled
		}
		telemetry.Warn("reanalysis failed", map[string]any{"run_id": opID, "error": err})
		return w.dispatch(appstate.ReanalysisFailed{OpID: opID, Message: msgReanalysisFailed}), err
	}

	if _, live := w.resultOf(opID); !live {
		return w.State(), opslot.ErrCanceled
	}
	updated := contract.ApplyExplanations(s.Analysis.Result, explanations)
	ok, err := w.repo.Update(ctx, recordID, analyses.Patch{Analysis: &updated, Options: &opts})
	if err != nil {
		telemetry.Error("reanalysis save failed", map[string]any{"record_id": recordID, "error": err})
		return w.dispatch(appstate.ReanalysisFailed{OpID: opID, Message: msgReanalysisFailed}), err
	}
	if !ok {
		return w.dispatch(appstate.RecordDeletedExternally{RecordID: recordID}), ErrRecordDeleted
	}

	after := w.dispatch(appstate.ReanalysisApplied{OpID: opID, Explanations: explanations, Options: opts})
	if after.Analysis.Status == appstate.AnalysisSuccess {
		w.initChat(ctx, after.Analysis.Result, opts.Persona, after.Chat.Messages)
	}
	return w.State(), nil
}
