package workspace

import (
	"context"
	"errors"

	"contract-decoder/internal/analyses"
	"contract-decoder/internal/appstate"
	"contract-decoder/internal/contract"
)

// History lists saved analyses, newest first.
func (w *Workspace) History(ctx context.Context) ([]analyses.Summary, error) {
	records, err := w.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]analyses.Summary, len(records))
	for i, r := range records {
		out[i] = r.Summarize()
	}
	return out, nil
}

// LoadRecord makes a saved analysis current, cancelling any active operation.
func (w *Workspace) LoadRecord(ctx context.Context, id string) (appstate.State, error) {
	rec, err := w.repo.GetByID(ctx, id)
	if err != nil {
		return w.State(), err
	}
	return w.show(ctx, rec), nil
}

// RestoreLatest loads the most recent record, if any. It is used at startup.
func (w *Workspace) RestoreLatest(ctx context.Context) (appstate.State, error) {
	rec, err := w.repo.GetLatest(ctx)
	if errors.Is(err, analyses.ErrNotFound) {
		return w.State(), nil
	}
	if err != nil {
		return w.State(), err
	}
	return w.show(ctx, rec), nil
}

func (w *Workspace) show(ctx context.Context, rec analyses.Record) appstate.State {
	w.stopActive()
	w.chat.Dispose()
	s := w.dispatch(appstate.RecordLoaded{Record: appstate.LoadedRecord{
		ID:          rec.ID,
		Title:       rec.DocumentTitle,
		Text:        rec.ContractText,
		Analysis:    rec.Analysis,
		Options:     rec.Options,
		ChatHistory: rec.ChatHistory,
	}})
	w.initChat(ctx, rec.Analysis, rec.Options.Persona, s.Chat.Messages)
	return w.State()
}

// DeleteRecord removes a saved analysis. Deleting the current record leaves it on
// screen in the deleted_externally state so it can be saved again.
func (w *Workspace) DeleteRecord(ctx context.Context, id string) (appstate.State, error) {
	if err := w.repo.Delete(ctx, id); err != nil {
		return w.State(), err
	}
	return w.dispatch(appstate.RecordDeletedExternally{RecordID: id}), nil
}

// ClearHistory removes every saved analysis.
func (w *Workspace) ClearHistory(ctx context.Context) (appstate.State, error) {
	if err := w.repo.Clear(ctx); err != nil {
		return w.State(), err
	}
	return w.dispatch(appstate.RecordDeletedExternally{RecordID: w.State().ShownRecordID()}), nil
}

// ResaveDeleted stores the on-screen analysis again after it was deleted elsewhere.
func (w *Workspace) ResaveDeleted(ctx context.Context) (appstate.State, error) {
	s := w.State()
	if s.Analysis.Status != appstate.AnalysisDeletedExternally {
		return s, ErrNothingToResave
	}
	id, err := w.repo.Add(ctx, analyses.Record{
		DocumentTitle: recordTitle(s.Analysis.Result, s.Document.Title),
		ContractText:  s.Document.Text,
		Analysis:      s.Analysis.Result,
		Options:       s.Analysis.Options,
		ChatHistory:   settledMessages(s.Chat.Messages),
	})
	if err != nil {
		return s, err
	}
	return w.dispatch(appstate.RecordResaved{RecordID: id}), nil
}

func settledMessages(msgs []contract.ChatMessage) []contract.ChatMessage {
	out := make([]contract.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if !m.IsPlaceholder() {
			out = append(out, m)
		}
	}
	return out
}
