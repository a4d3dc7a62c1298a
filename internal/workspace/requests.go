package workspace

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"contract-decoder/internal/appstate"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/drafting"
	"contract-decoder/internal/prompts"
	"contract-decoder/internal/shared/metrics"
)

// Compare diffs two documents. Oversized or empty input is rejected before any
// request is made and the previous result is kept.
func (w *Workspace) Compare(ctx context.Context, docA, docB string) (appstate.State, error) {
	if err := w.requireDisclaimer(); err != nil {
		return w.State(), err
	}
	if err := w.compare.Check(docA, docB); err != nil {
		msg := userMessage(err)
		switch {
		case errors.Is(err, contract.ErrEmptyDocument):
			msg = "Provide both documents to compare."
		case errors.Is(err, contract.ErrInputTooLarge):
			metrics.IncComparisonRejected()
		}
		return w.dispatch(appstate.ComparisonRejected{Message: msg}), err
	}

	requestID := uuid.NewString()
	w.dispatch(appstate.ComparisonStarted{RequestID: requestID})
	result, err := w.compare.Compare(ctx, docA, docB)
	if err != nil {
		return w.dispatch(appstate.ComparisonFailed{RequestID: requestID, Message: userMessage(err)}), err
	}
	return w.dispatch(appstate.ComparisonSucceeded{RequestID: requestID, Result: result}), nil
}

// Draft generates a document from a description.
func (w *Workspace) Draft(ctx context.Context, req prompts.DraftRequest) (appstate.State, error) {
	if err := w.requireDisclaimer(); err != nil {
		return w.State(), err
	}
	requestID := uuid.NewString()
	w.dispatch(appstate.DraftStarted{RequestID: requestID})
	text, err := w.drafter.Draft(ctx, req)
	if err != nil {
		msg := userMessage(err)
		switch {
		case errors.Is(err, drafting.ErrEmptyDetails):
			msg = "Describe the document you need."
		case errors.Is(err, contract.ErrInputTooLarge):
			msg = err.Error()
		}
		return w.dispatch(appstate.DraftFailed{RequestID: requestID, Message: msg}), err
	}
	return w.dispatch(appstate.DraftSucceeded{RequestID: requestID, Text: text}), nil
}
