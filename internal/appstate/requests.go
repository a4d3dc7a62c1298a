package appstate

import "contract-decoder/internal/contract"

// Comparison and drafting are single-shot requests outside the shared slot.
// Each carries its own RequestID; results for any other id are ignored.

type ComparisonStarted struct {
	RequestID string
}

func (a ComparisonStarted) apply(s State) State {
	if !CanRequest(s.Comparison.Status, RequestLoading) {
		return s
	}
	s.Comparison = ComparisonState{Status: RequestLoading, RequestID: a.RequestID}
	return s
}

type ComparisonSucceeded struct {
	RequestID string
	Result    contract.ComparisonResult
}

func (a ComparisonSucceeded) apply(s State) State {
	if a.RequestID == "" || a.RequestID != s.Comparison.RequestID || !CanRequest(s.Comparison.Status, RequestSuccess) {
		return s
	}
	result := a.Result
	result.Clauses = append([]contract.ClauseChange(nil), a.Result.Clauses...)
	s.Comparison = ComparisonState{Status: RequestSuccess, RequestID: a.RequestID, Result: &result}
	return s
}

type ComparisonFailed struct {
	RequestID string
	Message   string
}

func (a ComparisonFailed) apply(s State) State {
	if a.RequestID == "" || a.RequestID != s.Comparison.RequestID || !CanRequest(s.Comparison.Status, RequestFailure) {
		return s
	}
	s.Comparison = ComparisonState{Status: RequestFailure, RequestID: a.RequestID, Error: a.Message}
	return s
}

// ComparisonRejected reports a local validation failure; the previous result is kept.
type ComparisonRejected struct {
	Message string
}

func (a ComparisonRejected) apply(s State) State {
	s.Comparison.Error = a.Message
	return s
}

type DraftStarted struct {
	RequestID string
}

func (a DraftStarted) apply(s State) State {
	if !CanRequest(s.Draft.Status, RequestLoading) {
		return s
	}
	s.Draft = DraftState{Status: RequestLoading, RequestID: a.RequestID}
	return s
}

type DraftSucceeded struct {
	RequestID string
	Text      string
}

func (a DraftSucceeded) apply(s State) State {
	if a.RequestID == "" || a.RequestID != s.Draft.RequestID || !CanRequest(s.Draft.Status, RequestSuccess) {
		return s
	}
	s.Draft = DraftState{Status: RequestSuccess, RequestID: a.RequestID, Text: a.Text}
	return s
}

type DraftFailed struct {
	RequestID string
	Message   string
}

func (a DraftFailed) apply(s State) State {
	if a.RequestID == "" || a.RequestID != s.Draft.RequestID || !CanRequest(s.Draft.Status, RequestFailure) {
		return s
	}
	s.Draft = DraftState{Status: RequestFailure, RequestID: a.RequestID, Error: a.Message}
	return s
}
