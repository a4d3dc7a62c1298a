package appstate

import (
	"contract-decoder/internal/contract"
	"contract-decoder/internal/opslot"
)

const (
	msgDeletedExternally = "This analysis was deleted in another session. Save it again to keep it, or start a new analysis."
	msgNoClauses         = "No clauses were found in this document."
)

// StartAnalysis begins a new analysis owned by OpID. A shown analysis is kept
// aside until the run ends and comes back if the run is cancelled.
type StartAnalysis struct {
	OpID    string
	Options contract.AnalysisOptions
}

func (a StartAnalysis) apply(s State) State {
	s = settle(s)
	if !CanAnalysis(s.Analysis.Status, AnalysisLoading) {
		return s
	}
	if s.Analysis.Status != AnalysisIdle {
		s.Prior = &PriorView{Analysis: s.Analysis, Chat: s.Chat, Loaded: s.Document.Loaded}
	}
	s.ActiveOp = ActiveOp{ID: a.OpID, Kind: opslot.KindAnalysis}
	s.Analysis = AnalysisState{Status: AnalysisLoading, Options: a.Options}
	s.Chat = ChatState{Status: ChatUnavailable}
	s.Document.Loaded = false
	s.Document.InputError = ""
	return s
}

type AnalysisProgress struct {
	OpID     string
	Progress Progress
}

func (a AnalysisProgress) opID() string { return a.OpID }

func (a AnalysisProgress) apply(s State) State {
	if s.Analysis.Status == AnalysisLoading {
		s.Analysis.Progress = a.Progress
	}
	return s
}

type ClauseReceived struct {
	OpID   string
	Clause contract.DecodedClause
}

func (a ClauseReceived) opID() string { return a.OpID }

func (a ClauseReceived) apply(s State) State {
	if s.Analysis.Status == AnalysisLoading {
		s.Analysis.Result.Clauses = append(s.Analysis.Result.Clauses, a.Clause)
	}
	return s
}

type HeaderReceived struct {
	OpID   string
	Header contract.Header
}

func (a HeaderReceived) opID() string { return a.OpID }

func (a HeaderReceived) apply(s State) State {
	if s.Analysis.Status == AnalysisLoading {
		s.Analysis.Result = s.Analysis.Result.WithHeader(a.Header)
	}
	return s
}

// AnalysisSucceeded marks the stream as complete and persisted as RecordID.
// Notice carries a non-fatal problem such as a missing summary.
type AnalysisSucceeded struct {
	OpID     string
	RecordID string
	Notice   string
}

func (a AnalysisSucceeded) opID() string { return a.OpID }

func (a AnalysisSucceeded) apply(s State) State {
	if !moveAnalysis(&s, AnalysisSuccess) {
		return s
	}
	s.Analysis.RecordID = a.RecordID
	s.Analysis.Notice = a.Notice
	s.Analysis.Error = ""
	s.Document.Loaded = true
	s.ActiveOp = ActiveOp{}
	s.Prior = nil
	return s
}

// AnalysisFailed keeps clauses already received and records Message.
type AnalysisFailed struct {
	OpID    string
	Message string
}

func (a AnalysisFailed) opID() string { return a.OpID }

func (a AnalysisFailed) apply(s State) State {
	if !moveAnalysis(&s, AnalysisFailure) {
		return s
	}
	s.Analysis.Error = a.Message
	if s.Analysis.Error == "" {
		s.Analysis.Error = msgNoClauses
	}
	s.ActiveOp = ActiveOp{}
	s.Prior = nil
	return s
}

// AnalysisCanceled is dispatched when the stream itself observed cancellation.
type AnalysisCanceled struct {
	OpID string
}

func (a AnalysisCanceled) opID() string { return a.OpID }

func (a AnalysisCanceled) apply(s State) State { return settle(s) }

// StartReanalysis re-explains the current clauses for Persona.
type StartReanalysis struct {
	OpID    string
	Persona contract.Persona
}

func (a StartReanalysis) apply(s State) State {
	s = settle(s)
	if !moveAnalysis(&s, AnalysisReanalyzing) {
		return s
	}
	s.ActiveOp = ActiveOp{ID: a.OpID, Kind: opslot.KindReanalysis}
	s.Analysis.PendingPersona = a.Persona
	s.Analysis.Notice = ""
	return s
}

// ReanalysisApplied replaces clause explanations by id. Clause order and
// membership never change.
type ReanalysisApplied struct {
	OpID         string
	Explanations map[string]string
	Options      contract.AnalysisOptions
}

func (a ReanalysisApplied) opID() string { return a.OpID }

func (a ReanalysisApplied) apply(s State) State {
	if s.Analysis.Status != AnalysisReanalyzing || !moveAnalysis(&s, AnalysisSuccess) {
		return s
	}
	s.Analysis.Result = contract.ApplyExplanations(s.Analysis.Result, a.Explanations)
	s.Analysis.Options = a.Options
	s.Analysis.PendingPersona = ""
	s.ActiveOp = ActiveOp{}
	return s
}

// ReanalysisFailed returns to the previous result and reports Message as a notice.
type ReanalysisFailed struct {
	OpID    string
	Message string
}

func (a ReanalysisFailed) opID() string { return a.OpID }

func (a ReanalysisFailed) apply(s State) State {
	if s.Analysis.Status != AnalysisReanalyzing || !moveAnalysis(&s, AnalysisSuccess) {
		return s
	}
	s.Analysis.Notice = a.Message
	s.Analysis.PendingPersona = ""
	s.ActiveOp = ActiveOp{}
	return s
}

// RecordDeletedExternally reports that RecordID vanished from storage. It applies
// only while RecordID is the current record, and never applies pending changes.
type RecordDeletedExternally struct {
	RecordID string
}

func (a RecordDeletedExternally) apply(s State) State {
	if p := s.Prior; p != nil && a.RecordID != "" && a.RecordID == p.Analysis.RecordID &&
		CanAnalysis(p.Analysis.Status, AnalysisDeletedExternally) {
		prior := *p
		prior.Analysis.Status = AnalysisDeletedExternally
		prior.Analysis.Error = msgDeletedExternally
		s.Prior = &prior
		return s
	}
	if a.RecordID == "" || a.RecordID != s.Analysis.RecordID {
		return s
	}
	if s.ActiveOp.Kind == opslot.KindReanalysis {
		s.ActiveOp = ActiveOp{}
	}
	if !moveAnalysis(&s, AnalysisDeletedExternally) {
		return s
	}
	s.Analysis.PendingPersona = ""
	s.Analysis.Error = msgDeletedExternally
	return s
}

// RecordResaved recovers from deleted_externally after the record was stored again.
type RecordResaved struct {
	RecordID string
}

func (a RecordResaved) apply(s State) State {
	if s.Analysis.Status != AnalysisDeletedExternally || !moveAnalysis(&s, AnalysisSuccess) {
		return s
	}
	s.Analysis.RecordID = a.RecordID
	s.Analysis.Error = ""
	s.Document.Loaded = true
	return s
}
