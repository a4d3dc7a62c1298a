// Package appstate holds the application state and the pure reducer that changes it.
//
// The state is a composition of independent sub-machines (analysis, chat,
// disclaimer, comparison, drafting), each with its own transition table.
package appstate

import (
	"contract-decoder/internal/contract"
	"contract-decoder/internal/opslot"
)

type Tool string

const (
	ToolAnalyze Tool = "analyze"
	ToolCompare Tool = "compare"
	ToolDraft   Tool = "draft"
	ToolHistory Tool = "history"
)

// ParseTool reports whether raw names a tool.
func ParseTool(raw string) (Tool, bool) {
	switch t := Tool(raw); t {
	case ToolAnalyze, ToolCompare, ToolDraft, ToolHistory:
		return t, true
	default:
		return "", false
	}
}

type AnalysisStatus string

const (
	AnalysisIdle              AnalysisStatus = "idle"
	AnalysisLoading           AnalysisStatus = "loading"
	AnalysisSuccess           AnalysisStatus = "success"
	AnalysisFailure           AnalysisStatus = "failure"
	AnalysisReanalyzing       AnalysisStatus = "reanalyzing"
	AnalysisDeletedExternally AnalysisStatus = "deleted_externally"
)

type ChatStatus string

const (
	ChatUnavailable ChatStatus = "unavailable"
	ChatReady       ChatStatus = "ready"
	ChatTyping      ChatStatus = "typing"
	ChatError       ChatStatus = "error"
)

type DisclaimerStatus string

const (
	DisclaimerPending   DisclaimerStatus = "pending"
	DisclaimerAccepted  DisclaimerStatus = "accepted"
	DisclaimerDismissed DisclaimerStatus = "dismissed"
)

// RequestStatus is the lifecycle of a single-shot request (comparison, drafting).
type RequestStatus string

const (
	RequestIdle    RequestStatus = "idle"
	RequestLoading RequestStatus = "loading"
	RequestSuccess RequestStatus = "success"
	RequestFailure RequestStatus = "failure"
)

// ActiveOp identifies the background operation whose results may change state.
type ActiveOp struct {
	ID   string      `json:"id,omitempty"`
	Kind opslot.Kind `json:"kind,omitempty"`
}

type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type DocumentState struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
	// Loaded is set while the text is the source of a persisted analysis.
	Loaded     bool   `json:"loaded"`
	InputError string `json:"inputError,omitempty"`
}

type AnalysisState struct {
	Status   AnalysisStatus            `json:"status"`
	Result   contract.ContractAnalysis `json:"result"`
	Options  contract.AnalysisOptions  `json:"options"`
	Progress Progress                  `json:"progress"`
	Error    string                    `json:"error,omitempty"`
	// Notice carries non-fatal problems such as a missing summary.
	Notice         string           `json:"notice,omitempty"`
	RecordID       string           `json:"recordId,omitempty"`
	PendingPersona contract.Persona `json:"pendingPersona,omitempty"`
}

type ChatState struct {
	Status   ChatStatus             `json:"status"`
	Messages []contract.ChatMessage `json:"messages"`
	Error    string                 `json:"error,omitempty"`
	// StreamingID is the AI message receiving deltas.
	StreamingID string `json:"streamingId,omitempty"`
}

type ComparisonState struct {
	Status    RequestStatus              `json:"status"`
	RequestID string                     `json:"requestId,omitempty"`
	Result    *contract.ComparisonResult `json:"result,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

type DraftState struct {
	Status    RequestStatus `json:"status"`
	RequestID string        `json:"requestId,omitempty"`
	Text      string        `json:"text,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// State is the single application-wide state.
type State struct {
	Tool       Tool             `json:"tool"`
	Disclaimer DisclaimerStatus `json:"disclaimer"`
	ActiveOp   ActiveOp         `json:"activeOp"`
	Document   DocumentState    `json:"document"`
	Analysis   AnalysisState    `json:"analysis"`
	Chat       ChatState        `json:"chat"`
	Comparison ComparisonState  `json:"comparison"`
	Draft      DraftState       `json:"draft"`

	// Prior is what StartAnalysis replaced. Cancelling the run puts it back.
	Prior *PriorView `json:"-"`
}

// PriorView is the analysis, chat and loaded flag shown before a re-run.
type PriorView struct {
	Analysis AnalysisState
	Chat     ChatState
	Loaded   bool
}

func Initial() State {
	return State{
		Tool:       ToolAnalyze,
		Disclaimer: DisclaimerPending,
		Analysis:   AnalysisState{Status: AnalysisIdle},
		Chat:       ChatState{Status: ChatUnavailable},
		Comparison: ComparisonState{Status: RequestIdle},
		Draft:      DraftState{Status: RequestIdle},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Analysis.Result = s.Analysis.Result.Clone()
	out.Chat.Messages = append([]contract.ChatMessage(nil), s.Chat.Messages...)
	if s.Comparison.Result != nil {
		r := *s.Comparison.Result
		r.Clauses = append([]contract.ClauseChange(nil), r.Clauses...)
		out.Comparison.Result = &r
	}
	if s.Prior != nil {
		p := *s.Prior
		p.Analysis.Result = p.Analysis.Result.Clone()
		p.Chat.Messages = append([]contract.ChatMessage(nil), p.Chat.Messages...)
		out.Prior = &p
	}
	return out
}

// ShownRecordID is the record on screen, or the one a running analysis will
// return to if it is cancelled.
func (s State) ShownRecordID() string {
	if s.Analysis.RecordID == "" && s.Prior != nil {
		return s.Prior.Analysis.RecordID
	}
	return s.Analysis.RecordID
}

// Busy reports whether a background operation holds the state.
func (s State) Busy() bool { return s.ActiveOp.ID != "" }

// PlaceholderCount returns the number of AI typing placeholders in the conversation.
func (s State) PlaceholderCount() int {
	n := 0
	for _, m := range s.Chat.Messages {
		if m.IsPlaceholder() {
			n++
		}
	}
	return n
}
