package appstate

import "contract-decoder/internal/contract"

// Action is a closed set of state changes; only this package can define new ones.
type Action interface {
	apply(State) State
}

// background actions come from an operation and apply only while it is the active one.
type background interface {
	Action
	opID() string
}

// Reduce returns the state after a. s is not modified.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	if b, ok := a.(background); ok {
		if id := b.opID(); id == "" || id != s.ActiveOp.ID {
			return s
		}
	}
	return a.apply(s.Clone())
}

// settle ends whatever the active operation was doing, as if it had been
// cancelled, and clears ActiveOp. Start actions call it before taking over.
func settle(s State) State {
	switch s.Analysis.Status {
	case AnalysisLoading:
		if p := s.Prior; p != nil {
			s.Analysis = p.Analysis
			s.Chat = p.Chat
			s.Document.Loaded = p.Loaded
		} else {
			s.Analysis = AnalysisState{Status: AnalysisIdle, Options: s.Analysis.Options}
		}
	case AnalysisReanalyzing:
		s.Analysis.Status = AnalysisSuccess
		s.Analysis.PendingPersona = ""
	}
	s.Chat.Messages = withoutPlaceholders(s.Chat.Messages, s.Chat.StreamingID)
	s.Chat.StreamingID = ""
	if s.Chat.Status == ChatTyping {
		s.Chat.Status = ChatReady
	}
	s.ActiveOp = ActiveOp{}
	s.Prior = nil
	return s
}

// withoutPlaceholders drops empty AI placeholders and the partial reply streamingID.
func withoutPlaceholders(msgs []contract.ChatMessage, streamingID string) []contract.ChatMessage {
	out := msgs[:0:0]
	for _, m := range msgs {
		if !m.IsPlaceholder() && (streamingID == "" || m.ID != streamingID) {
			out = append(out, m)
		}
	}
	return out
}

func moveAnalysis(s *State, to AnalysisStatus) bool {
	if !CanAnalysis(s.Analysis.Status, to) {
		return false
	}
	s.Analysis.Status = to
	return true
}

func moveChat(s *State, to ChatStatus) bool {
	if !CanChat(s.Chat.Status, to) {
		return false
	}
	s.Chat.Status = to
	return true
}

func clearDerived(s State) State {
	s = settle(s)
	s.Analysis = AnalysisState{Status: AnalysisIdle}
	s.Chat = ChatState{Status: ChatUnavailable}
	s.Document.Loaded = false
	return s
}

// AcceptDisclaimer records first-use consent.
type AcceptDisclaimer struct{}

func (AcceptDisclaimer) apply(s State) State {
	if CanDisclaimer(s.Disclaimer, DisclaimerAccepted) {
		s.Disclaimer = DisclaimerAccepted
	}
	return s
}

type DismissDisclaimer struct{}

func (DismissDisclaimer) apply(s State) State {
	if CanDisclaimer(s.Disclaimer, DisclaimerDismissed) {
		s.Disclaimer = DisclaimerDismissed
	}
	return s
}

// Navigate switches tools. It ends the active operation and abandons pending
// single-shot requests so their late results are ignored.
type Navigate struct {
	Tool Tool
}

func (a Navigate) apply(s State) State {
	s = settle(s)
	if s.Comparison.Status == RequestLoading {
		s.Comparison = ComparisonState{Status: RequestIdle}
	}
	if s.Draft.Status == RequestLoading {
		s.Draft = DraftState{Status: RequestIdle}
	}
	s.Comparison.RequestID = ""
	s.Draft.RequestID = ""
	s.Tool = a.Tool
	return s
}

// CancelActive ends the active operation on explicit user request.
type CancelActive struct{}

func (CancelActive) apply(s State) State { return settle(s) }

// SetContractText replaces the input. Editing the source of a loaded analysis
// drops the analysis and its chat.
type SetContractText struct {
	Text  string
	Title string
}

func (a SetContractText) apply(s State) State {
	if a.Text != s.Document.Text {
		if s.Document.Loaded {
			s = clearDerived(s)
		}
		s.Prior = nil
	}
	s.Document.Text = a.Text
	s.Document.Title = a.Title
	s.Document.InputError = ""
	return s
}

// ContractTextRejected reports oversized or unreadable input. The previous text is kept.
type ContractTextRejected struct {
	Reason string
}

func (a ContractTextRejected) apply(s State) State {
	s.Document.InputError = a.Reason
	return s
}

// ClearContractText empties the input. On a loaded document it also clears the
// analysis, chat history and loaded flag. Applying it twice equals applying it once.
type ClearContractText struct{}

func (ClearContractText) apply(s State) State {
	if s.Document.Loaded {
		s = clearDerived(s)
	}
	s.Prior = nil
	s.Document = DocumentState{}
	return s
}

// LoadedRecord is a persisted analysis restored into the workspace.
type LoadedRecord struct {
	ID          string
	Title       string
	Text        string
	Analysis    contract.ContractAnalysis
	Options     contract.AnalysisOptions
	ChatHistory []contract.ChatMessage
}

// RecordLoaded shows a persisted analysis, ending any active operation.
type RecordLoaded struct {
	Record LoadedRecord
}

func (a RecordLoaded) apply(s State) State {
	s = settle(s)
	r := a.Record
	s.Tool = ToolAnalyze
	s.Document = DocumentState{Text: r.Text, Title: r.Title, Loaded: true}
	s.Analysis = AnalysisState{
		Status:   AnalysisSuccess,
		Result:   r.Analysis.Clone(),
		Options:  r.Options,
		RecordID: r.ID,
		Progress: Progress{},
	}
	s.Chat = ChatState{Status: ChatUnavailable, Messages: withoutPlaceholders(r.ChatHistory, "")}
	return s
}

