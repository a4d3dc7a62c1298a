// Package workspace composes the reducer with the analysis, chat, comparison,
// drafting and persistence components. Every operation turns its outcome,
// including failures, into reducer actions.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"contract-decoder/internal/analyses"
	"contract-decoder/internal/appstate"
	"contract-decoder/internal/chat"
	"contract-decoder/internal/comparison"
	"contract-decoder/internal/contract"
	"contract-decoder/internal/drafting"
	"contract-decoder/internal/extract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/opslot"
	"contract-decoder/internal/orchestrator"
	"contract-decoder/internal/shared/telemetry"
)

const DefaultMaxContractChars = 200000

// Deps are the collaborators of a Workspace. Slot defaults to a new slot.
type Deps struct {
	Client             llm.Client
	Repo               analyses.Repo
	Slot               *opslot.Slot
	ChunkSize          int
	MaxContractChars   int
	MaxComparisonChars int
}

// Workspace is the single-user application session.
type Workspace struct {
	mu    sync.Mutex
	state appstate.State

	client   llm.Client
	repo     analyses.Repo
	slot     *opslot.Slot
	orch     *orchestrator.Orchestrator
	chat     *chat.Session
	compare  *comparison.Requester
	drafter  *drafting.Requester
	maxChars int
}

func New(d Deps) *Workspace {
	if d.Client == nil {
		d.Client = llm.PlaceholderClient{}
	}
	if d.Repo == nil {
		d.Repo = analyses.NewMemoryRepo()
	}
	if d.Slot == nil {
		d.Slot = opslot.New()
	}
	if d.MaxContractChars <= 0 {
		d.MaxContractChars = DefaultMaxContractChars
	}
	var orchOpts []orchestrator.Option
	if d.ChunkSize > 0 {
		orchOpts = append(orchOpts, orchestrator.WithChunkSize(d.ChunkSize))
	}
	return &Workspace{
		state:    appstate.Initial(),
		client:   d.Client,
		repo:     d.Repo,
		slot:     d.Slot,
		orch:     orchestrator.New(d.Client, d.Slot, orchOpts...),
		chat:     chat.New(d.Client, d.Slot),
		compare:  comparison.New(d.Client, d.MaxComparisonChars),
		drafter:  drafting.New(d.Client),
		maxChars: d.MaxContractChars,
	}
}

// State returns a copy of the current state.
func (w *Workspace) State() appstate.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// Available reports whether the model provider is configured.
func (w *Workspace) Available() bool { return w.client.Available() }

// MaxContractChars is the input limit for SetContractText.
func (w *Workspace) MaxContractChars() int { return w.maxChars }

// ComparisonLimit is the combined input limit for Compare.
func (w *Workspace) ComparisonLimit() int { return w.compare.Limit() }

func (w *Workspace) dispatch(a appstate.Action) appstate.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = appstate.Reduce(w.state, a)
	return w.state.Clone()
}

// dispatchFrom applies a and returns the states before and after.
func (w *Workspace) dispatchFrom(a appstate.Action) (before, after appstate.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	before = w.state
	w.state = appstate.Reduce(w.state, a)
	return before.Clone(), w.state.Clone()
}

func (w *Workspace) requireDisclaimer() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Disclaimer != appstate.DisclaimerAccepted {
		return ErrDisclaimerRequired
	}
	return nil
}

func (w *Workspace) AcceptDisclaimer() appstate.State {
	return w.dispatch(appstate.AcceptDisclaimer{})
}

func (w *Workspace) DismissDisclaimer() appstate.State {
	return w.dispatch(appstate.DismissDisclaimer{})
}

// Navigate switches tools and cancels any stream in progress.
func (w *Workspace) Navigate(tool appstate.Tool) (appstate.State, error) {
	if _, ok := appstate.ParseTool(string(tool)); !ok {
		return w.State(), ErrUnknownTool
	}
	w.stopActive()
	return w.dispatch(appstate.Navigate{Tool: tool}), nil
}

// Cancel stops the active analysis, re-analysis or chat reply.
func (w *Workspace) Cancel() (appstate.State, bool) {
	kind, ok := w.stopActive()
	if ok {
		telemetry.Info("operation canceled", map[string]any{"kind": string(kind)})
	}
	return w.dispatch(appstate.CancelActive{}), ok
}

func (w *Workspace) stopActive() (opslot.Kind, bool) {
	w.chat.Cancel()
	return w.slot.Cancel()
}

// SetContractText replaces the input. Oversized text is rejected and the
// previous input is kept.
func (w *Workspace) SetContractText(text, title string) (appstate.State, error) {
	if n := utf8.RuneCountInString(text); n > w.maxChars {
		err := &InputTooLargeError{Chars: n, Limit: w.maxChars}
		return w.dispatch(appstate.ContractTextRejected{Reason: err.Error()}), err
	}
	before, after := w.dispatchFrom(appstate.SetContractText{Text: text, Title: strings.TrimSpace(title)})
	w.afterDocumentChange(before, after)
	return after, nil
}

// Upload extracts text from a PDF, DOCX or plain-text file and makes it the input.
func (w *Workspace) Upload(ctx context.Context, data []byte, mimeType, fileName string) (appstate.State, error) {
	if len(data) > extract.MaxUploadBytes {
		err := fmt.Errorf("%w: file exceeds %d MB", contract.ErrInputTooLarge, extract.MaxUploadBytes>>20)
		return w.dispatch(appstate.ContractTextRejected{Reason: err.Error()}), err
	}
	text, err := extract.ExtractText(ctx, data, mimeType, fileName)
	if err != nil {
		reason := "The file could not be read."
		switch {
		case errors.Is(err, extract.ErrUnsupported):
			reason = "Only PDF, DOCX and plain-text files are supported."
		case errors.Is(err, extract.ErrNoText):
			reason = "No text could be found in the file."
		}
		telemetry.Warn("upload rejected", map[string]any{"file": fileName, "error": err})
		return w.dispatch(appstate.ContractTextRejected{Reason: reason}), err
	}
	return w.SetContractText(text, strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
}

// ClearContractText empties the input and, for a loaded analysis, drops the analysis and its chat.
func (w *Workspace) ClearContractText() appstate.State {
	before, after := w.dispatchFrom(appstate.ClearContractText{})
	w.afterDocumentChange(before, after)
	return after
}

func (w *Workspace) afterDocumentChange(before, after appstate.State) {
	switch {
	case before.Document.Loaded && !after.Document.Loaded:
		w.stopActive()
		w.chat.Dispose()
	case before.Prior != nil && after.Prior == nil:
		// The running analysis no longer has a previous one to return to.
		w.chat.Dispose()
	}
}

// initChat (re)creates the conversation for the current analysis and reports the outcome to the reducer.
func (w *Workspace) initChat(ctx context.Context, analysis contract.ContractAnalysis, persona contract.Persona, history []contract.ChatMessage) {
	if err := w.chat.Initialize(ctx, analysis, persona, history); err != nil {
		msg := "Chat is unavailable for this analysis."
		if errors.Is(err, chat.ErrUnavailable) && !w.client.Available() {
			msg = "Chat is unavailable because no API key is configured."
		}
		w.dispatch(appstate.ChatDisabled{Message: msg})
		return
	}
	w.dispatch(appstate.ChatInitialized{})
}

// userMessage turns an error into text suitable for the UI.
func userMessage(err error) string {
	var partial *orchestrator.PartialResultsError
	var tooLarge *comparison.InputTooLargeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &partial):
		return partial.Error()
	case errors.As(err, &tooLarge):
		return tooLarge.Error()
	case errors.Is(err, llm.ErrNotConfigured):
		return "The AI service is not configured. Set API_KEY to enable this feature."
	case errors.Is(err, orchestrator.ErrNoClauses):
		return msgNoClauses
	case errors.Is(err, contract.ErrEmptyDocument):
		return "Paste or upload a contract first."
	case errors.Is(err, contract.ErrMalformed):
		return "The AI service returned an unreadable response. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI service took too long to respond. Please try again."
	default:
		return "The AI service could not complete the request. Please try again."
	}
}
