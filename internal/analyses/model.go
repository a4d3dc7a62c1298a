package analyses

import (
	"time"

	"contract-decoder/internal/contract"
)

// Record is a persisted analysis together with the source text and chat transcript.
type Record struct {
	ID            string                    `json:"id"`
	DocumentTitle string                    `json:"documentTitle"`
	ContractText  string                    `json:"contractText"`
	Analysis      contract.ContractAnalysis `json:"analysis"`
	Options       contract.AnalysisOptions  `json:"options"`
	ChatHistory   []contract.ChatMessage    `json:"chatHistory"`
	CreatedAt     time.Time                 `json:"createdAt"`
}

// Summary is the history list view of a Record.
type Summary struct {
	ID            string           `json:"id"`
	DocumentTitle string           `json:"documentTitle"`
	OverallScore  int              `json:"overallScore"`
	ClauseCount   int              `json:"clauseCount"`
	Persona       contract.Persona `json:"persona"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Summarize returns the list view of r.
func (r Record) Summarize() Summary {
	return Summary{
		ID:            r.ID,
		DocumentTitle: r.DocumentTitle,
		OverallScore:  r.Analysis.OverallScore,
		ClauseCount:   len(r.Analysis.Clauses),
		Persona:       r.Options.Persona,
		CreatedAt:     r.CreatedAt,
	}
}

// Patch lists the fields to change in Update. Nil fields are left alone.
type Patch struct {
	DocumentTitle *string
	Analysis      *contract.ContractAnalysis
	Options       *contract.AnalysisOptions
	ChatHistory   []contract.ChatMessage
	// SetChatHistory distinguishes an empty transcript from "no change".
	SetChatHistory bool
}

// WithChatHistory returns a patch that replaces the transcript.
func WithChatHistory(msgs []contract.ChatMessage) Patch {
	return Patch{ChatHistory: msgs, SetChatHistory: true}
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.DocumentTitle == nil && p.Analysis == nil && p.Options == nil && !p.SetChatHistory
}

func (p Patch) applyTo(r Record) Record {
	if p.DocumentTitle != nil {
		r.DocumentTitle = *p.DocumentTitle
	}
	if p.Analysis != nil {
		r.Analysis = p.Analysis.Clone()
	}
	if p.Options != nil {
		r.Options = *p.Options
	}
	if p.SetChatHistory {
		r.ChatHistory = append([]contract.ChatMessage(nil), p.ChatHistory...)
	}
	return r
}

func (r Record) clone() Record {
	r.Analysis = r.Analysis.Clone()
	r.ChatHistory = append([]contract.ChatMessage(nil), r.ChatHistory...)
	return r
}
