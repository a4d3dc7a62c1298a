package contract

import "strings"

// Persona selects the tone and angle of an analysis.
type Persona string

const (
	PersonaLayperson     Persona = "layperson"
	PersonaBusinessOwner Persona = "business_owner"
	PersonaFreelancer    Persona = "freelancer"
	PersonaTenant        Persona = "tenant"
	PersonaLawyer        Persona = "lawyer"
)

// Personas lists the supported personas in display order.
var Personas = []Persona{PersonaLayperson, PersonaBusinessOwner, PersonaFreelancer, PersonaTenant, PersonaLawyer}

// NormalizePersona maps free-form input to a supported persona, defaulting to layperson.
func NormalizePersona(raw string) Persona {
	p := Persona(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Personas {
		if p == known {
			return p
		}
	}
	return PersonaLayperson
}

// Describe returns the audience description embedded in prompts.
func (p Persona) Describe() string {
	switch p {
	case PersonaBusinessOwner:
		return "a small business owner focused on liability, payment terms and operational obligations"
	case PersonaFreelancer:
		return "a freelancer or independent contractor focused on scope, payment, IP ownership and termination"
	case PersonaTenant:
		return "a residential tenant focused on rent, deposits, repairs and eviction rights"
	case PersonaLawyer:
		return "a practicing lawyer who wants precise legal terminology and enforceability concerns"
	default:
		return "a layperson with no legal training who needs plain-language explanations"
	}
}

// AnalysisOptions is fixed for one analysis run.
type AnalysisOptions struct {
	Persona Persona `json:"persona"`
	Focus   string  `json:"focus,omitempty"`
}

// Normalize returns a copy with a supported persona and trimmed focus.
func (o AnalysisOptions) Normalize() AnalysisOptions {
	return AnalysisOptions{
		Persona: NormalizePersona(string(o.Persona)),
		Focus:   strings.TrimSpace(o.Focus),
	}
}

type RiskLevel string

const (
	RiskLow     RiskLevel = "Low"
	RiskMedium  RiskLevel = "Medium"
	RiskHigh    RiskLevel = "High"
	RiskUnknown RiskLevel = "Unknown"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// DecodedClause is one identified unit of contract text with its risk rating.
type DecodedClause struct {
	ID              string     `json:"id"`
	OccurrenceIndex int        `json:"occurrenceIndex"`
	Title           string     `json:"title"`
	Explanation     string     `json:"explanation"`
	Risk            RiskLevel  `json:"risk"`
	OriginalClause  string     `json:"originalClause"`
	Confidence      Confidence `json:"confidence"`
	GoodToKnow      bool       `json:"goodToKnow"`
}

// Header is the document-level summary synthesized after all chunks.
type Header struct {
	DocumentTitle string   `json:"documentTitle"`
	OverallScore  int      `json:"overallScore"`
	KeyTakeaways  []string `json:"keyTakeaways"`
}

// ContractAnalysis is the full structured result. Clauses grow during streaming; header fields are set last.
type ContractAnalysis struct {
	DocumentTitle string          `json:"documentTitle"`
	OverallScore  int             `json:"overallScore"`
	KeyTakeaways  []string        `json:"keyTakeaways"`
	Clauses       []DecodedClause `json:"clauses"`
}

// WithHeader returns a copy carrying the header fields.
func (a ContractAnalysis) WithHeader(h Header) ContractAnalysis {
	a.DocumentTitle = h.DocumentTitle
	a.OverallScore = h.OverallScore
	a.KeyTakeaways = append([]string(nil), h.KeyTakeaways...)
	return a
}

// Clone returns a deep copy.
func (a ContractAnalysis) Clone() ContractAnalysis {
	out := a
	out.KeyTakeaways = append([]string(nil), a.KeyTakeaways...)
	out.Clauses = append([]DecodedClause(nil), a.Clauses...)
	return out
}

// ApplyExplanations replaces Explanation for clauses whose id appears in explanations.
// Order and membership of clauses never change; unknown ids and blank explanations are ignored.
func ApplyExplanations(a ContractAnalysis, explanations map[string]string) ContractAnalysis {
	out := a.Clone()
	for i := range out.Clauses {
		if text, ok := explanations[out.Clauses[i].ID]; ok && strings.TrimSpace(text) != "" {
			out.Clauses[i].Explanation = strings.TrimSpace(text)
		}
	}
	return out
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one bubble in the conversation.
type ChatMessage struct {
	ID              string `json:"id"`
	Sender          Sender `json:"sender"`
	Text            string `json:"text"`
	Error           string `json:"error,omitempty"`
	OriginalMessage string `json:"originalMessage,omitempty"`
}

// IsPlaceholder reports whether m is the "typing" indicator.
func (m ChatMessage) IsPlaceholder() bool {
	return m.Sender == SenderAI && m.Text == "" && m.Error == ""
}

type ChangeType string

const (
	ChangeAdded     ChangeType = "Added"
	ChangeRemoved   ChangeType = "Removed"
	ChangeModified  ChangeType = "Modified"
	ChangeUnchanged ChangeType = "Unchanged"
)

type ComparisonSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

type ClauseChange struct {
	ChangeType ChangeType `json:"changeType"`
	Summary    string     `json:"summary,omitempty"`
	TextA      string     `json:"textA,omitempty"`
	TextB      string     `json:"textB,omitempty"`
}

// ComparisonResult is the structured diff of two documents.
type ComparisonResult struct {
	Summary ComparisonSummary `json:"summary"`
	Clauses []ClauseChange    `json:"clauses"`
}
