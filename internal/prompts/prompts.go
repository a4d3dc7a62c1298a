// Package prompts renders the requests sent to the model. Every function is pure.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
)

var (
	//go:embed templates/clauses.txt
	clausesTemplate string
	//go:embed templates/header.txt
	headerTemplate string
	//go:embed templates/chat.txt
	chatTemplate string
	//go:embed templates/reexplain.txt
	reexplainTemplate string
	//go:embed templates/compare.txt
	compareTemplate string
	//go:embed templates/draft.txt
	draftTemplate string
)

const (
	systemStructured = "You are a contract analysis engine. Respond with JSON only. Output must match the schema exactly."
	systemDrafting   = "You are a careful contract drafter. Respond with the document text only, no commentary."

	// CitationPrefix opens an inline clause citation: [Citation: clause-3].
	CitationPrefix = "[Citation: "

	analysisTemperature = 0.2
	chatTemperature     = 0.4
	draftTemperature    = 0.6
)

// Request names, used for logging and metrics.
const (
	NameClauses    = "clauses"
	NameHeader     = "header"
	NameReexplain  = "reexplain"
	NameComparison = "comparison"
	NameDraft      = "draft"
)

// ClauseExtraction builds the request for chunk index (0-based) of total.
func ClauseExtraction(chunk string, index, total int, opts contract.AnalysisOptions) llm.Request {
	opts = opts.Normalize()
	r := strings.NewReplacer(
		"{{CHUNK_NUMBER}}", strconv.Itoa(index+1),
		"{{CHUNK_TOTAL}}", strconv.Itoa(total),
		"{{AUDIENCE}}", opts.Persona.Describe(),
		"{{FOCUS}}", focusLine(opts.Focus),
		"{{CHUNK}}", chunk,
	)
	return llm.Request{
		Name:        NameClauses,
		System:      systemStructured,
		Prompt:      r.Replace(clausesTemplate),
		Schema:      ClauseListSchema(),
		Temperature: llm.Temperature(analysisTemperature),
	}
}

// Digest is the condensed form of an extracted clause used for header synthesis.
type Digest struct {
	ID    string
	Title string
	Risk  contract.RiskLevel
}

func (d Digest) String() string {
	return fmt.Sprintf("%s | %s | %s", d.ID, d.Title, d.Risk)
}

// Digests condenses clauses in order.
func Digests(clauses []contract.DecodedClause) []Digest {
	out := make([]Digest, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, Digest{ID: c.ID, Title: c.Title, Risk: c.Risk})
	}
	return out
}

// HeaderSynthesis builds the request for the document-level header.
func HeaderSynthesis(digests []Digest, opts contract.AnalysisOptions) llm.Request {
	opts = opts.Normalize()
	lines := make([]string, 0, len(digests))
	for _, d := range digests {
		lines = append(lines, d.String())
	}
	r := strings.NewReplacer(
		"{{AUDIENCE}}", opts.Persona.Describe(),
		"{{FOCUS}}", focusLine(opts.Focus),
		"{{DIGESTS}}", strings.Join(lines, "\n"),
	)
	return llm.Request{
		Name:        NameHeader,
		System:      systemStructured,
		Prompt:      r.Replace(headerTemplate),
		Schema:      HeaderSchema(),
		Temperature: llm.Temperature(analysisTemperature),
	}
}

// ChatSystemInstruction seeds a conversation about a finished analysis.
func ChatSystemInstruction(a contract.ContractAnalysis, persona contract.Persona) string {
	takeaways := make([]string, 0, len(a.KeyTakeaways))
	for _, t := range a.KeyTakeaways {
		takeaways = append(takeaways, "- "+t)
	}
	if len(takeaways) == 0 {
		takeaways = append(takeaways, "- (none)")
	}
	index := make([]string, 0, len(a.Clauses))
	for _, c := range a.Clauses {
		index = append(index, fmt.Sprintf("%s: %s [%s]", c.ID, c.Title, c.Risk))
	}
	title := a.DocumentTitle
	if strings.TrimSpace(title) == "" {
		title = contract.DefaultDocumentTitle
	}
	r := strings.NewReplacer(
		"{{AUDIENCE}}", contract.NormalizePersona(string(persona)).Describe(),
		"{{TITLE}}", title,
		"{{SCORE}}", strconv.Itoa(a.OverallScore),
		"{{TAKEAWAYS}}", strings.Join(takeaways, "\n"),
		"{{INDEX}}", strings.Join(index, "\n"),
	)
	return r.Replace(chatTemplate)
}

// ChatTemperature is the sampling temperature for conversations.
func ChatTemperature() *float32 {
	return llm.Temperature(chatTemperature)
}

type reexplainItem struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Risk           string `json:"risk"`
	OriginalClause string `json:"originalClause"`
}

// ClauseReexplanation asks for new explanations of clauses for a different persona.
func ClauseReexplanation(clauses []contract.DecodedClause, opts contract.AnalysisOptions) llm.Request {
	opts = opts.Normalize()
	items := make([]reexplainItem, 0, len(clauses))
	for _, c := range clauses {
		items = append(items, reexplainItem{ID: c.ID, Title: c.Title, Risk: string(c.Risk), OriginalClause: c.OriginalClause})
	}
	payload, _ := json.MarshalIndent(items, "", "  ")
	r := strings.NewReplacer(
		"{{AUDIENCE}}", opts.Persona.Describe(),
		"{{FOCUS}}", focusLine(opts.Focus),
		"{{CLAUSES}}", string(payload),
	)
	return llm.Request{
		Name:        NameReexplain,
		System:      systemStructured,
		Prompt:      r.Replace(reexplainTemplate),
		Schema:      ExplanationListSchema(),
		Temperature: llm.Temperature(analysisTemperature),
	}
}

// Comparison builds the structured diff request for two document versions.
func Comparison(docA, docB string) llm.Request {
	r := strings.NewReplacer("{{DOC_A}}", docA, "{{DOC_B}}", docB)
	return llm.Request{
		Name:        NameComparison,
		System:      systemStructured,
		Prompt:      r.Replace(compareTemplate),
		Schema:      ComparisonSchema(),
		Temperature: llm.Temperature(0),
	}
}

// DraftRequest describes a document to draft.
type DraftRequest struct {
	DocumentType string           `json:"documentType"`
	Details      string           `json:"details"`
	Persona      contract.Persona `json:"persona"`
}

// Draft builds a free-text drafting request. No schema is attached.
func Draft(req DraftRequest) llm.Request {
	docType := strings.TrimSpace(req.DocumentType)
	if docType == "" {
		docType = "contract"
	}
	r := strings.NewReplacer(
		"{{DOC_TYPE}}", docType,
		"{{AUDIENCE}}", contract.NormalizePersona(string(req.Persona)).Describe(),
		"{{DETAILS}}", strings.TrimSpace(req.Details),
	)
	return llm.Request{
		Name:        NameDraft,
		System:      systemDrafting,
		Prompt:      r.Replace(draftTemplate),
		Temperature: llm.Temperature(draftTemperature),
	}
}

func focusLine(focus string) string {
	focus = strings.TrimSpace(focus)
	if focus == "" {
		return ""
	}
	return "Pay particular attention to: " + focus + "\n"
}
