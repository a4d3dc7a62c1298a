package prompts

import "contract-decoder/internal/llm"

func str(desc string) *llm.Schema {
	return &llm.Schema{Type: llm.TypeString, Description: desc}
}

func enum(values ...string) *llm.Schema {
	return &llm.Schema{Type: llm.TypeString, Enum: values}
}

// ClauseSchema describes one extracted clause.
func ClauseSchema() *llm.Schema {
	return &llm.Schema{
		Type:  llm.TypeObject,
		Order: []string{"title", "explanation", "risk", "originalClause", "confidence", "goodToKnow"},
		Properties: map[string]*llm.Schema{
			"title":          str("Short plain-language clause name"),
			"explanation":    str("What the clause means for the reader"),
			"risk":           enum("Low", "Medium", "High"),
			"originalClause": str("Verbatim clause text from the excerpt"),
			"confidence":     enum("High", "Medium", "Low"),
			"goodToKnow":     {Type: llm.TypeBoolean},
		},
		Required: []string{"title", "explanation", "risk", "originalClause", "confidence", "goodToKnow"},
	}
}

// ClauseListSchema is the array-of-clauses response of a chunk request.
func ClauseListSchema() *llm.Schema {
	return &llm.Schema{Type: llm.TypeArray, Items: ClauseSchema()}
}

// HeaderSchema is the single header object.
func HeaderSchema() *llm.Schema {
	lo, hi := 0.0, 100.0
	return &llm.Schema{
		Type:  llm.TypeObject,
		Order: []string{"documentTitle", "overallScore", "keyTakeaways"},
		Properties: map[string]*llm.Schema{
			"documentTitle": str("Short descriptive document title"),
			"overallScore":  {Type: llm.TypeInteger, Minimum: &lo, Maximum: &hi},
			"keyTakeaways":  {Type: llm.TypeArray, Items: str("")},
		},
		Required: []string{"documentTitle", "overallScore", "keyTakeaways"},
	}
}

// ExplanationListSchema is the array of {id, explanation} used for persona re-analysis.
func ExplanationListSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeArray,
		Items: &llm.Schema{
			Type:       llm.TypeObject,
			Order:      []string{"id", "explanation"},
			Properties: map[string]*llm.Schema{"id": str(""), "explanation": str("")},
			Required:   []string{"id", "explanation"},
		},
	}
}

// ComparisonSchema is the structured diff of two documents.
func ComparisonSchema() *llm.Schema {
	count := &llm.Schema{Type: llm.TypeInteger}
	return &llm.Schema{
		Type:  llm.TypeObject,
		Order: []string{"summary", "clauses"},
		Properties: map[string]*llm.Schema{
			"summary": {
				Type:       llm.TypeObject,
				Order:      []string{"added", "removed", "modified"},
				Properties: map[string]*llm.Schema{"added": count, "removed": count, "modified": count},
				Required:   []string{"added", "removed", "modified"},
			},
			"clauses": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type:  llm.TypeObject,
					Order: []string{"changeType", "summary", "textA", "textB"},
					Properties: map[string]*llm.Schema{
						"changeType": enum("Added", "Removed", "Modified", "Unchanged"),
						"summary":    str("Neutral description of the change for Modified clauses"),
						"textA":      str(""),
						"textB":      str(""),
					},
					Required: []string{"changeType", "summary", "textA", "textB"},
				},
			},
		},
		Required: []string{"summary", "clauses"},
	}
}
