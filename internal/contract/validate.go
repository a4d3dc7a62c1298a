package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultClauseTitle       = "Untitled clause"
	DefaultClauseExplanation = "No explanation was provided for this clause."
	DefaultDocumentTitle     = "Untitled Document"
	MaxKeyTakeaways          = 5
)

// lenientString accepts JSON strings, numbers and booleans; anything else decodes to "".
type lenientString string

func (s *lenientString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = lenientString(str)
		return nil
	}
	switch data[0] {
	case '{', '[':
		*s = ""
	default:
		*s = lenientString(string(data))
	}
	return nil
}

// lenientBool accepts true/false and their string forms.
type lenientBool bool

func (b *lenientBool) UnmarshalJSON(data []byte) error {
	var raw lenientString
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(string(raw)))
	*b = lenientBool(err == nil && parsed)
	return nil
}

// lenientNumber accepts numbers and numeric strings.
type lenientNumber float64

func (n *lenientNumber) UnmarshalJSON(data []byte) error {
	var raw lenientString
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = lenientNumber(f)
	return nil
}

// lenientStrings accepts a list of strings or a single bare string.
type lenientStrings []lenientString

func (l *lenientStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []lenientString
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var one lenientString
	if err := one.UnmarshalJSON(data); err != nil {
		return err
	}
	*l = nil
	if one != "" {
		*l = lenientStrings{one}
	}
	return nil
}

// RawClause is a clause object as returned by the model, before validation.
type RawClause struct {
	Title          lenientString `json:"title"`
	Explanation    lenientString `json:"explanation"`
	Risk           lenientString `json:"risk"`
	OriginalClause lenientString `json:"originalClause"`
	Confidence     lenientString `json:"confidence"`
	GoodToKnow     lenientBool   `json:"goodToKnow"`

	// malformed is set when the list element was not a clause object.
	malformed string
}

// ClauseResult is the tagged outcome of validating one RawClause.
type ClauseResult struct {
	Accepted bool
	Clause   DecodedClause
	Reason   string
}

// ParseClauses decodes a clause array. A top-level object with a "clauses" array is also accepted.
// Elements are decoded one by one; an element that is not a clause object is
// returned as a RawClause that ValidateClause rejects.
func ParseClauses(raw string) ([]RawClause, error) {
	payload := []byte(extractJSON(raw))
	var elems []json.RawMessage
	if err := json.Unmarshal(payload, &elems); err != nil {
		var wrapped struct {
			Clauses []json.RawMessage `json:"clauses"`
		}
		if err := json.Unmarshal(payload, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: clause list: %v", ErrMalformed, err)
		}
		elems = wrapped.Clauses
	}
	list := make([]RawClause, 0, len(elems))
	for i, elem := range elems {
		var rc RawClause
		if err := json.Unmarshal(elem, &rc); err != nil {
			rc = RawClause{malformed: fmt.Sprintf("element %d is not a clause object", i)}
		}
		list = append(list, rc)
	}
	return list, nil
}

// ValidateClause coerces enum fields and fills placeholders. Clauses with no original text are rejected.
// The returned clause has no ID or OccurrenceIndex; those are assigned by the caller in arrival order.
func ValidateClause(rc RawClause) ClauseResult {
	if rc.malformed != "" {
		return ClauseResult{Clause: DecodedClause{Risk: RiskUnknown, Confidence: ConfidenceLow}, Reason: rc.malformed}
	}
	clause := DecodedClause{
		Title:          strings.TrimSpace(string(rc.Title)),
		Explanation:    strings.TrimSpace(string(rc.Explanation)),
		Risk:           ParseRisk(string(rc.Risk)),
		OriginalClause: strings.TrimSpace(string(rc.OriginalClause)),
		Confidence:     ParseConfidence(string(rc.Confidence)),
		GoodToKnow:     bool(rc.GoodToKnow),
	}
	if clause.Title == "" {
		clause.Title = DefaultClauseTitle
	}
	if clause.Explanation == "" {
		clause.Explanation = DefaultClauseExplanation
	}
	if clause.OriginalClause == "" {
		return ClauseResult{Clause: clause, Reason: "missing originalClause"}
	}
	return ClauseResult{Accepted: true, Clause: clause}
}

// ParseRisk maps model output to a RiskLevel; unrecognized values become Unknown.
func ParseRisk(raw string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskUnknown
	}
}

// ParseConfidence maps model output to a Confidence; unrecognized values become Low.
func ParseConfidence(raw string) Confidence {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

type rawHeader struct {
	DocumentTitle lenientString  `json:"documentTitle"`
	OverallScore  lenientNumber  `json:"overallScore"`
	KeyTakeaways  lenientStrings `json:"keyTakeaways"`
}

// ParseHeader decodes and validates the header object. Score is clamped to [0,100].
func ParseHeader(raw string) (Header, error) {
	var rh rawHeader
	if err := json.Unmarshal([]byte(extractJSON(raw)), &rh); err != nil {
		return Header{}, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	h := Header{
		DocumentTitle: strings.TrimSpace(string(rh.DocumentTitle)),
		OverallScore:  ClampScore(float64(rh.OverallScore)),
	}
	if h.DocumentTitle == "" {
		h.DocumentTitle = DefaultDocumentTitle
	}
	for _, t := range rh.KeyTakeaways {
		if s := strings.TrimSpace(string(t)); s != "" {
			h.KeyTakeaways = append(h.KeyTakeaways, s)
		}
		if len(h.KeyTakeaways) == MaxKeyTakeaways {
			break
		}
	}
	return h, nil
}

// ClampScore rounds and bounds a fairness score to [0,100].
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := int(math.Round(v))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

// ParseExplanations decodes [{id, explanation}] into a map, skipping blank entries.
func ParseExplanations(raw string) (map[string]string, error) {
	var items []struct {
		ID          lenientString `json:"id"`
		Explanation lenientString `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &items); err != nil {
		return nil, fmt.Errorf("%w: explanations: %v", ErrMalformed, err)
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		id := strings.TrimSpace(string(it.ID))
		text := strings.TrimSpace(string(it.Explanation))
		if id == "" || text == "" {
			continue
		}
		out[id] = text
	}
	return out, nil
}

type rawChange struct {
	ChangeType lenientString `json:"changeType"`
	Summary    lenientString `json:"summary"`
	TextA      lenientString `json:"textA"`
	TextB      lenientString `json:"textB"`
}

// ParseComparison decodes the comparison payload. Unknown change types become Modified,
// entries without any text are dropped and summary counts are recomputed from the clauses.
func ParseComparison(raw string) (ComparisonResult, error) {
	var payload struct {
		Clauses []rawChange `json:"clauses"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return ComparisonResult{}, fmt.Errorf("%w: comparison: %v", ErrMalformed, err)
	}
	result := ComparisonResult{Clauses: make([]ClauseChange, 0, len(payload.Clauses))}
	for _, rc := range payload.Clauses {
		change := ClauseChange{
			ChangeType: ParseChangeType(string(rc.ChangeType)),
			Summary:    strings.TrimSpace(string(rc.Summary)),
			TextA:      strings.TrimSpace(string(rc.TextA)),
			TextB:      strings.TrimSpace(string(rc.TextB)),
		}
		if change.TextA == "" && change.TextB == "" {
			continue
		}
		switch change.ChangeType {
		case ChangeAdded:
			result.Summary.Added++
		case ChangeRemoved:
			result.Summary.Removed++
		case ChangeModified:
			result.Summary.Modified++
		}
		result.Clauses = append(result.Clauses, change)
	}
	return result, nil
}

// ParseChangeType maps model output to a ChangeType; unrecognized values become Modified.
func ParseChangeType(raw string) ChangeType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "added":
		return ChangeAdded
	case "removed":
		return ChangeRemoved
	case "unchanged":
		return ChangeUnchanged
	default:
		return ChangeModified
	}
}

// extractJSON strips markdown fences and leading prose around a JSON payload.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return s
	}
	if s[0] == '[' || s[0] == '{' {
		return s
	}
	if i := strings.IndexAny(s, "[{"); i >= 0 {
		return s[i:]
	}
	return s
}
