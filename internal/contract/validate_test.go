package contract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateClauseDropsMissingOriginal(t *testing.T) {
	raws, err := ParseClauses(`[{"title":"X","risk":"Extreme"}]`)
	require.NoError(t, err)
	require.Len(t, raws, 1)

	res := ValidateClause(raws[0])
	assert.False(t, res.Accepted)
	assert.Equal(t, RiskUnknown, res.Clause.Risk)
	assert.Equal(t, "missing originalClause", res.Reason)
}

func TestValidateClauseDefaults(t *testing.T) {
	raws, err := ParseClauses("```json\n[{\"originalClause\":\" Rent is $1,500/month. \",\"confidence\":\"certain\",\"goodToKnow\":\"true\",\"risk\":\"high\"}]\n```")
	require.NoError(t, err)

	res := ValidateClause(raws[0])
	require.True(t, res.Accepted)
	assert.Equal(t, "Rent is $1,500/month.", res.Clause.OriginalClause)
	assert.Equal(t, DefaultClauseTitle, res.Clause.Title)
	assert.Equal(t, DefaultClauseExplanation, res.Clause.Explanation)
	assert.Equal(t, RiskHigh, res.Clause.Risk)
	assert.Equal(t, ConfidenceLow, res.Clause.Confidence)
	assert.True(t, res.Clause.GoodToKnow)
}

func TestParseClausesAcceptsWrappedObject(t *testing.T) {
	raws, err := ParseClauses(`{"clauses":[{"title":7,"originalClause":"Late fee $50 after day 5.","risk":{"x":1}}]}`)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	res := ValidateClause(raws[0])
	require.True(t, res.Accepted)
	assert.Equal(t, "7", res.Clause.Title)
	assert.Equal(t, RiskUnknown, res.Clause.Risk)
}

func TestParseClausesMalformed(t *testing.T) {
	_, err := ParseClauses("not json")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParseHeaderClampsAndTrims(t *testing.T) {
	h, err := ParseHeader(`{"documentTitle":"  ","overallScore":"142.6","keyTakeaways":["a"," ","b","c","d","e","f"]}`)
	require.NoError(t, err)
	assert.Equal(t, DefaultDocumentTitle, h.DocumentTitle)
	assert.Equal(t, 100, h.OverallScore)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, h.KeyTakeaways)

	h, err = ParseHeader(`{"documentTitle":"Lease","overallScore":-3,"keyTakeaways":[]}`)
	require.NoError(t, err)
	assert.Equal(t, 0, h.OverallScore)
}

func TestParseComparisonRecountsSummary(t *testing.T) {
	raw := `{"summary":{"added":9,"removed":9,"modified":9},"clauses":[
		{"changeType":"Added","textB":"New arbitration clause."},
		{"changeType":"Removed","textA":"Old notice clause."},
		{"changeType":"Rewritten","summary":"Fee raised.","textA":"Fee $50.","textB":"Fee $75."},
		{"changeType":"Unchanged","textA":"Same.","textB":"Same."},
		{"changeType":"Added"}
	]}`
	res, err := ParseComparison(raw)
	require.NoError(t, err)
	assert.Equal(t, ComparisonSummary{Added: 1, Removed: 1, Modified: 1}, res.Summary)
	require.Len(t, res.Clauses, 4)
	assert.Equal(t, ChangeModified, res.Clauses[2].ChangeType)
	assert.Equal(t, "Fee raised.", res.Clauses[2].Summary)
}

func TestParseExplanationsSkipsBlanks(t *testing.T) {
	got, err := ParseExplanations(`[{"id":"clause-1","explanation":"New text"},{"id":"","explanation":"x"},{"id":"clause-2","explanation":" "}]`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"clause-1": "New text"}, got)
}

func TestApplyExplanationsKeepsOrderAndMembership(t *testing.T) {
	a := ContractAnalysis{Clauses: []DecodedClause{
		{ID: "clause-1", Explanation: "old 1", OriginalClause: "A"},
		{ID: "clause-2", Explanation: "old 2", OriginalClause: "B"},
		{ID: "clause-3", Explanation: "old 3", OriginalClause: "C"},
	}}
	out := ApplyExplanations(a, map[string]string{"clause-3": "new 3", "clause-9": "ghost", "clause-1": ""})

	require.Len(t, out.Clauses, 3)
	assert.Equal(t, []string{"clause-1", "clause-2", "clause-3"}, []string{out.Clauses[0].ID, out.Clauses[1].ID, out.Clauses[2].ID})
	assert.Equal(t, "old 1", out.Clauses[0].Explanation)
	assert.Equal(t, "new 3", out.Clauses[2].Explanation)
	assert.Equal(t, "old 3", a.Clauses[2].Explanation, "input must not be mutated")
}

func TestNormalizePersona(t *testing.T) {
	assert.Equal(t, PersonaLawyer, NormalizePersona(" Lawyer "))
	assert.Equal(t, PersonaLayperson, NormalizePersona("pirate"))
	assert.Equal(t, AnalysisOptions{Persona: PersonaTenant, Focus: "deposit"}, AnalysisOptions{Persona: "TENANT", Focus: " deposit "}.Normalize())
}

func TestChatMessagePlaceholder(t *testing.T) {
	assert.True(t, ChatMessage{Sender: SenderAI}.IsPlaceholder())
	assert.False(t, ChatMessage{Sender: SenderAI, Error: "failed"}.IsPlaceholder())
	assert.False(t, ChatMessage{Sender: SenderUser}.IsPlaceholder())
}

func TestParseClausesKeepsValidElementsBesideStrays(t *testing.T) {
	raws, err := ParseClauses(`[{"title":"Rent","originalClause":"Rent is $1,500/month."},"stray",7,null]`)
	require.NoError(t, err)
	require.Len(t, raws, 4)

	first := ValidateClause(raws[0])
	require.True(t, first.Accepted)
	assert.Equal(t, "Rent", first.Clause.Title)

	for i, want := range []string{"element 1 is not a clause object", "element 2 is not a clause object", "missing originalClause"} {
		res := ValidateClause(raws[i+1])
		assert.False(t, res.Accepted)
		assert.Equal(t, want, res.Reason)
	}
}

func TestParseClausesWrappedWithStray(t *testing.T) {
	raws, err := ParseClauses(`{"clauses":[["nested"],{"originalClause":"Deposit is $500."}]}`)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.False(t, ValidateClause(raws[0]).Accepted)
	assert.True(t, ValidateClause(raws[1]).Accepted)
}

func TestParseHeaderBareTakeaway(t *testing.T) {
	h, err := ParseHeader(`{"documentTitle":"Lease","overallScore":70,"keyTakeaways":"Rent is fixed."}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rent is fixed."}, h.KeyTakeaways)

	h, err = ParseHeader(`{"documentTitle":"Lease","overallScore":70,"keyTakeaways":{"a":1}}`)
	require.NoError(t, err)
	assert.Empty(t, h.KeyTakeaways)
}
