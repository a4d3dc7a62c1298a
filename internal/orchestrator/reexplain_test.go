package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/llm/llmtest"
	"contract-decoder/internal/opslot"
)

func sampleAnalysis() contract.ContractAnalysis {
	return contract.ContractAnalysis{
		DocumentTitle: "Lease",
		Clauses: []contract.DecodedClause{
			{ID: "clause-1", Title: "Rent", Explanation: "old", OriginalClause: "Rent is `$1,500`."},
			{ID: "clause-2", Title: "Fee", Explanation: "old", OriginalClause: "Late fee."},
		},
	}
}

func TestReexplainFiltersUnknownIDs(t *testing.T) {
	fake := llmtest.New().Text(`[{"id":"clause-2","explanation":"For a lawyer"},{"id":"clause-9","explanation":"ghost"}]`)
	slot := opslot.New()
	run := New(fake, slot).Reexplain(context.Background(), sampleAnalysis(), contract.AnalysisOptions{Persona: contract.PersonaLawyer})

	got, err := run.Wait()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"clause-2": "For a lawyer"}, got)
	assert.Nil(t, slot.Current())
	assert.NotContains(t, fake.Requests()[0].Prompt, "`")
}

func TestReexplainCanceledBySlot(t *testing.T) {
	slot := opslot.New()
	fake := llmtest.New().Reply(llmtest.Reply{
		Text:   `[{"id":"clause-1","explanation":"x"}]`,
		Before: func(llm.Request) { slot.Acquire(context.Background(), opslot.KindNavigation) },
	})
	run := New(fake, slot).Reexplain(context.Background(), sampleAnalysis(), contract.AnalysisOptions{})
	_, err := run.Wait()
	assert.ErrorIs(t, err, opslot.ErrCanceled)
}

func TestReexplainWithoutClauses(t *testing.T) {
	run := New(llmtest.New(), opslot.New()).Reexplain(context.Background(), contract.ContractAnalysis{}, contract.AnalysisOptions{})
	_, err := run.Wait()
	assert.ErrorIs(t, err, ErrNoClauses)
}
