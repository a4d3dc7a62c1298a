package drafting

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm/llmtest"
	"contract-decoder/internal/prompts"
)

func TestDraftReturnsTrimmedText(t *testing.T) {
	fake := llmtest.New().Text("\n1. Parties\n...\n")
	out, err := New(fake).Draft(context.Background(), prompts.DraftRequest{DocumentType: "NDA", Details: "Mutual, **2 years**"})
	require.NoError(t, err)
	assert.Equal(t, "1. Parties\n...", out)
	req := fake.Requests()[0]
	assert.Contains(t, req.Prompt, "Draft a NDA")
	assert.Contains(t, req.Prompt, "Mutual, 2 years")
	assert.Nil(t, req.Schema)
}

func TestDraftValidatesInput(t *testing.T) {
	fake := llmtest.New()
	_, err := New(fake).Draft(context.Background(), prompts.DraftRequest{Details: "  ** "})
	assert.ErrorIs(t, err, ErrEmptyDetails)

	_, err = New(fake).Draft(context.Background(), prompts.DraftRequest{Details: strings.Repeat("x", MaxDetailsChars+1)})
	assert.ErrorIs(t, err, contract.ErrInputTooLarge)
	assert.Empty(t, fake.Requests())
}
