package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/llm/llmtest"
	"contract-decoder/internal/opslot"
)

var analysis = contract.ContractAnalysis{
	DocumentTitle: "Lease",
	OverallScore:  70,
	Clauses:       []contract.DecodedClause{{ID: "clause-1", Title: "Rent", Risk: contract.RiskLow}},
}

func drain(st *Stream) (string, error) {
	var b strings.Builder
	var last error
	for d, err := range st.Deltas() {
		if err != nil {
			last = err
			continue
		}
		b.WriteString(d)
	}
	return b.String(), last
}

func TestInitializeUnavailable(t *testing.T) {
	s := New(llmtest.New().SetAvailable(false), opslot.New())
	assert.ErrorIs(t, s.Initialize(context.Background(), analysis, "", nil), ErrUnavailable)
	assert.False(t, s.Ready())

	s = New(llmtest.New().FailConversations(errors.New("quota")), opslot.New())
	err := s.Initialize(context.Background(), analysis, "", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "quota")
}

func TestInitializeSeedsInstructionAndHistory(t *testing.T) {
	fake := llmtest.New()
	s := New(fake, opslot.New())
	history := []contract.ChatMessage{
		{ID: "1", Sender: contract.SenderUser, Text: "Is rent high?"},
		{ID: "2", Sender: contract.SenderAI, Text: "No [Citation: clause-1]."},
		{ID: "3", Sender: contract.SenderUser, Text: "And fees?"},
		{ID: "4", Sender: contract.SenderAI, Error: "failed", OriginalMessage: "And fees?"},
		{ID: "5", Sender: contract.SenderUser, Text: "pending"},
	}
	require.NoError(t, s.Initialize(context.Background(), analysis, contract.PersonaTenant, history))
	require.True(t, s.Ready())

	cfgs := fake.Conversations()
	require.Len(t, cfgs, 1)
	assert.Contains(t, cfgs[0].SystemInstruction, "clause-1: Rent [Low]")
	assert.Equal(t, []llm.Turn{
		{Role: llm.RoleUser, Text: "Is rent high?"},
		{Role: llm.RoleModel, Text: "No [Citation: clause-1]."},
	}, cfgs[0].History)
}

func TestSendMessageStreamYieldsDeltas(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := llmtest.New().Stream(llmtest.StreamReply{Deltas: []string{"Rent ", "is fine ", "[Citation: clause-1]"}})
	slot := opslot.New()
	s := New(fake, slot)
	require.NoError(t, s.Initialize(context.Background(), analysis, "", nil))

	st := s.SendMessageStream(context.Background(), "  Is **rent** ok?  ")
	assert.Equal(t, "Is rent ok?", st.Message())
	text, err := drain(st)
	require.NoError(t, err)
	assert.Equal(t, "Rent is fine [Citation: clause-1]", text)
	assert.Equal(t, []string{"Is rent ok?"}, fake.Messages())
	assert.Nil(t, slot.Current())
}

func TestSendCancelsAnalysisHolder(t *testing.T) {
	fake := llmtest.New().Stream(llmtest.StreamReply{Deltas: []string{"ok"}})
	slot := opslot.New()
	s := New(fake, slot)
	require.NoError(t, s.Initialize(context.Background(), analysis, "", nil))

	analysisLease := slot.Acquire(context.Background(), opslot.KindAnalysis)
	st := s.SendMessageStream(context.Background(), "hi")
	assert.True(t, analysisLease.Canceled())
	_, err := drain(st)
	assert.NoError(t, err)
}

func TestAbortMidStreamIsCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	slot := opslot.New()
	fake := llmtest.New().Stream(llmtest.StreamReply{
		Deltas: []string{"one ", "two ", "three"},
		Before: func(i int) {
			if i == 1 {
				slot.Acquire(context.Background(), opslot.KindNavigation)
			}
		},
	})
	s := New(fake, slot)
	require.NoError(t, s.Initialize(context.Background(), analysis, "", nil))

	text, err := drain(s.SendMessageStream(context.Background(), "hi"))
	assert.ErrorIs(t, err, opslot.ErrCanceled)
	assert.Equal(t, "one ", text)
}

func TestSessionCancelStopsBlockedStream(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := llmtest.New().Stream(llmtest.StreamReply{Deltas: []string{"partial"}, Block: true})
	s := New(fake, opslot.New())
	require.NoError(t, s.Initialize(context.Background(), analysis, "", nil))

	st := s.SendMessageStream(context.Background(), "hi")
	var got []string
	var last error
	for d, err := range st.Deltas() {
		if err != nil {
			last = err
			continue
		}
		got = append(got, d)
		s.Cancel()
	}
	assert.Equal(t, []string{"partial"}, got)
	assert.ErrorIs(t, last, opslot.ErrCanceled)
}

func TestSendFailureAndUninitialized(t *testing.T) {
	s := New(llmtest.New(), opslot.New())
	_, err := drain(s.SendMessageStream(context.Background(), "hi"))
	assert.ErrorIs(t, err, ErrNotInitialized)

	fake := llmtest.New().Stream(llmtest.StreamReply{Err: errors.New("boom")})
	s = New(fake, opslot.New())
	require.NoError(t, s.Initialize(context.Background(), analysis, "", nil))
	_, err = drain(s.SendMessageStream(context.Background(), "hi"))
	assert.EqualError(t, err, "boom")

	_, err = drain(s.SendMessageStream(context.Background(), "``` ** ##"))
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestDisposeDropsConversation(t *testing.T) {
	s := New(llmtest.New(), opslot.New())
	require.NoError(t, s.Initialize(context.Background(), analysis, "", nil))
	s.Dispose()
	assert.False(t, s.Ready())
}

func TestExtractCitations(t *testing.T) {
	got := ExtractCitations("See [Citation: clause-2] and [Citation:clause-10 ], again [Citation: clause-2]. Not [citation: x].")
	assert.Equal(t, []string{"clause-2", "clause-10"}, got)
	assert.Nil(t, ExtractCitations("none"))
}
