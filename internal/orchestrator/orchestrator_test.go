package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/llm/llmtest"
	"contract-decoder/internal/opslot"
)

const rentDoc = "Rent is $1,500/month. Late fee $50 after day 5."

const rentClauses = `[
	{"title":"Monthly rent","explanation":"You pay $1,500 every month.","risk":"Low","originalClause":"Rent is $1,500/month.","confidence":"High","goodToKnow":true},
	{"title":"Late fee","explanation":"Paying after day 5 costs $50.","risk":"Medium","originalClause":"Late fee $50 after day 5.","confidence":"High","goodToKnow":false}
]`

const rentHeader = `{"documentTitle":"Residential Lease","overallScore":72,"keyTakeaways":["Rent is $1,500.","Late fee applies after day 5.","Pay on time."]}`

type collected struct {
	events []Event
	err    error
}

func collect(seq func(func(Event, error) bool)) collected {
	var out collected
	for ev, err := range seq {
		if err != nil {
			out.err = err
			continue
		}
		out.events = append(out.events, ev)
	}
	return out
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestStreamSingleChunkScenario(t *testing.T) {
	defer goleak.VerifyNone(t)
	fake := llmtest.New().Text(rentClauses, rentHeader)
	o := New(fake, opslot.New())

	got := collect(o.Stream(context.Background(), rentDoc, contract.AnalysisOptions{Persona: contract.PersonaTenant}))
	require.NoError(t, got.err)
	require.Equal(t, []EventKind{EventProgress, EventClause, EventClause, EventProgress, EventHeader}, kinds(got.events))

	assert.Equal(t, Progress{Current: 0, Total: 1}, got.events[0].Progress)
	assert.Equal(t, Progress{Current: 1, Total: 1}, got.events[3].Progress)
	for _, ev := range got.events[1:3] {
		assert.NotEmpty(t, ev.Clause.OriginalClause)
	}
	assert.Equal(t, "clause-1", got.events[1].Clause.ID)
	assert.Equal(t, "clause-2", got.events[2].Clause.ID)

	h := got.events[4].Header
	assert.GreaterOrEqual(t, h.OverallScore, 0)
	assert.LessOrEqual(t, h.OverallScore, 100)
	assert.GreaterOrEqual(t, len(h.KeyTakeaways), 3)
	assert.LessOrEqual(t, len(h.KeyTakeaways), 5)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[1].Prompt, "clause-2 | Late fee | Medium")
}

func TestStreamSanitizesPromptText(t *testing.T) {
	fake := llmtest.New().Text(`[]`)
	o := New(fake, opslot.New())
	got := collect(o.Stream(context.Background(), "# Heading\n\n**Bold** `code` text", contract.AnalysisOptions{Focus: "*deposit*"}))
	require.NoError(t, got.err)

	prompt := fake.Requests()[0].Prompt
	assert.Contains(t, prompt, "Heading")
	assert.Contains(t, prompt, "Bold code text")
	assert.NotContains(t, prompt, "**Bold**")
	assert.Contains(t, prompt, "Pay particular attention to: deposit")
}

func TestStreamDropsClausesWithoutOriginalText(t *testing.T) {
	fake := llmtest.New().Text(`[{"title":"X","risk":"Extreme"},{"title":"Rent","originalClause":"Rent is $1,500/month.","risk":"Extreme"}]`, rentHeader)
	o := New(fake, opslot.New())

	got := collect(o.Stream(context.Background(), rentDoc, contract.AnalysisOptions{}))
	require.NoError(t, got.err)
	var clauses []contract.DecodedClause
	for _, ev := range got.events {
		if ev.Kind == EventClause {
			clauses = append(clauses, ev.Clause)
		}
	}
	require.Len(t, clauses, 1)
	assert.Equal(t, "Rent is $1,500/month.", clauses[0].OriginalClause)
	assert.Equal(t, contract.RiskUnknown, clauses[0].Risk)
	assert.Equal(t, "clause-1", clauses[0].ID)
}

func TestStreamSkipsStrayListElements(t *testing.T) {
	fake := llmtest.New().Text(`[{"title":"Rent","originalClause":"Rent is $1,500/month."},"stray"]`, rentHeader)
	o := New(fake, opslot.New())

	got := collect(o.Stream(context.Background(), rentDoc, contract.AnalysisOptions{}))
	require.NoError(t, got.err)
	assert.Equal(t, []EventKind{EventProgress, EventClause, EventProgress, EventHeader}, kinds(got.events))
	assert.Equal(t, "Rent is $1,500/month.", got.events[1].Clause.OriginalClause)
}

func twoChunkDoc() string {
	return strings.Repeat("a", 15) + "\n\n" + strings.Repeat("b", 15)
}

func TestStreamOccurrenceIndexAcrossChunks(t *testing.T) {
	dup := `[{"title":"Notice","originalClause":"Notices must be in writing.","risk":"Low"},{"title":"Other","originalClause":"Other text.","risk":"Low"}]`
	fake := llmtest.New().Text(dup, dup, rentHeader)
	o := New(fake, opslot.New(), WithChunkSize(20))

	got := collect(o.Stream(context.Background(), twoChunkDoc(), contract.AnalysisOptions{}))
	require.NoError(t, got.err)

	byText := map[string][]int{}
	var ids []string
	for _, ev := range got.events {
		if ev.Kind == EventClause {
			byText[ev.Clause.OriginalClause] = append(byText[ev.Clause.OriginalClause], ev.Clause.OccurrenceIndex)
			ids = append(ids, ev.Clause.ID)
		}
	}
	assert.Equal(t, []int{0, 1}, byText["Notices must be in writing."])
	assert.Equal(t, []int{0, 1}, byText["Other text."])
	assert.Equal(t, []string{"clause-1", "clause-2", "clause-3", "clause-4"}, ids)
	assert.Equal(t, []EventKind{
		EventProgress, EventClause, EventClause, EventProgress, EventClause, EventClause, EventProgress, EventHeader,
	}, kinds(got.events))
}

func TestStreamPartialFailure(t *testing.T) {
	fake := llmtest.New().Reply(
		llmtest.Reply{Text: `[{"title":"Rent","originalClause":"Rent is due.","risk":"Low"}]`},
		llmtest.Reply{Err: errors.New("openai http status 400: bad request")},
	)
	o := New(fake, opslot.New(), WithChunkSize(20))

	got := collect(o.Stream(context.Background(), twoChunkDoc(), contract.AnalysisOptions{}))
	var partial *PartialResultsError
	require.ErrorAs(t, got.err, &partial)
	assert.Equal(t, 1, partial.Accepted)
	assert.Equal(t, 1, partial.Chunk)
	assert.Equal(t, 2, partial.Total)
	assert.Contains(t, partial.Error(), "incomplete")
	assert.Equal(t, []EventKind{EventProgress, EventClause, EventProgress, EventProgress}, kinds(got.events))
	assert.Equal(t, Progress{Current: 2, Total: 2}, got.events[3].Progress)
	assert.Len(t, fake.Requests(), 2, "no header request after a chunk failure")
}

func TestStreamHeaderFailureKeepsClauses(t *testing.T) {
	fake := llmtest.New().Reply(
		llmtest.Reply{Text: rentClauses},
		llmtest.Reply{Err: errors.New("gemini: quota")},
	)
	o := New(fake, opslot.New())

	got := collect(o.Stream(context.Background(), rentDoc, contract.AnalysisOptions{}))
	var headerErr *HeaderError
	require.ErrorAs(t, got.err, &headerErr)
	assert.Contains(t, headerErr.Error(), "still usable")
	assert.Equal(t, []EventKind{EventProgress, EventClause, EventClause, EventProgress}, kinds(got.events))
}

func TestStreamNoClausesSkipsHeader(t *testing.T) {
	fake := llmtest.New().Text(`{"clauses":[]}`)
	o := New(fake, opslot.New())
	got := collect(o.Stream(context.Background(), rentDoc, contract.AnalysisOptions{}))
	require.NoError(t, got.err)
	assert.Equal(t, []EventKind{EventProgress, EventProgress}, kinds(got.events))
	assert.Len(t, fake.Requests(), 1)
}

func TestStreamEmptyDocument(t *testing.T) {
	fake := llmtest.New()
	slot := opslot.New()
	o := New(fake, slot)
	got := collect(o.Stream(context.Background(), " \n\t ", contract.AnalysisOptions{}))
	assert.ErrorIs(t, got.err, ErrEmptyDocument)
	assert.Empty(t, got.events)
	assert.Empty(t, fake.Requests())
	assert.Nil(t, slot.Current(), "slot released")
}

func TestCancellationDuringRequestStopsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	slot := opslot.New()
	fake := llmtest.New()
	fake.Reply(llmtest.Reply{
		Text: rentClauses,
		Before: func(llm.Request) {
			// Another operation takes the slot while the chunk request is in flight.
			slot.Acquire(context.Background(), opslot.KindChat)
		},
	})
	o := New(fake, slot)

	got := collect(o.Stream(context.Background(), rentDoc, contract.AnalysisOptions{}))
	assert.ErrorIs(t, got.err, opslot.ErrCanceled)
	assert.Equal(t, []EventKind{EventProgress}, kinds(got.events))
	assert.Len(t, fake.Requests(), 1)
}

func TestCancelUnblocksInFlightRequest(t *testing.T) {
	defer goleak.VerifyNone(t)
	slot := opslot.New()
	fake := llmtest.New().Reply(llmtest.Reply{Block: true})
	o := New(fake, slot)
	run := o.Start(context.Background(), rentDoc, contract.AnalysisOptions{})

	done := make(chan collected, 1)
	go func() { done <- collect(run.Events()) }()

	require.Eventually(t, func() bool { return len(fake.Requests()) == 1 }, time.Second, time.Millisecond)
	kind, ok := slot.Cancel()
	require.True(t, ok)
	assert.Equal(t, opslot.KindAnalysis, kind)

	select {
	case got := <-done:
		assert.ErrorIs(t, got.err, opslot.ErrCanceled)
		assert.Equal(t, []EventKind{EventProgress}, kinds(got.events))
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestStartCancelsPreviousRun(t *testing.T) {
	fake := llmtest.New().Text(rentClauses, rentHeader)
	slot := opslot.New()
	o := New(fake, slot)

	first := o.Start(context.Background(), rentDoc, contract.AnalysisOptions{})
	second := o.Start(context.Background(), rentDoc, contract.AnalysisOptions{})
	assert.NotEqual(t, first.ID(), second.ID())

	got := collect(first.Events())
	assert.ErrorIs(t, got.err, opslot.ErrCanceled)
	assert.Empty(t, got.events)

	got = collect(second.Events())
	require.NoError(t, got.err)
	assert.Equal(t, EventHeader, got.events[len(got.events)-1].Kind)
	assert.Nil(t, slot.Current())
}

func TestEventsNotResumable(t *testing.T) {
	fake := llmtest.New().Text(`[]`)
	run := New(fake, opslot.New()).Start(context.Background(), rentDoc, contract.AnalysisOptions{})
	_ = collect(run.Events())
	got := collect(run.Events())
	assert.ErrorIs(t, got.err, ErrConsumed)
}

func TestConsumerBreakReleasesSlot(t *testing.T) {
	fake := llmtest.New().Text(rentClauses, rentHeader)
	slot := opslot.New()
	run := New(fake, slot).Start(context.Background(), rentDoc, contract.AnalysisOptions{})
	for ev, err := range run.Events() {
		require.NoError(t, err)
		if ev.Kind == EventClause {
			break
		}
	}
	assert.Nil(t, slot.Current())
}
