package chunker

import (
	"math/rand"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestSplitSingleChunk(t *testing.T) {
	text := "Rent is $1,500/month. Late fee $50 after day 5."
	got := Split(text, 1000)
	assert.Equal(t, []string{text}, got)
}

func TestSplitPacksParagraphsGreedily(t *testing.T) {
	text := "aaaa\n\nbbbb\n\ncccc"
	// "aaaa\n\nbbbb" is 10 runes; adding "\n\ncccc" would make 16.
	got := Split(text, 12)
	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, got)
}

func TestSplitBlankLineWithSpaces(t *testing.T) {
	got := Split("first clause\n   \t\nsecond clause", 13)
	assert.Equal(t, []string{"first clause", "second clause"}, got)
}

func TestSplitLongParagraphOnSentences(t *testing.T) {
	text := "The tenant pays rent. The landlord fixes leaks. Either party may terminate."
	got := Split(text, 30)
	assert.Equal(t, []string{
		"The tenant pays rent.",
		"The landlord fixes leaks.",
		"Either party may terminate.",
	}, got)
}

func TestSplitHardCutAtLimitWithoutWhitespace(t *testing.T) {
	text := strings.Repeat("x", 25)
	got := Split(text, 10)
	require.Len(t, got, 3)
	assert.Equal(t, strings.Repeat("x", 10), got[0])
	assert.Equal(t, strings.Repeat("x", 10), got[1])
	assert.Equal(t, strings.Repeat("x", 5), got[2])
}

func TestSplitLongSentenceCutsAtWhitespace(t *testing.T) {
	text := "alpha beta gamma delta epsilon"
	got := Split(text, 12)
	for _, c := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 12)
	}
	assert.Equal(t, []string{"alpha beta", "gamma delta", "epsilon"}, got)
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 12)
	got := Split(text, 5)
	require.Len(t, got, 3)
	assert.Equal(t, strings.Repeat("é", 5), got[0])
	assert.True(t, utf8.ValidString(got[0]))
}

func TestSplitWhitespaceOnly(t *testing.T) {
	assert.Equal(t, []string{""}, Split(" \n\n\t ", 10))
}

func TestSplitNonPositiveLimitUsesDefault(t *testing.T) {
	text := strings.Repeat("word ", 10)
	got := Split(text, 0)
	assert.Len(t, got, 1)
}

func TestSentencesKeepsClosers(t *testing.T) {
	got := Sentences(`He said "stop." Then (it ended.) Version 1.5 applies.`)
	assert.Equal(t, []string{`He said "stop."`, `Then (it ended.)`, `Version 1.5 applies.`}, got)
}

func randomDocument(r *rand.Rand) string {
	words := []string{"lease", "tenant", "shall", "indemnify", "Section", "4.2", "fee", "$50", "notice", "terminate", "—", "ç", strings.Repeat("z", 40)}
	seps := []string{" ", " ", " ", ". ", "! ", "\n", "\n\n", "\n  \n", "\t"}
	var b strings.Builder
	n := 1 + r.Intn(200)
	for i := 0; i < n; i++ {
		b.WriteString(words[r.Intn(len(words))])
		b.WriteString(seps[r.Intn(len(seps))])
	}
	return b.String()
}

func TestSplitPreservesNonWhitespaceContent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 300; i++ {
		doc := randomDocument(r)
		limit := 5 + r.Intn(120)
		chunks := Split(doc, limit)
		require.NotEmpty(t, chunks)
		joined := strings.Join(chunks, ParagraphSeparator)
		require.Equal(t, stripSpace(doc), stripSpace(joined), "limit=%d doc=%q", limit, doc)
	}
}

func TestSplitRespectsLimit(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		doc := randomDocument(r)
		limit := 5 + r.Intn(120)
		for _, c := range Split(doc, limit) {
			require.LessOrEqual(t, utf8.RuneCountInString(c), limit, "limit=%d chunk=%q", limit, c)
		}
	}
}
