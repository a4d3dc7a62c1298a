// Package chunker splits contract text into bounded segments for per-request extraction.
//
// Lengths are counted in characters (runes) so multi-byte text is never cut mid-character.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChunkSize is used when callers pass a non-positive limit.
const DefaultMaxChunkSize = 12000

// ParagraphSeparator joins packed paragraphs inside a chunk.
const ParagraphSeparator = "\n\n"

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Split returns the ordered chunks for text. Every chunk is at most maxChunkSize characters.
// Whitespace-only input yields a single empty chunk.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{trimmed}
	}

	var (
		chunks  []string
		current strings.Builder
		curLen  int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			curLen = 0
		}
	}

	sepLen := utf8.RuneCountInString(ParagraphSeparator)
	for _, para := range Paragraphs(trimmed) {
		n := utf8.RuneCountInString(para)
		if n > maxChunkSize {
			flush()
			chunks = append(chunks, splitParagraph(para, maxChunkSize)...)
			continue
		}
		if curLen == 0 {
			current.WriteString(para)
			curLen = n
			continue
		}
		if curLen+sepLen+n <= maxChunkSize {
			current.WriteString(ParagraphSeparator)
			current.WriteString(para)
			curLen += sepLen + n
			continue
		}
		flush()
		current.WriteString(para)
		curLen = n
	}
	flush()

	if len(chunks) == 0 {
		return []string{trimmed}
	}
	return chunks
}

// Paragraphs returns the non-empty, trimmed paragraphs of text.
func Paragraphs(text string) []string {
	raw := paragraphBreak.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitParagraph(para string, limit int) []string {
	var (
		out     []string
		current strings.Builder
		curLen  int
	)
	flush := func() {
		if curLen > 0 {
			out = append(out, current.String())
			current.Reset()
			curLen = 0
		}
	}

	for _, sentence := range Sentences(para) {
		n := utf8.RuneCountInString(sentence)
		if n > limit {
			flush()
			out = append(out, hardSplit(sentence, limit)...)
			continue
		}
		if curLen == 0 {
			current.WriteString(sentence)
			curLen = n
			continue
		}
		if curLen+1+n <= limit {
			current.WriteByte(' ')
			current.WriteString(sentence)
			curLen += 1 + n
			continue
		}
		flush()
		current.WriteString(sentence)
		curLen = n
	}
	flush()
	return out
}

// Sentences splits text after '.', '!' or '?' when followed by whitespace.
// Closing quotes and brackets stay with the sentence they end.
func Sentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// hardSplit cuts s into pieces of at most limit runes, preferring the last whitespace before the limit.
func hardSplit(s string, limit int) []string {
	runes := []rune(strings.TrimSpace(s))
	var out []string
	for len(runes) > limit {
		cut := -1
		for i := limit; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut <= 0 {
			out = append(out, string(runes[:limit]))
			runes = runes[limit:]
			continue
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
