// Package comparison requests a structured clause diff of two document versions.
package comparison

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/prompts"
	"contract-decoder/internal/shared/metrics"
	"contract-decoder/internal/shared/telemetry"
	"contract-decoder/internal/shared/util"
)

// DefaultMaxCombinedChars admits two 80,000-character versions and rejects two of 100,000.
const DefaultMaxCombinedChars = 180000

// InputTooLargeError is returned before any request when the documents are too long together.
type InputTooLargeError struct {
	Combined int
	Limit    int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("documents are too long to compare: %d characters combined, the limit is %d", e.Combined, e.Limit)
}

func (e *InputTooLargeError) Unwrap() error { return contract.ErrInputTooLarge }

// Requester performs single-shot comparisons. It does not take the shared slot:
// a comparison in flight is never cancelled by other operations.
type Requester struct {
	client   llm.Client
	maxChars int
}

func New(client llm.Client, maxCombinedChars int) *Requester {
	if maxCombinedChars <= 0 {
		maxCombinedChars = DefaultMaxCombinedChars
	}
	return &Requester{client: client, maxChars: maxCombinedChars}
}

// Limit returns the combined character ceiling.
func (r *Requester) Limit() int { return r.maxChars }

// Check validates input sizes without making a request.
func (r *Requester) Check(docA, docB string) error {
	if strings.TrimSpace(docA) == "" || strings.TrimSpace(docB) == "" {
		return contract.ErrEmptyDocument
	}
	combined := utf8.RuneCountInString(docA) + utf8.RuneCountInString(docB)
	if combined > r.maxChars {
		return &InputTooLargeError{Combined: combined, Limit: r.maxChars}
	}
	return nil
}

func (r *Requester) Compare(ctx context.Context, docA, docB string) (contract.ComparisonResult, error) {
	if err := r.Check(docA, docB); err != nil {
		if _, ok := err.(*InputTooLargeError); ok {
			metrics.IncComparisonRejected()
		}
		return contract.ComparisonResult{}, err
	}
	metrics.IncComparison()
	raw, err := r.client.Generate(ctx, prompts.Comparison(util.SanitizePromptText(docA), util.SanitizePromptText(docB)))
	if err != nil {
		telemetry.Warn("comparison failed", map[string]any{"error": err})
		return contract.ComparisonResult{}, err
	}
	result, err := contract.ParseComparison(raw)
	if err != nil {
		return contract.ComparisonResult{}, err
	}
	telemetry.Info("comparison finished", map[string]any{
		"added":    result.Summary.Added,
		"removed":  result.Summary.Removed,
		"modified": result.Summary.Modified,
	})
	return result, nil
}
