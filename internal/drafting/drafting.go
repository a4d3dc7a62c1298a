// Package drafting generates a first-draft document from user requirements.
package drafting

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/llm"
	"contract-decoder/internal/prompts"
	"contract-decoder/internal/shared/util"
)

const MaxDetailsChars = 20000

var ErrEmptyDetails = errors.New("drafting details are empty")

type Requester struct {
	client llm.Client
}

func New(client llm.Client) *Requester {
	return &Requester{client: client}
}

// Draft returns the generated document text.
func (r *Requester) Draft(ctx context.Context, req prompts.DraftRequest) (string, error) {
	req.Details = strings.TrimSpace(util.SanitizePromptText(req.Details))
	req.DocumentType = strings.TrimSpace(util.SanitizePromptText(req.DocumentType))
	if req.Details == "" {
		return "", ErrEmptyDetails
	}
	if utf8.RuneCountInString(req.Details) > MaxDetailsChars {
		return "", contract.ErrInputTooLarge
	}
	out, err := r.client.Generate(ctx, prompts.Draft(req))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
