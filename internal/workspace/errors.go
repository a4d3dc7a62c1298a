package workspace

import (
	"errors"
	"fmt"

	"contract-decoder/internal/contract"
)

var (
	ErrDisclaimerRequired = errors.New("the disclaimer must be accepted first")
	ErrNothingToReanalyze = errors.New("there is no saved analysis to re-explain")
	ErrNothingToResave    = errors.New("the current analysis was not deleted")
	ErrRecordDeleted      = errors.New("the analysis was deleted in another session")
	ErrChatUnavailable    = errors.New("chat is not available for the current analysis")
	ErrMessageNotFound    = errors.New("no failed message with that id")
	ErrUnknownTool        = errors.New("unknown tool")
)

// InputTooLargeError rejects contract text above the configured limit.
type InputTooLargeError struct {
	Chars int
	Limit int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("contract text is %d characters; the limit is %d", e.Chars, e.Limit)
}

func (e *InputTooLargeError) Unwrap() error { return contract.ErrInputTooLarge }
