package orchestrator

import (
	"errors"
	"fmt"

	"contract-decoder/internal/contract"
)

var (
	// ErrEmptyDocument is returned before any request when the text is blank.
	ErrEmptyDocument = contract.ErrEmptyDocument
	// ErrConsumed is returned when a run's events are iterated a second time.
	ErrConsumed = errors.New("analysis run already consumed")
	// ErrNoClauses is returned by Reexplain for an analysis without clauses.
	ErrNoClauses = errors.New("analysis has no clauses")
)

// PartialResultsError reports a chunk failure after some clauses may already have been emitted.
type PartialResultsError struct {
	Accepted int
	Chunk    int
	Total    int
	Err      error
}

func (e *PartialResultsError) Error() string {
	return fmt.Sprintf("analysis stopped at part %d of %d (%v); results are incomplete, %d clauses were found before the failure",
		e.Chunk+1, e.Total, e.Err, e.Accepted)
}

func (e *PartialResultsError) Unwrap() error { return e.Err }

// HeaderError reports that the summary could not be produced. Clauses already emitted remain valid.
type HeaderError struct {
	Err error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("document summary is missing (%v); the clause breakdown is complete and still usable", e.Err)
}

func (e *HeaderError) Unwrap() error { return e.Err }
