package contract

import "errors"

var (
	ErrEmptyDocument = errors.New("contract text is empty")
	ErrInputTooLarge = errors.New("input exceeds size limit")
	ErrMalformed     = errors.New("malformed model output")
)
