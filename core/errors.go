package core

import "errors"

var (
	// ErrSourceUnavailable is returned when a source file cannot be read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNotFound is returned when a function is missing from its own file's tree.
	ErrNotFound = errors.New("function or method not found")

	ErrMalformedConstraint    = errors.New("malformed constraint")
	ErrUnknownMacro           = errors.New("unknown macro")
	ErrUnsupportedField       = errors.New("unsupported field")
	ErrUnsupportedConstructor = errors.New("unsupported constructor")

	// ErrSynthesis means a synthesized function did not survive compilation.
	// Seeing it is a bug in the synthesizer, not in the input.
	ErrSynthesis = errors.New("synthesized code failed to compile")
)
