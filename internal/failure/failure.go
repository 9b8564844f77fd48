// Package failure classifies pipeline errors by the stage that produced them.
// Ingestion and Transcription are fatal to a pipeline run; every other kind
// degrades the result or is only logged.
package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	Ingestion      Kind = "ingestion"
	Transcription  Kind = "transcription"
	Classification Kind = "classification"
	Validation     Kind = "validation"
	Persistence    Kind = "persistence"
	Cleanup        Kind = "cleanup"
)

// Fatal reports whether an error of this kind aborts the pipeline.
func (k Kind) Fatal() bool {
	return k == Ingestion || k == Transcription
}

// Error wraps an underlying cause with its stage kind and the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a stage error. A nil cause is allowed for self-describing failures.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first stage error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given stage kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
