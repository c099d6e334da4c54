package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuestionnaireNotFound is returned when the remote store has no
	// document for a questionnaire id.
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	// ErrQuestionOutOfRange is returned for answer indexes outside the
	// questionnaire's question list.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrAnswerTypeMismatch is returned when an answer variant does not
	// match its question's type.
	ErrAnswerTypeMismatch = errors.New("answer type does not match question")
	// ErrExamNotPassing is the expected business outcome for an exam below
	// its passing threshold. Failing exams are never queued for delivery.
	ErrExamNotPassing = errors.New("exam score below passing threshold")
	// ErrTransport covers any network or server failure while talking to
	// the remote store. Delivery attempts that hit it are queued locally.
	ErrTransport = errors.New("remote store unreachable")
	// ErrRevisionConflict is returned on stale-revision writes.
	ErrRevisionConflict = errors.New("stale revision")
	// ErrEntryNotFound is returned for unknown outbox entry ids.
	ErrEntryNotFound = errors.New("outbox entry not found")
)

// ValidationError reports a step-local validation failure. It is always
// recoverable: the wizard stays on the step and the field can be re-read.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MissingAnswerError reports a gap in the answer store at build time. The
// wizard enforces one answer per visited question step, so hitting this is
// a contract violation, fatal to the build attempt.
type MissingAnswerError struct {
	Index int
}

func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("no answer captured for question %d", e.Index)
}
