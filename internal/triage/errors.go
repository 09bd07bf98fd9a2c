package triage

import (
	"errors"
	"fmt"
)

var (
	// ErrTicketNotFound aborts a run before any stage executes.
	ErrTicketNotFound = errors.New("Ticket not found") //nolint:stylecheck // surfaced verbatim to callers
	// ErrInvalidTransition is returned when the decision would move a ticket
	// out of a terminal status.
	ErrInvalidTransition = errors.New("invalid ticket status transition")
	// ErrPersistence wraps ticket or suggestion write failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrStageTimeout marks a stage that exceeded its deadline.
	ErrStageTimeout = errors.New("stage timed out")
)

// StageError records which stage aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageOf returns the failing stage name, or "" when err is not a StageError.
func stageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
