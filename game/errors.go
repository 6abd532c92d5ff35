package game

import (
	"errors"
	"fmt"
)

// Engine-related errors.
var (
	ErrPathSynthesis        = errors.New("no reward path of the required length")
	ErrFatalPool            = errors.New("maze pool retry budget exhausted")
	ErrTrialIndexOutOfRange = errors.New("trial index out of range")
	ErrPhaseSequence        = errors.New("phase sequence violation")
	ErrInvalidInput         = errors.New("invalid input")
	ErrPlanLength           = errors.New("plan has the wrong length")
	ErrUnboundKey           = errors.New("key is not bound to the active vehicle")
	ErrUnknownCategory      = errors.New("unknown vehicle category")
	ErrConflictingBinding   = errors.New("conflicting key binding")
	ErrNoFreeCell           = errors.New("not enough free cells for terrain")
)

// IsFatal reports whether err ends the session. Invalid input is the only
// recoverable condition raised by the engine.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidInput)
}

// InvalidInputError describes a rejected key or plan.
type InvalidInputError struct {
	Input  string
	Reason error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %v", e.Input, e.Reason)
}

// Is matches ErrInvalidInput and the underlying reason.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput || errors.Is(e.Reason, target)
}

// TrialIndexError reports a read beyond a prepared pool or queue.
type TrialIndexError struct {
	Phase string
	Index int
	Len   int
}

func (e *TrialIndexError) Error() string {
	return fmt.Sprintf("%s trial %d out of range [1, %d]", e.Phase, e.Index, e.Len)
}

// Unwrap returns ErrTrialIndexOutOfRange.
func (e *TrialIndexError) Unwrap() error {
	return ErrTrialIndexOutOfRange
}
