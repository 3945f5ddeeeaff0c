package testrun

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidTransition = errors.New("invalid test run state transition")
	ErrRunInProgress     = errors.New("a test run is in progress, cancel it first")
	ErrNotIdle           = errors.New("test run must be reset before starting again")
	ErrTargetRequired    = errors.New("instructions reference @contact or @deal fields, select a test target first")
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusIdle: {
		StatusRunning: {},
	},
	StatusRunning: {
		StatusCompleted: {},
		StatusFailed:    {},
		StatusCancelled: {},
	},
	StatusCompleted: {
		StatusIdle: {},
	},
	StatusFailed: {
		StatusIdle: {},
	},
	StatusCancelled: {
		StatusIdle: {},
	},
}

func validateTransition(from, to Status) error {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source status %q", ErrInvalidTransition, from)
	}
	if _, ok := allowed[to]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// transition is the only place the run status changes.
func transition(status *Status, to Status) error {
	if err := validateTransition(*status, to); err != nil {
		return err
	}
	*status = to
	return nil
}
