package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPeriod = errors.New("invalid_period")
	ErrInvalidActor  = errors.New("invalid_actor_id")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrCycleExists   = errors.New("billing_cycle_exists")

	ErrNotFound            error = &codedError{code: "billing_cycle_not_found", reason: "not_found"}
	ErrConcurrencyConflict error = &codedError{code: "concurrency_conflict", reason: "concurrency_conflict"}

	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotReady          = errors.New("not_ready")
)

type codedError struct {
	code   string
	reason string
}

func (e *codedError) Error() string        { return e.code }
func (e *codedError) MetricReason() string { return e.reason }

// TransitionError reports an action that the cycle's current status does
// not allow. It matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	Current   Status
	Attempted Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: cannot %s a %s cycle", e.Attempted, e.Current)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func (e *TransitionError) MetricReason() string { return "invalid_transition" }

// NotReadyError carries the checklist that blocked a lock.
type NotReadyError struct {
	Checklist Checklist
}

func (e *NotReadyError) Error() string {
	failed := e.Checklist.Failed()
	keys := make([]string, 0, len(failed))
	for _, item := range failed {
		keys = append(keys, item.Key)
	}
	return fmt.Sprintf("not_ready: %v", keys)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

func (e *NotReadyError) MetricReason() string { return "not_ready" }
