package guard

import (
	"github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
)

// EnsureCanPublish allows draft -> published only.
func EnsureCanPublish(status domain.Status) error {
	if status != domain.StatusDraft {
		return &domain.TransitionError{Current: status, Attempted: domain.ActionPublish}
	}
	return nil
}

// EnsureCanRecalculate allows recomputation of published cycles only.
func EnsureCanRecalculate(status domain.Status) error {
	if status != domain.StatusPublished {
		return &domain.TransitionError{Current: status, Attempted: domain.ActionRecalculate}
	}
	return nil
}

// EnsureCanLock requires a published cycle whose gating checklist passes.
func EnsureCanLock(status domain.Status, checklist domain.Checklist) error {
	if status != domain.StatusPublished {
		return &domain.TransitionError{Current: status, Attempted: domain.ActionLock}
	}
	if len(checklist.Failed()) > 0 {
		return &domain.NotReadyError{Checklist: checklist}
	}
	return nil
}

// EnsureMutable rejects charge and payment writes on a locked cycle.
func EnsureMutable(status domain.Status) error {
	if status == domain.StatusLocked {
		return &domain.TransitionError{Current: status, Attempted: domain.ActionMutate}
	}
	return nil
}
