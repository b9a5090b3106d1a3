// Package review implements the human-review state machine for transactions.
package review

import (
	"errors"
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// ErrTransitionNotAllowed is returned for a transition the policy forbids.
var ErrTransitionNotAllowed = errors.New("review transition not allowed")

// Transition applies action to current and returns the next status.
//
// Approve and Reclassify are only valid from NeedsReview. RouteToNeedsReview
// is valid from every state.
func Transition(current model.ReviewStatus, action model.ReviewAction) (model.ReviewStatus, error) {
	if !current.IsValid() {
		return current, fmt.Errorf("%w: unknown status %q", ErrTransitionNotAllowed, current)
	}

	switch action {
	case model.ReviewActionApprove, model.ReviewActionReclassify:
		if current != model.ReviewStatusNeedsReview {
			return current, fmt.Errorf("%w: %s from %s", ErrTransitionNotAllowed, action, current)
		}
		return model.ReviewStatusReviewed, nil
	case model.ReviewActionRouteToNeedsReview:
		return model.ReviewStatusNeedsReview, nil
	default:
		return current, fmt.Errorf("%w: unknown action %q", ErrTransitionNotAllowed, action)
	}
}

// CanTransition reports whether action is allowed from current.
func CanTransition(current model.ReviewStatus, action model.ReviewAction) bool {
	_, err := Transition(current, action)
	return err == nil
}

// Escalate routes current to NeedsReview. If the table ever refuses the
// transition the result is still NeedsReview; escalation cannot fail open.
func Escalate(current model.ReviewStatus) model.ReviewStatus {
	next, err := Transition(current, model.ReviewActionRouteToNeedsReview)
	if err != nil || next != model.ReviewStatusNeedsReview {
		return model.ReviewStatusNeedsReview
	}
	return next
}
