// Package policy holds the fixed decision policies of the classification
// pipeline: ambiguity gating, confidence fusion and fallback admission.
package policy

import (
	"strings"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/review"
)

// DefaultEscalationRationale is used when a caller escalates without saying why.
const DefaultEscalationRationale = "Escalated to human review because no stage produced a usable decision."

// Verdict is the decision core shared by every stage.
type Verdict struct {
	Decision     model.Decision
	ReviewStatus model.ReviewStatus
	ReasonCode   string
	Rationale    string
}

// Escalate builds the single fail-closed terminal state. The review status
// goes through the state machine and an empty reason or rationale is
// replaced so every NeedsReview verdict explains itself.
func Escalate(current model.ReviewStatus, reasonCode, rationale string) Verdict {
	if strings.TrimSpace(reasonCode) == "" {
		reasonCode = model.ReasonFailClosed
	}
	if strings.TrimSpace(rationale) == "" {
		rationale = DefaultEscalationRationale
	}
	return Verdict{
		Decision:     model.DecisionNeedsReview,
		ReviewStatus: review.Escalate(current),
		ReasonCode:   reasonCode,
		Rationale:    rationale,
	}
}

// Accept builds a Categorized verdict. A Reviewed transaction stays Reviewed;
// anything else lands on None.
func Accept(current model.ReviewStatus, reasonCode, rationale string) Verdict {
	status := model.ReviewStatusNone
	if current == model.ReviewStatusReviewed {
		status = model.ReviewStatusReviewed
	}
	return Verdict{
		Decision:     model.DecisionCategorized,
		ReviewStatus: status,
		ReasonCode:   reasonCode,
		Rationale:    rationale,
	}
}

// EnforceFailClosed re-checks the pipeline invariants on a final verdict: a
// transaction that entered the run in NeedsReview cannot leave it
// Categorized, and a NeedsReview verdict always carries a reason.
func EnforceFailClosed(pre model.ReviewStatus, v Verdict) Verdict {
	if v.Decision == model.DecisionCategorized && pre == model.ReviewStatusNeedsReview {
		return Escalate(pre, model.ReasonExistingNeedsReview,
			"Transaction was already waiting for review; automatic categorization is not allowed.")
	}
	if v.Decision != model.DecisionCategorized {
		return Escalate(pre, v.ReasonCode, v.Rationale)
	}
	return v
}
