package policy

import (
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// AmbiguityThreshold is the confidence a deterministic match needs to be
// accepted without review.
const AmbiguityThreshold = 0.8500

// EvaluateAmbiguity decides whether a deterministic result can categorize the
// transaction or must be escalated. The first matching rule wins.
func EvaluateAmbiguity(current model.ReviewStatus, det model.DeterministicResult) model.AmbiguityDecision {
	confidence := model.RoundConfidence(det.Confidence)

	switch {
	case current == model.ReviewStatusNeedsReview:
		return ambiguity(current, Escalate(current, model.ReasonExistingNeedsReview,
			"Transaction is already waiting for human review."), confidence)

	case det.IsConflict:
		return ambiguity(current, Escalate(current, model.ReasonConflictingRules,
			fmt.Sprintf("Keyword rules disagree: %s", det.Rationale)), confidence)

	case det.ProposedSubcategoryID == nil && confidence > 0:
		// Weak signals without a proposal (the non-expense short circuit)
		// are low confidence rather than an absence of rules.
		return ambiguity(current, Escalate(current, model.ReasonLowConfidence,
			fmt.Sprintf("Deterministic confidence %.4f is below %.4f: %s", confidence, AmbiguityThreshold, det.Rationale)), confidence)

	case det.ProposedSubcategoryID == nil:
		return ambiguity(current, Escalate(current, model.ReasonNoDeterministicMatch,
			fmt.Sprintf("No deterministic rule proposed a subcategory: %s", det.Rationale)), confidence)

	case confidence < AmbiguityThreshold:
		return ambiguity(current, Escalate(current, model.ReasonLowConfidence,
			fmt.Sprintf("Deterministic confidence %.4f is below %.4f.", confidence, AmbiguityThreshold)), confidence)

	default:
		return ambiguity(current, Accept(current, model.ReasonDeterministicAccepted, det.Rationale), confidence)
	}
}

func ambiguity(prior model.ReviewStatus, v Verdict, confidence float64) model.AmbiguityDecision {
	return model.AmbiguityDecision{
		Decision:     v.Decision,
		ReviewStatus: v.ReviewStatus,
		PriorStatus:  prior,
		ReasonCode:   v.ReasonCode,
		Rationale:    v.Rationale,
		Confidence:   confidence,
	}
}
