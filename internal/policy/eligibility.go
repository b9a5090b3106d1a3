package policy

import "github.com/Veraticus/mosaic-money/internal/model"

// EvaluateFallbackEligibility decides whether the last-resort agent stage may
// run. It needs a transaction that was not already in review, a semantic
// attempt, and a fusion decision that escalated.
func EvaluateFallbackEligibility(pre model.ReviewStatus, semanticAttempted bool, fused model.FusionDecision) model.FallbackEligibility {
	switch {
	case pre == model.ReviewStatusNeedsReview:
		return model.FallbackEligibility{
			ReasonCode: model.ReasonFallbackAlreadyReview,
			Rationale:  "Transaction was already waiting for review before this run.",
		}
	case !semanticAttempted:
		return model.FallbackEligibility{
			ReasonCode: model.ReasonSemanticNotAttempted,
			Rationale:  "Semantic retrieval did not run, so the fallback agent is not admitted.",
		}
	case fused.Decision != model.DecisionNeedsReview || !fused.EscalatedToNextStage:
		return model.FallbackEligibility{
			ReasonCode: model.ReasonAlreadyFinalized,
			Rationale:  "An earlier stage already produced a final decision.",
		}
	default:
		return model.FallbackEligibility{
			Eligible:   true,
			ReasonCode: model.ReasonFallbackEligible,
			Rationale:  "Deterministic and semantic stages escalated; fallback agent admitted.",
		}
	}
}
