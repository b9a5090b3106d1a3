package policy

import (
	"fmt"
	"math"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// Fusion thresholds.
const (
	SemanticAcceptThreshold = 0.9200
	SemanticConflictMargin  = 0.0500
)

// Fuse reconciles the ambiguity decision with the semantic retrieval result.
//
// It only engages when the ambiguity gate escalated and the semantic stage
// actually ran and returned candidates. A deterministic match that failed its
// own threshold is never rescued by a semantic signal, even a strong one;
// only a transaction no rule matched at all can be accepted semantically.
func Fuse(amb model.AmbiguityDecision, det model.DeterministicResult, sem *model.SemanticResult) model.FusionDecision {
	top := sem.Top()
	if amb.Decision != model.DecisionNeedsReview || sem == nil || !sem.Attempted || top == nil {
		return passThrough(amb, det)
	}

	topScore := model.RoundConfidence(top.Score)

	if det.ProposedSubcategoryID != nil {
		if *det.ProposedSubcategoryID != top.SubcategoryID {
			v := Escalate(amb.ReviewStatus, model.ReasonDeterministicSemanticConflict,
				fmt.Sprintf("Deterministic rules proposed subcategory %d but the closest prior transactions point to %d.",
					*det.ProposedSubcategoryID, top.SubcategoryID))
			return fusion(v, nil, math.Max(amb.Confidence, topScore), true)
		}
		// Same answer as semantic retrieval, but the rule match already
		// failed its own threshold and stays escalated.
		return passThrough(amb, det)
	}

	if topScore < SemanticAcceptThreshold {
		v := Escalate(amb.ReviewStatus, model.ReasonSemanticBelowThreshold,
			fmt.Sprintf("Closest semantic match scored %.4f, below %.4f.", topScore, SemanticAcceptThreshold))
		return fusion(v, model.SubcategoryPtr(top.SubcategoryID), topScore, true)
	}

	if len(sem.Candidates) > 1 {
		second := sem.Candidates[1]
		if gap := model.ConfidenceGap(topScore, model.RoundConfidence(second.Score)); gap < SemanticConflictMargin {
			v := Escalate(amb.ReviewStatus, model.ReasonSemanticCandidateConflict,
				fmt.Sprintf("Semantic candidates %d (%.4f) and %d (%.4f) are only %.4f apart.",
					top.SubcategoryID, topScore, second.SubcategoryID, second.Score, gap))
			return fusion(v, nil, topScore, true)
		}
	}

	if !det.IsConflict &&
		det.RationaleCode == model.ReasonNoRuleMatch &&
		amb.ReasonCode == model.ReasonNoDeterministicMatch {
		v := Accept(amb.PriorStatus, model.ReasonSemanticAccepted,
			fmt.Sprintf("No keyword rule matched; %d similar categorized transaction(s) support subcategory %d at %.4f.",
				top.SupportingMatchCount, top.SubcategoryID, topScore))
		return fusion(v, model.SubcategoryPtr(top.SubcategoryID), topScore, false)
	}

	v := Escalate(amb.ReviewStatus, amb.ReasonCode, amb.Rationale)
	return fusion(v, nil, amb.Confidence, true)
}

// passThrough carries the ambiguity decision forward unchanged. Anything
// that is not a final Categorized may still be escalated.
func passThrough(amb model.AmbiguityDecision, det model.DeterministicResult) model.FusionDecision {
	return model.FusionDecision{
		ProposedSubcategoryID: det.ProposedSubcategoryID,
		Decision:              amb.Decision,
		ReviewStatus:          amb.ReviewStatus,
		ReasonCode:            amb.ReasonCode,
		Rationale:             amb.Rationale,
		AgentNote:             amb.AgentNote,
		Confidence:            model.RoundConfidence(amb.Confidence),
		EscalatedToNextStage:  amb.Decision != model.DecisionCategorized,
	}
}

func fusion(v Verdict, proposed *int64, confidence float64, escalated bool) model.FusionDecision {
	return model.FusionDecision{
		ProposedSubcategoryID: proposed,
		Decision:              v.Decision,
		ReviewStatus:          v.ReviewStatus,
		ReasonCode:            v.ReasonCode,
		Rationale:             v.Rationale,
		Confidence:            model.RoundConfidence(confidence),
		EscalatedToNextStage:  escalated && v.Decision == model.DecisionNeedsReview,
	}
}
