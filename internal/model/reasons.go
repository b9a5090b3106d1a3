package model

// Reason codes are machine-readable and persisted with every decision.
const (
	// Deterministic stage.
	ReasonKeywordMatch       = "keyword_match"
	ReasonConflictingRules   = "conflicting_rules"
	ReasonNonExpenseAmount   = "non_expense_amount"
	ReasonMissingDescription = "missing_description"
	ReasonNoRuleMatch        = "no_rule_match"

	// Ambiguity gate.
	ReasonExistingNeedsReview   = "existing_needs_review"
	ReasonNoDeterministicMatch  = "no_deterministic_match"
	ReasonLowConfidence         = "low_confidence"
	ReasonDeterministicAccepted = "deterministic_match"

	// Confidence fusion.
	ReasonDeterministicSemanticConflict = "deterministic_semantic_conflict"
	ReasonSemanticBelowThreshold        = "semantic_below_threshold"
	ReasonSemanticCandidateConflict     = "semantic_candidate_conflict"
	ReasonSemanticAccepted              = "semantic_match"
	ReasonSemanticNoCandidates          = "semantic_no_candidates"

	// Specialist routing.
	ReasonRoutingNotRequired = "routing_not_required"
	ReasonRoutingDisabled    = "specialist_routing_disabled"
	ReasonLaneUnavailable    = "specialist_lane_unavailable"
	ReasonLaneHandoff        = "specialist_lane_handoff"
	ReasonCategorizationLane = "categorization_lane"

	// Fallback eligibility.
	ReasonFallbackEligible       = "fallback_eligible"
	ReasonFallbackAlreadyReview  = "already_needs_review"
	ReasonSemanticNotAttempted   = "semantic_not_attempted"
	ReasonAlreadyFinalized       = "already_finalized"
	ReasonFallbackLaneDisallowed = "fallback_lane_disallowed"

	// Fallback outcome.
	ReasonFallbackProposalPending = "fallback_proposal_pending_review"

	// Pipeline preconditions.
	ReasonTaxonomyNotReady = "taxonomy_not_ready"
	ReasonFailClosed       = "fail_closed"

	// Manual review.
	ReasonManualEscalation = "manual_escalation"
)

// SemanticStatusReason is the stage reason code for a retrieval that did not
// complete.
func SemanticStatusReason(status SemanticStatus) string {
	return "semantic_" + string(status)
}
