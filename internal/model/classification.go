// Package model defines the core domain models used throughout the application.
package model

import "time"

// ReviewStatus is a transaction's human-review state.
type ReviewStatus string

// Review status constants.
const (
	ReviewStatusNone        ReviewStatus = "None"
	ReviewStatusNeedsReview ReviewStatus = "NeedsReview"
	ReviewStatusReviewed    ReviewStatus = "Reviewed"
)

// IsValid reports whether s is a known review status.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusNone, ReviewStatusNeedsReview, ReviewStatusReviewed:
		return true
	}
	return false
}

// ReviewAction is an operation on the review state machine.
type ReviewAction string

// Review action constants.
const (
	ReviewActionApprove            ReviewAction = "Approve"
	ReviewActionReclassify         ReviewAction = "Reclassify"
	ReviewActionRouteToNeedsReview ReviewAction = "RouteToNeedsReview"
)

// Decision is the categorize-or-escalate verdict of a stage.
type Decision string

// Decision constants.
const (
	DecisionCategorized Decision = "Categorized"
	DecisionNeedsReview Decision = "NeedsReview"
)

// RankedCandidate is a candidate scored by the deterministic engine.
type RankedCandidate struct {
	Name          string
	MatchedTokens []string
	SubcategoryID int64
	Confidence    float64
}

// DeterministicResult is the output of rule matching. It is never mutated
// after it is produced.
type DeterministicResult struct {
	ProposedSubcategoryID *int64
	RationaleCode         string
	Rationale             string
	Candidates            []RankedCandidate
	Confidence            float64
	IsConflict            bool
}

// AmbiguityDecision is the categorize-or-escalate verdict on a deterministic result.
type AmbiguityDecision struct {
	Decision     Decision
	ReviewStatus ReviewStatus
	// PriorStatus is the review status the transaction had before the run.
	PriorStatus ReviewStatus
	ReasonCode   string
	Rationale    string
	AgentNote    string
	Confidence   float64
}

// SemanticStatus describes how a semantic retrieval attempt ended.
type SemanticStatus string

// Semantic status constants.
const (
	SemanticStatusOK                  SemanticStatus = "ok"
	SemanticStatusNoProvider          SemanticStatus = "no_provider"
	SemanticStatusTransactionNotFound SemanticStatus = "transaction_not_found"
	SemanticStatusMissingEmbedding    SemanticStatus = "missing_embedding"
	SemanticStatusQueryFailed         SemanticStatus = "query_failed"
)

// SemanticCandidate is a subcategory proposed by nearest-neighbor retrieval.
type SemanticCandidate struct {
	Provenance           map[string]string
	SourceTransactionID  string
	SubcategoryID        int64
	Score                float64
	SupportingMatchCount int
}

// SemanticResult is the ranked outcome of a retrieval attempt.
type SemanticResult struct {
	Status     SemanticStatus
	Error      string
	Candidates []SemanticCandidate
	Attempted  bool
}

// Top returns the best candidate, or nil when there is none.
func (r *SemanticResult) Top() *SemanticCandidate {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// FusionDecision reconciles deterministic and semantic signals.
type FusionDecision struct {
	ProposedSubcategoryID *int64
	Decision              Decision
	ReviewStatus          ReviewStatus
	ReasonCode            string
	Rationale             string
	AgentNote             string
	Confidence            float64
	EscalatedToNextStage  bool
}

// SpecialistLane is a domain lane that may own an ambiguous transaction.
type SpecialistLane string

// Specialist lanes.
const (
	LaneCategorization SpecialistLane = "categorization"
	LaneTransfer       SpecialistLane = "transfer"
	LaneIncome         SpecialistLane = "income"
	LaneDebtQuality    SpecialistLane = "debt-quality"
	LaneInvestment     SpecialistLane = "investment"
	LaneAnomaly        SpecialistLane = "anomaly"
)

// SpecialistRoutingDecision records which lane owns a transaction and what
// the remaining stages are allowed to do.
type SpecialistRoutingDecision struct {
	RequestedLane    SpecialistLane
	EffectiveLane    SpecialistLane
	SpecialistID     string
	ReasonCode       string
	Rationale        string
	AllowSemantic    bool
	AllowFallback    bool
	ForceNeedsReview bool
}

// FallbackEligibility gates the last-resort agent stage.
type FallbackEligibility struct {
	ReasonCode string
	Rationale  string
	Eligible   bool
}

// FallbackProposal is a single validated suggestion from the external agent.
type FallbackProposal struct {
	RationaleCode  string
	Rationale      string
	AgentNote      string
	ProposedAction string
	DraftMessage   string // never sent automatically
	SubcategoryID  int64
	Confidence     float64
}

// ClassificationStage identifies a pipeline stage in the audit trail.
type ClassificationStage int

// Stage constants. The values are persisted.
const (
	StageDeterministic ClassificationStage = 1
	StageSemantic      ClassificationStage = 2
	StageFallbackAgent ClassificationStage = 3
)

func (s ClassificationStage) String() string {
	switch s {
	case StageDeterministic:
		return "deterministic"
	case StageSemantic:
		return "semantic"
	case StageFallbackAgent:
		return "fallback_agent"
	default:
		return "unknown"
	}
}

// StageOutput is one stage's audited contribution to an outcome.
type StageOutput struct {
	ProducedAt            time.Time
	ProposedSubcategoryID *int64
	ID                    string
	RationaleCode         string
	Rationale             string
	Stage                 ClassificationStage
	StageOrder            int
	Confidence            float64
	EscalatedToNextStage  bool
}

// ClassificationOutcome is the persisted, append-only result of one pipeline
// run for one transaction.
type ClassificationOutcome struct {
	CreatedAt             time.Time
	ProposedSubcategoryID *int64
	ID                    string
	TransactionID         string
	Decision              Decision
	ReviewStatus          ReviewStatus
	ReasonCode            string
	Rationale             string
	AgentNote             string
	Stages                []StageOutput
	FinalConfidence       float64
}
