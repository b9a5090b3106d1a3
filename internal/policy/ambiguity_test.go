package policy

import (
	"testing"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/stretchr/testify/assert"
)

func keywordMatch(id int64, confidence float64) model.DeterministicResult {
	return model.DeterministicResult{
		ProposedSubcategoryID: model.SubcategoryPtr(id),
		Confidence:            confidence,
		RationaleCode:         model.ReasonKeywordMatch,
		Rationale:             "Matched keywords.",
	}
}

func TestEvaluateAmbiguity(t *testing.T) {
	tests := []struct {
		name       string
		current    model.ReviewStatus
		det        model.DeterministicResult
		wantStatus model.ReviewStatus
		wantReason string
		wantDec    model.Decision
		wantConf   float64
	}{
		{
			name:       "confident match is categorized",
			current:    model.ReviewStatusNone,
			det:        keywordMatch(7, 1.0),
			wantDec:    model.DecisionCategorized,
			wantStatus: model.ReviewStatusNone,
			wantReason: model.ReasonDeterministicAccepted,
			wantConf:   1.0,
		},
		{
			name:       "reviewed status is preserved on accept",
			current:    model.ReviewStatusReviewed,
			det:        keywordMatch(7, 0.9),
			wantDec:    model.DecisionCategorized,
			wantStatus: model.ReviewStatusReviewed,
			wantReason: model.ReasonDeterministicAccepted,
			wantConf:   0.9,
		},
		{
			name:       "threshold is inclusive",
			current:    model.ReviewStatusNone,
			det:        keywordMatch(7, 0.85),
			wantDec:    model.DecisionCategorized,
			wantStatus: model.ReviewStatusNone,
			wantReason: model.ReasonDeterministicAccepted,
			wantConf:   0.85,
		},
		{
			name:       "existing needs review always escalates",
			current:    model.ReviewStatusNeedsReview,
			det:        keywordMatch(7, 1.0),
			wantDec:    model.DecisionNeedsReview,
			wantStatus: model.ReviewStatusNeedsReview,
			wantReason: model.ReasonExistingNeedsReview,
			wantConf:   1.0,
		},
		{
			name:    "conflict escalates",
			current: model.ReviewStatusNone,
			det: model.DeterministicResult{
				Confidence:    0.90,
				IsConflict:    true,
				RationaleCode: model.ReasonConflictingRules,
				Rationale:     "Gas and Gas Station Snacks are too close.",
				Candidates: []model.RankedCandidate{
					{SubcategoryID: 1, Name: "Gas", Confidence: 0.90},
					{SubcategoryID: 2, Name: "Gas Station Snacks", Confidence: 0.87},
				},
			},
			wantDec:    model.DecisionNeedsReview,
			wantStatus: model.ReviewStatusNeedsReview,
			wantReason: model.ReasonConflictingRules,
			wantConf:   0.9,
		},
		{
			name:    "no rule match escalates as no deterministic match",
			current: model.ReviewStatusNone,
			det: model.DeterministicResult{
				RationaleCode: model.ReasonNoRuleMatch,
				Rationale:     "No candidate matched.",
			},
			wantDec:    model.DecisionNeedsReview,
			wantStatus: model.ReviewStatusNeedsReview,
			wantReason: model.ReasonNoDeterministicMatch,
		},
		{
			name:    "non expense amount escalates as low confidence",
			current: model.ReviewStatusNone,
			det: model.DeterministicResult{
				Confidence:    0.2,
				RationaleCode: model.ReasonNonExpenseAmount,
				Rationale:     "Amount 500.00 is not an expense.",
			},
			wantDec:    model.DecisionNeedsReview,
			wantStatus: model.ReviewStatusNeedsReview,
			wantReason: model.ReasonLowConfidence,
			wantConf:   0.2,
		},
		{
			name:       "weak match escalates as low confidence",
			current:    model.ReviewStatusReviewed,
			det:        keywordMatch(7, 0.625),
			wantDec:    model.DecisionNeedsReview,
			wantStatus: model.ReviewStatusNeedsReview,
			wantReason: model.ReasonLowConfidence,
			wantConf:   0.625,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAmbiguity(tt.current, tt.det)

			assert.Equal(t, tt.wantDec, got.Decision)
			assert.Equal(t, tt.wantStatus, got.ReviewStatus)
			assert.Equal(t, tt.wantReason, got.ReasonCode)
			assert.Equal(t, tt.wantConf, got.Confidence)
			assert.NotEmpty(t, got.Rationale)
		})
	}
}

func TestEvaluateAmbiguity_ExistingNeedsReviewIsUnconditional(t *testing.T) {
	inputs := []model.DeterministicResult{
		keywordMatch(1, 1.0),
		keywordMatch(1, 0.1),
		{RationaleCode: model.ReasonNoRuleMatch},
		{RationaleCode: model.ReasonMissingDescription},
		{RationaleCode: model.ReasonNonExpenseAmount, Confidence: 0.2},
		{RationaleCode: model.ReasonConflictingRules, IsConflict: true, Confidence: 0.9},
	}

	for _, det := range inputs {
		got := EvaluateAmbiguity(model.ReviewStatusNeedsReview, det)
		assert.Equal(t, model.DecisionNeedsReview, got.Decision)
		assert.Equal(t, model.ReasonExistingNeedsReview, got.ReasonCode)
	}
}

func TestEnforceFailClosed(t *testing.T) {
	t.Run("categorized after needs review is re-escalated", func(t *testing.T) {
		v := EnforceFailClosed(model.ReviewStatusNeedsReview, Accept(model.ReviewStatusNeedsReview, "x", "y"))
		assert.Equal(t, model.DecisionNeedsReview, v.Decision)
		assert.Equal(t, model.ReasonExistingNeedsReview, v.ReasonCode)
	})

	t.Run("empty reason is filled", func(t *testing.T) {
		v := EnforceFailClosed(model.ReviewStatusNone, Verdict{Decision: model.DecisionNeedsReview})
		assert.Equal(t, model.ReviewStatusNeedsReview, v.ReviewStatus)
		assert.Equal(t, model.ReasonFailClosed, v.ReasonCode)
		assert.Equal(t, DefaultEscalationRationale, v.Rationale)
	})

	t.Run("accepted verdict passes", func(t *testing.T) {
		in := Accept(model.ReviewStatusNone, model.ReasonDeterministicAccepted, "ok")
		assert.Equal(t, in, EnforceFailClosed(model.ReviewStatusNone, in))
	})
}
