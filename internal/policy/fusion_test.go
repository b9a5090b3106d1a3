package policy

import (
	"testing"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noRuleMatch() model.DeterministicResult {
	return model.DeterministicResult{
		RationaleCode: model.ReasonNoRuleMatch,
		Rationale:     "No candidate subcategory shares a keyword with the description.",
	}
}

func semantic(scores ...float64) *model.SemanticResult {
	result := &model.SemanticResult{Status: model.SemanticStatusOK, Attempted: true}
	for i, score := range scores {
		result.Candidates = append(result.Candidates, model.SemanticCandidate{
			SubcategoryID:        int64(100 + i),
			Score:                score,
			SourceTransactionID:  "prior",
			SupportingMatchCount: 1,
		})
	}
	return result
}

func TestFuse_AcceptsSemanticOnlyMatch(t *testing.T) {
	det := noRuleMatch()
	amb := EvaluateAmbiguity(model.ReviewStatusNone, det)
	require.Equal(t, model.ReasonNoDeterministicMatch, amb.ReasonCode)

	// 0.95 vs 0.90 is a gap of exactly 0.05, which is not a conflict.
	got := Fuse(amb, det, semantic(0.95, 0.90))

	assert.Equal(t, model.DecisionCategorized, got.Decision)
	assert.Equal(t, model.ReviewStatusNone, got.ReviewStatus)
	assert.Equal(t, model.ReasonSemanticAccepted, got.ReasonCode)
	require.NotNil(t, got.ProposedSubcategoryID)
	assert.Equal(t, int64(100), *got.ProposedSubcategoryID)
	assert.Equal(t, 0.95, got.Confidence)
	assert.False(t, got.EscalatedToNextStage)
}

func TestFuse_PreservesReviewedStatusOnAccept(t *testing.T) {
	det := noRuleMatch()
	amb := EvaluateAmbiguity(model.ReviewStatusReviewed, det)
	require.Equal(t, model.ReviewStatusNeedsReview, amb.ReviewStatus)
	require.Equal(t, model.ReviewStatusReviewed, amb.PriorStatus)

	got := Fuse(amb, det, semantic(0.97))
	assert.Equal(t, model.DecisionCategorized, got.Decision)
	assert.Equal(t, model.ReviewStatusReviewed, got.ReviewStatus)

	fresh := Fuse(EvaluateAmbiguity(model.ReviewStatusNone, det), det, semantic(0.97))
	assert.Equal(t, model.ReviewStatusNone, fresh.ReviewStatus)
}

func TestFuse_Escalations(t *testing.T) {
	weak := keywordMatch(100, 0.625)
	weakOther := keywordMatch(55, 0.625)
	nonExpense := model.DeterministicResult{Confidence: 0.2, RationaleCode: model.ReasonNonExpenseAmount, Rationale: "income"}
	missing := model.DeterministicResult{RationaleCode: model.ReasonMissingDescription, Rationale: "missing"}
	conflict := model.DeterministicResult{Confidence: 0.9, IsConflict: true, RationaleCode: model.ReasonConflictingRules, Rationale: "conflict"}

	tests := []struct {
		name       string
		det        model.DeterministicResult
		sem        *model.SemanticResult
		wantReason string
		wantConf   float64
	}{
		{name: "deterministic and semantic disagree", det: weakOther, sem: semantic(0.99), wantReason: model.ReasonDeterministicSemanticConflict, wantConf: 0.99},
		{name: "conflict confidence is the max", det: keywordMatch(55, 0.8), sem: semantic(0.75), wantReason: model.ReasonDeterministicSemanticConflict, wantConf: 0.8},
		{name: "same subcategory keeps escalating", det: weak, sem: semantic(0.99), wantReason: model.ReasonLowConfidence, wantConf: 0.625},
		{name: "semantic below threshold", det: noRuleMatch(), sem: semantic(0.91), wantReason: model.ReasonSemanticBelowThreshold, wantConf: 0.91},
		{name: "semantic candidate conflict", det: noRuleMatch(), sem: semantic(0.95, 0.9001), wantReason: model.ReasonSemanticCandidateConflict, wantConf: 0.95},
		{name: "non expense never accepted", det: nonExpense, sem: semantic(0.99), wantReason: model.ReasonLowConfidence, wantConf: 0.2},
		{name: "missing description never accepted", det: missing, sem: semantic(0.99), wantReason: model.ReasonNoDeterministicMatch, wantConf: 0},
		{name: "deterministic conflict never accepted", det: conflict, sem: semantic(0.99), wantReason: model.ReasonConflictingRules, wantConf: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amb := EvaluateAmbiguity(model.ReviewStatusNone, tt.det)
			require.Equal(t, model.DecisionNeedsReview, amb.Decision)

			got := Fuse(amb, tt.det, tt.sem)

			assert.Equal(t, model.DecisionNeedsReview, got.Decision)
			assert.Equal(t, model.ReviewStatusNeedsReview, got.ReviewStatus)
			assert.Equal(t, tt.wantReason, got.ReasonCode)
			assert.Equal(t, tt.wantConf, got.Confidence)
			assert.True(t, got.EscalatedToNextStage)
			assert.NotEmpty(t, got.Rationale)
		})
	}
}

func TestFuse_PassThrough(t *testing.T) {
	t.Run("semantic not attempted", func(t *testing.T) {
		det := noRuleMatch()
		amb := EvaluateAmbiguity(model.ReviewStatusNone, det)

		got := Fuse(amb, det, &model.SemanticResult{Status: model.SemanticStatusNoProvider})
		assert.Equal(t, amb.ReasonCode, got.ReasonCode)
		assert.Equal(t, model.DecisionNeedsReview, got.Decision)
		assert.True(t, got.EscalatedToNextStage)
	})

	t.Run("nil semantic result", func(t *testing.T) {
		det := noRuleMatch()
		amb := EvaluateAmbiguity(model.ReviewStatusNone, det)

		got := Fuse(amb, det, nil)
		assert.Equal(t, amb.ReasonCode, got.ReasonCode)
		assert.True(t, got.EscalatedToNextStage)
	})

	t.Run("empty candidates", func(t *testing.T) {
		det := noRuleMatch()
		amb := EvaluateAmbiguity(model.ReviewStatusNone, det)

		got := Fuse(amb, det, semantic())
		assert.Equal(t, model.ReasonNoDeterministicMatch, got.ReasonCode)
		assert.True(t, got.EscalatedToNextStage)
	})

	t.Run("categorized ambiguity passes unchanged", func(t *testing.T) {
		det := keywordMatch(7, 1.0)
		amb := EvaluateAmbiguity(model.ReviewStatusNone, det)

		got := Fuse(amb, det, semantic(0.99))
		assert.Equal(t, model.DecisionCategorized, got.Decision)
		assert.Equal(t, model.ReasonDeterministicAccepted, got.ReasonCode)
		require.NotNil(t, got.ProposedSubcategoryID)
		assert.Equal(t, int64(7), *got.ProposedSubcategoryID)
		assert.False(t, got.EscalatedToNextStage)
	})
}

// Semantic-only acceptance requires a deterministic "no rule match".
func TestFuse_SemanticOnlyAcceptanceProperty(t *testing.T) {
	dets := []model.DeterministicResult{
		keywordMatch(100, 0.5),
		keywordMatch(100, 0.84),
		keywordMatch(3, 0.84),
		{RationaleCode: model.ReasonMissingDescription},
		{RationaleCode: model.ReasonNonExpenseAmount, Confidence: 0.2},
		{RationaleCode: model.ReasonConflictingRules, IsConflict: true, Confidence: 0.95},
		{RationaleCode: model.ReasonConflictingRules, IsConflict: true},
	}
	statuses := []model.ReviewStatus{model.ReviewStatusNone, model.ReviewStatusReviewed, model.ReviewStatusNeedsReview}
	sems := []*model.SemanticResult{semantic(1.0), semantic(0.99, 0.5), semantic(0.93)}

	for _, det := range dets {
		for _, status := range statuses {
			for _, sem := range sems {
				amb := EvaluateAmbiguity(status, det)
				got := Fuse(amb, det, sem)
				assert.Equal(t, model.DecisionNeedsReview, got.Decision, "%s/%s", det.RationaleCode, status)
			}
		}
	}

	// And a transaction already in review never leaves it, even on a perfect
	// semantic match with no rule match.
	det := noRuleMatch()
	got := Fuse(EvaluateAmbiguity(model.ReviewStatusNeedsReview, det), det, semantic(1.0))
	assert.Equal(t, model.DecisionNeedsReview, got.Decision)
}

func TestFuse_ConfidenceAlwaysRounded(t *testing.T) {
	det := noRuleMatch()
	amb := EvaluateAmbiguity(model.ReviewStatusNone, det)

	got := Fuse(amb, det, semantic(0.933333333))
	assert.Equal(t, 0.9333, got.Confidence)
}
