package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/service"
	"github.com/Veraticus/mosaic-money/internal/specialist"
	"github.com/stretchr/testify/assert"
)

func TestFormatSubcategory(t *testing.T) {
	names := func(id int64) string {
		if id == 7 {
			return "Coffee Shops"
		}
		return ""
	}

	assert.Contains(t, FormatSubcategory(nil, names), "none")
	assert.Equal(t, "Coffee Shops (#7)", FormatSubcategory(model.SubcategoryPtr(7), names))
	assert.Equal(t, "#8", FormatSubcategory(model.SubcategoryPtr(8), names))
	assert.Equal(t, "#7", FormatSubcategory(model.SubcategoryPtr(7), nil))
}

func TestRenderOutcome(t *testing.T) {
	outcome := model.ClassificationOutcome{
		ID:                    "out-1",
		Decision:              model.DecisionNeedsReview,
		ReviewStatus:          model.ReviewStatusNeedsReview,
		ReasonCode:            model.ReasonFallbackProposalPending,
		Rationale:             "Fallback proposal awaits review.",
		AgentNote:             "Drugstore chain.",
		FinalConfidence:       0.82,
		ProposedSubcategoryID: model.SubcategoryPtr(7),
		CreatedAt:             time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
		Stages: []model.StageOutput{
			{Stage: model.StageDeterministic, StageOrder: 1, RationaleCode: model.ReasonNoRuleMatch, EscalatedToNextStage: true},
			{Stage: model.StageSemantic, StageOrder: 2, RationaleCode: model.ReasonSemanticBelowThreshold, Confidence: 0.7071, EscalatedToNextStage: true},
			{Stage: model.StageFallbackAgent, StageOrder: 3, RationaleCode: "merchant_lookup", Confidence: 0.82, ProposedSubcategoryID: model.SubcategoryPtr(7)},
		},
	}

	out := RenderOutcome(outcome, func(int64) string { return "Pharmacy" })

	for _, want := range []string{
		"Outcome out-1",
		"2026-05-01 09:30:00",
		"NeedsReview",
		model.ReasonFallbackProposalPending,
		"0.8200",
		"Pharmacy (#7)",
		"Agent note: Drugstore chain.",
		"deterministic",
		"semantic",
		"fallback_agent",
		"0.7071",
		"merchant_lookup",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderStats(t *testing.T) {
	out := RenderStats(service.BatchStats{Total: 5, Categorized: 3, NeedsReview: 1, Failed: 1, Duration: 1500 * time.Millisecond})
	assert.Contains(t, out, "Transactions: 5")
	assert.Contains(t, out, "Categorized:  3")
	assert.Contains(t, out, "Needs review: 1")
	assert.Contains(t, out, "Failed:       1")
	assert.Contains(t, out, "Took 1.5s")

	clean := RenderStats(service.BatchStats{Total: 1, Categorized: 1})
	assert.NotContains(t, clean, "Failed")
}

func TestRenderLanes(t *testing.T) {
	out := RenderLanes(specialist.DefaultRegistry().Lanes())
	assert.Contains(t, out, "categorization")
	assert.Contains(t, out, "categorization-core")
	assert.Contains(t, out, "transfer")
}

func TestNewProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 3, "Classifying transactions...")
	for range 3 {
		assert.NoError(t, bar.Add(1))
	}
	assert.True(t, bar.IsFinished())
	assert.Contains(t, buf.String(), "3/3")
}
