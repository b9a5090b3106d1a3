package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// ReadinessGate holds back classification until a household's taxonomy is
// usable.
type ReadinessGate struct {
	stats            TaxonomyStats
	minSubcategories int
	minFillRate      float64
}

// NewReadinessGate creates a gate. A nil gate is always ready.
func NewReadinessGate(stats TaxonomyStats, minSubcategories int, minFillRate float64) *ReadinessGate {
	return &ReadinessGate{
		stats:            stats,
		minSubcategories: minSubcategories,
		minFillRate:      minFillRate,
	}
}

// Check evaluates readiness for scope.
func (g *ReadinessGate) Check(ctx context.Context, scope model.TaxonomyScope) (model.Readiness, error) {
	if g == nil || g.stats == nil {
		return model.Readiness{Ready: true}, nil
	}

	count, err := g.stats.CountVisibleSubcategories(ctx, scope)
	if err != nil {
		return model.Readiness{}, fmt.Errorf("failed to count subcategories: %w", err)
	}
	fill, err := g.stats.HouseholdFillRate(ctx, scope.HouseholdID)
	if err != nil {
		return model.Readiness{}, fmt.Errorf("failed to compute fill rate: %w", err)
	}

	r := model.Readiness{SubcategoryCount: count, FillRate: fill, Ready: true}
	switch {
	case count < g.minSubcategories:
		r.Ready = false
		r.Reason = fmt.Sprintf("Only %d active subcategories are visible; at least %d are required.", count, g.minSubcategories)
	case fill < g.minFillRate:
		r.Ready = false
		r.Reason = fmt.Sprintf("Only %.0f%% of household transactions are categorized; %.0f%% is required.", fill*100, g.minFillRate*100)
	}
	return r, nil
}
