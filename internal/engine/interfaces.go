package engine

import (
	"context"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// Runner classifies one transaction.
type Runner interface {
	Run(ctx context.Context, transactionID string) (*model.ClassificationOutcome, error)
}

// TaxonomyStats are the counts the readiness gate needs.
type TaxonomyStats interface {
	CountVisibleSubcategories(ctx context.Context, scope model.TaxonomyScope) (int, error)
	HouseholdFillRate(ctx context.Context, householdID string) (float64, error)
}

// ReviewStore is what manual review needs from persistence.
type ReviewStore interface {
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetOutcomes(ctx context.Context, transactionID string) ([]model.ClassificationOutcome, error)
	UpdateReviewState(ctx context.Context, mutation model.TransactionMutation) error
}
