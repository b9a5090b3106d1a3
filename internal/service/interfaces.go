// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/pgvector/pgvector-go"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	HouseholdID      string
	OnlyUnclassified bool
	Limit            int
}

// TransactionStore is what the classification pipeline needs from persistence.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetCandidates(ctx context.Context, scope model.TaxonomyScope) ([]model.Candidate, error)
	// SaveOutcome persists the outcome, its stage rows and the transaction
	// mutation atomically. It fails with common.ErrConcurrentUpdate when the
	// transaction version moved since it was read.
	SaveOutcome(ctx context.Context, outcome *model.ClassificationOutcome, mutation model.TransactionMutation) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	TransactionStore

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	ListTransactionIDs(ctx context.Context, filter TransactionFilter) ([]string, error)
	UpdateReviewState(ctx context.Context, mutation model.TransactionMutation) error

	// Taxonomy operations
	CreateSubcategory(ctx context.Context, subcategory *model.Subcategory) error
	GetSubcategory(ctx context.Context, id int64) (*model.Subcategory, error)
	CountVisibleSubcategories(ctx context.Context, scope model.TaxonomyScope) (int, error)
	HouseholdFillRate(ctx context.Context, householdID string) (float64, error)

	// Embedding operations
	SaveEmbedding(ctx context.Context, transactionID string, embedding pgvector.Vector) error
	GetTransactionEmbedding(ctx context.Context, transactionID string) (pgvector.Vector, error)
	NearestNeighbors(ctx context.Context, query model.NeighborQuery) ([]model.NeighborHit, error)

	// Audit trail
	GetOutcomes(ctx context.Context, transactionID string) ([]model.ClassificationOutcome, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// BatchStats summarizes a batch classification run.
type BatchStats struct {
	Total       int
	Categorized int
	NeedsReview int
	Failed      int
	Duration    time.Duration
}
