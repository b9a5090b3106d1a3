package model

import "github.com/pgvector/pgvector-go"

// NeighborQuery asks the vector index for the transactions closest to an
// embedding within one household.
type NeighborQuery struct {
	Embedding     pgvector.Vector
	TransactionID string // excluded from the results
	HouseholdID   string
	Limit         int
}

// NeighborHit is a categorized prior transaction near the query embedding.
type NeighborHit struct {
	TransactionID string
	SubcategoryID int64
	Distance      float64 // cosine distance, 0 is identical
}
