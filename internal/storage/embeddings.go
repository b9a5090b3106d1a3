package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/semantic"
	"github.com/pgvector/pgvector-go"
)

// SaveEmbedding stores or replaces the embedding of a transaction.
func (s *SQLiteStorage) SaveEmbedding(ctx context.Context, transactionID string, embedding pgvector.Vector) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if len(embedding.Slice()) == 0 {
		return fmt.Errorf("%w: embedding", ErrEmptySlice)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transaction_embeddings (transaction_id, embedding, dimensions, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			updated_at = excluded.updated_at
	`, transactionID, embedding, len(embedding.Slice()), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save embedding for %s: %w", transactionID, err)
	}
	return nil
}

// GetTransactionEmbedding returns the stored embedding of a transaction. It
// fails with common.ErrNotFound for an unknown transaction and
// common.ErrNoEmbedding when the transaction has not been embedded.
func (s *SQLiteStorage) GetTransactionEmbedding(ctx context.Context, transactionID string) (pgvector.Vector, error) {
	if err := validateContext(ctx); err != nil {
		return pgvector.Vector{}, err
	}

	var embedding pgvector.Vector
	var stored sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT e.embedding
		FROM transactions t
		LEFT JOIN transaction_embeddings e ON e.transaction_id = t.id
		WHERE t.id = ?
	`, transactionID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return pgvector.Vector{}, fmt.Errorf("transaction %s: %w", transactionID, common.ErrNotFound)
	}
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("failed to get embedding for %s: %w", transactionID, err)
	}
	if !stored.Valid {
		return pgvector.Vector{}, fmt.Errorf("transaction %s: %w", transactionID, common.ErrNoEmbedding)
	}
	if err := embedding.Scan(stored.String); err != nil {
		return pgvector.Vector{}, fmt.Errorf("failed to parse embedding for %s: %w", transactionID, err)
	}
	return embedding, nil
}

// NearestNeighbors returns the household's classified transactions closest to
// the query embedding by cosine distance. Only transactions that carry a
// subcategory and are not awaiting review count as neighbors, and the query
// transaction itself is excluded. Distances are computed in process since
// SQLite has no vector index.
func (s *SQLiteStorage) NearestNeighbors(ctx context.Context, query model.NeighborQuery) ([]model.NeighborHit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(query.HouseholdID, "householdID"); err != nil {
		return nil, err
	}
	target := query.Embedding.Slice()
	if len(target) == 0 {
		return nil, fmt.Errorf("%w: query embedding", ErrEmptySlice)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.subcategory_id, e.embedding
		FROM transactions t
		JOIN transaction_embeddings e ON e.transaction_id = t.id
		WHERE t.household_id = ?
			AND t.id != ?
			AND t.subcategory_id IS NOT NULL
			AND t.review_status != ?
			AND e.dimensions = ?
	`, query.HouseholdID, query.TransactionID, string(model.ReviewStatusNeedsReview), len(target))
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []model.NeighborHit
	for rows.Next() {
		var (
			hit       model.NeighborHit
			embedding pgvector.Vector
		)
		if err := rows.Scan(&hit.TransactionID, &hit.SubcategoryID, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		hit.Distance = semantic.CosineDistance(target, embedding.Slice())
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate neighbors: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].TransactionID < hits[j].TransactionID
	})
	if query.Limit > 0 && len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}
	return hits, nil
}
