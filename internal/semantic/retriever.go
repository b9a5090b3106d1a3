// Package semantic proposes subcategories from the nearest categorized
// neighbors of a transaction's embedding.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/pgvector/pgvector-go"
)

// Retrieval defaults.
const (
	DefaultMinScore      = 0.70
	DefaultMaxCandidates = 5

	// neighborFanout is how many raw hits are fetched per candidate slot so
	// that grouping by subcategory still fills the cap.
	neighborFanout = 4
)

// Index is the vector store the retriever queries. NearestNeighbors must only
// return categorized transactions that are not waiting for review and must
// exclude the query transaction.
type Index interface {
	GetTransactionEmbedding(ctx context.Context, transactionID string) (pgvector.Vector, error)
	NearestNeighbors(ctx context.Context, query model.NeighborQuery) ([]model.NeighborHit, error)
}

// Config tunes retrieval.
type Config struct {
	MinScore      float64
	MaxCandidates int
}

// Retriever turns neighbor hits into ranked subcategory candidates.
type Retriever struct {
	index Index
	cfg   Config
}

// NewRetriever creates a retriever. A nil index is allowed and reports
// no_provider on every call.
func NewRetriever(index Index, cfg Config) *Retriever {
	if cfg.MinScore <= 0 || cfg.MinScore > 1 || math.IsNaN(cfg.MinScore) {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	return &Retriever{index: index, cfg: cfg}
}

// Retrieve returns ranked candidates for a transaction. Failures are reported
// through the result status and never as an empty successful result.
func (r *Retriever) Retrieve(ctx context.Context, transactionID, householdID string) *model.SemanticResult {
	if r == nil || r.index == nil {
		return &model.SemanticResult{Status: model.SemanticStatusNoProvider}
	}

	embedding, err := r.index.GetTransactionEmbedding(ctx, transactionID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return failed(model.SemanticStatusTransactionNotFound, err)
	case errors.Is(err, common.ErrNoEmbedding):
		return failed(model.SemanticStatusMissingEmbedding, err)
	case err != nil:
		return queryFailed(ctx, transactionID, err)
	case len(embedding.Slice()) == 0:
		return failed(model.SemanticStatusMissingEmbedding, common.ErrNoEmbedding)
	}

	hits, err := r.index.NearestNeighbors(ctx, model.NeighborQuery{
		Embedding:     embedding,
		TransactionID: transactionID,
		HouseholdID:   householdID,
		Limit:         r.cfg.MaxCandidates * neighborFanout,
	})
	if err != nil {
		return queryFailed(ctx, transactionID, err)
	}

	candidates := Rank(transactionID, hits, r.cfg.MinScore, r.cfg.MaxCandidates)
	common.LogDebug(ctx, "semantic retrieval complete", common.Fields{
		"transaction_id": transactionID,
		"hits":           len(hits),
		"candidates":     len(candidates),
	})

	return &model.SemanticResult{
		Status:     model.SemanticStatusOK,
		Attempted:  true,
		Candidates: candidates,
	}
}

func failed(status model.SemanticStatus, err error) *model.SemanticResult {
	return &model.SemanticResult{
		Status:    status,
		Attempted: true,
		Error:     err.Error(),
	}
}

func queryFailed(ctx context.Context, transactionID string, err error) *model.SemanticResult {
	common.LogWarn(ctx, "semantic retrieval failed", common.Fields{
		"transaction_id": transactionID,
		"error":          err.Error(),
	})
	return failed(model.SemanticStatusQueryFailed, err)
}

// Score converts a cosine distance into a confidence in [0, 1].
func Score(distance float64) float64 {
	return model.RoundConfidence(1 - distance)
}

// Rank groups hits by subcategory keeping the best representative, drops
// groups under minScore, orders by score descending then subcategory id and
// caps the list at maxCandidates. Hits for the query transaction itself are
// ignored.
func Rank(queryID string, hits []model.NeighborHit, minScore float64, maxCandidates int) []model.SemanticCandidate {
	groups := make(map[int64]*model.SemanticCandidate)
	for _, hit := range hits {
		if hit.TransactionID == queryID {
			continue
		}
		score := Score(hit.Distance)

		group, ok := groups[hit.SubcategoryID]
		if !ok {
			group = &model.SemanticCandidate{SubcategoryID: hit.SubcategoryID}
			groups[hit.SubcategoryID] = group
		}
		group.SupportingMatchCount++
		if !ok || score > group.Score {
			group.Score = score
			group.SourceTransactionID = hit.TransactionID
			group.Provenance = map[string]string{
				"source_transaction_id": hit.TransactionID,
				"cosine_distance":       fmt.Sprintf("%.4f", hit.Distance),
			}
		}
	}

	candidates := make([]model.SemanticCandidate, 0, len(groups))
	for _, g := range groups {
		if g.Score < minScore {
			continue
		}
		candidates = append(candidates, *g)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].SubcategoryID < candidates[j].SubcategoryID
	})

	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

// CosineDistance returns 1 - cosine similarity of a and b. Vectors of
// different length or zero magnitude are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
