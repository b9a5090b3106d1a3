package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/pgvector/pgvector-go"
)

// memStore is an in-memory store with the same version semantics as the
// SQLite implementation.
type memStore struct {
	txns             map[string]*model.Transaction
	embeddings       map[string]pgvector.Vector
	saveErr          error
	neighborErr      error
	candidates       []model.Candidate
	neighbors        []model.NeighborHit
	outcomes         []model.ClassificationOutcome
	mutations        []model.TransactionMutation
	subcategoryCount int
	fillRate         float64
	conflicts        int
	saves            int
	mu               sync.Mutex
}

func newMemStore(candidates ...model.Candidate) *memStore {
	return &memStore{
		txns:       make(map[string]*model.Transaction),
		embeddings: make(map[string]pgvector.Vector),
		candidates: candidates,
	}
}

func (m *memStore) add(txn model.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.ReviewStatus == "" {
		txn.ReviewStatus = model.ReviewStatusNone
	}
	m.txns[txn.ID] = &txn
}

func (m *memStore) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	cp := *txn
	return &cp, nil
}

func (m *memStore) GetCandidates(_ context.Context, _ model.TaxonomyScope) ([]model.Candidate, error) {
	return m.candidates, nil
}

func (m *memStore) SaveOutcome(_ context.Context, outcome *model.ClassificationOutcome, mutation model.TransactionMutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.conflicts > 0 {
		m.conflicts--
		m.txns[mutation.TransactionID].Version++
		return fmt.Errorf("save outcome: %w", common.ErrConcurrentUpdate)
	}
	if err := m.applyLocked(mutation); err != nil {
		return err
	}
	m.outcomes = append(m.outcomes, *outcome)
	return nil
}

func (m *memStore) UpdateReviewState(_ context.Context, mutation model.TransactionMutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(mutation)
}

func (m *memStore) applyLocked(mutation model.TransactionMutation) error {
	txn, ok := m.txns[mutation.TransactionID]
	if !ok {
		return common.ErrNotFound
	}
	if txn.Version != mutation.ExpectedVersion {
		return common.ErrConcurrentUpdate
	}
	txn.SubcategoryID = mutation.SubcategoryID
	txn.ReviewStatus = mutation.ReviewStatus
	txn.ReviewReason = mutation.ReviewReason
	txn.ReviewAssignee = mutation.ReviewAssignee
	txn.Version++
	m.mutations = append(m.mutations, mutation)
	return nil
}

func (m *memStore) GetOutcomes(_ context.Context, transactionID string) ([]model.ClassificationOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ClassificationOutcome
	for _, o := range m.outcomes {
		if o.TransactionID == transactionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) GetTransactionEmbedding(_ context.Context, id string) (pgvector.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txns[id]; !ok {
		return pgvector.Vector{}, common.ErrNotFound
	}
	v, ok := m.embeddings[id]
	if !ok {
		return pgvector.Vector{}, common.ErrNoEmbedding
	}
	return v, nil
}

func (m *memStore) NearestNeighbors(_ context.Context, _ model.NeighborQuery) ([]model.NeighborHit, error) {
	return m.neighbors, m.neighborErr
}

func (m *memStore) CountVisibleSubcategories(_ context.Context, _ model.TaxonomyScope) (int, error) {
	return m.subcategoryCount, nil
}

func (m *memStore) HouseholdFillRate(_ context.Context, _ string) (float64, error) {
	return m.fillRate, nil
}

func (m *memStore) transaction(id string) model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.txns[id]
}

type runtimeFunc func(ctx context.Context, payload []byte) ([]byte, error)

func (f runtimeFunc) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}
