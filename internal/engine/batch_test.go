package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, id string) (*model.ClassificationOutcome, error)

func (f runnerFunc) Run(ctx context.Context, id string) (*model.ClassificationOutcome, error) {
	return f(ctx, id)
}

var fastRetry = service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func TestBatchRunner_ClassifyMany(t *testing.T) {
	var mu sync.Mutex
	runs := map[string]int{}
	runner := runnerFunc(func(_ context.Context, id string) (*model.ClassificationOutcome, error) {
		mu.Lock()
		runs[id]++
		mu.Unlock()
		switch id {
		case "bad":
			return nil, errors.New("boom")
		case "review":
			return &model.ClassificationOutcome{TransactionID: id, Decision: model.DecisionNeedsReview}, nil
		default:
			return &model.ClassificationOutcome{TransactionID: id, Decision: model.DecisionCategorized}, nil
		}
	})

	var reported atomic.Int32
	results, stats, err := NewBatchRunner(runner).ClassifyMany(context.Background(),
		[]string{"a", "review", "a", "bad", "", "b"},
		BatchOptions{Parallelism: 2, Retry: fastRetry, OnResult: func(BatchResult) { reported.Add(1) }})
	require.NoError(t, err)

	require.Len(t, results, 4)
	assert.Equal(t, []string{"a", "review", "bad", "b"}, []string{
		results[0].TransactionID, results[1].TransactionID, results[2].TransactionID, results[3].TransactionID,
	})
	assert.Equal(t, 1, runs["a"], "duplicate ids run once")
	assert.Equal(t, 1, runs["bad"], "non-retryable errors are not retried")
	require.Error(t, results[2].Err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Categorized)
	assert.Equal(t, 1, stats.NeedsReview)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, int32(4), reported.Load())
}

func TestBatchRunner_RetriesVersionConflicts(t *testing.T) {
	store := newMemStore(testCandidates()...)
	store.add(expense("txn-1", "Coffee Shop Purchase"))
	store.conflicts = 2

	results, stats, err := NewBatchRunner(newTestPipeline(store)).ClassifyMany(context.Background(),
		[]string{"txn-1"}, BatchOptions{Retry: fastRetry})
	require.NoError(t, err)

	require.NoError(t, results[0].Err)
	assert.Equal(t, model.DecisionCategorized, results[0].Outcome.Decision)
	assert.Equal(t, 1, stats.Categorized)
	assert.Equal(t, 3, store.saves)
	require.Len(t, store.outcomes, 1)
}

func TestBatchRunner_GivesUpAfterMaxAttempts(t *testing.T) {
	runner := runnerFunc(func(context.Context, string) (*model.ClassificationOutcome, error) {
		return nil, fmt.Errorf("save: %w", common.ErrConcurrentUpdate)
	})

	results, stats, err := NewBatchRunner(runner).ClassifyMany(context.Background(), []string{"x"}, BatchOptions{Retry: fastRetry})
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, common.ErrMaxRetries)
	assert.Equal(t, 1, stats.Failed)
}

func TestBatchRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := runnerFunc(func(ctx context.Context, _ string) (*model.ClassificationOutcome, error) {
		return nil, ctx.Err()
	})

	results, stats, err := NewBatchRunner(runner).ClassifyMany(ctx, []string{"a", "b"}, BatchOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.Err)
	}
	assert.Equal(t, 2, stats.Failed)
}
