package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/mosaic-money/internal/common"
	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/Veraticus/mosaic-money/internal/service"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is the number of transactions classified at once.
const DefaultParallelism = 4

// BatchOptions configures a batch run.
type BatchOptions struct {
	// OnResult is called once per transaction as it finishes. Calls are
	// serialized.
	OnResult    func(BatchResult)
	Retry       service.RetryOptions
	Parallelism int
}

// BatchResult is the result for one transaction in a batch.
type BatchResult struct {
	Err           error
	Outcome       *model.ClassificationOutcome
	TransactionID string
}

// BatchRunner classifies many transactions concurrently. Each id runs at
// most once per batch; concurrent writers to the same transaction are caught
// by the store's version check and retried.
type BatchRunner struct {
	runner Runner
}

// NewBatchRunner creates a batch runner.
func NewBatchRunner(runner Runner) *BatchRunner {
	return &BatchRunner{runner: runner}
}

// ClassifyMany runs every id and returns per-transaction results in input
// order with duplicates and empty ids removed. A failing transaction does not stop the
// others; the returned error is only set when ctx ends the batch early.
func (b *BatchRunner) ClassifyMany(ctx context.Context, ids []string, opts BatchOptions) ([]BatchResult, service.BatchStats, error) {
	start := time.Now()
	ids = dedupe(ids)

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	results := make([]BatchResult, len(ids))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(parallelism)

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var outcome *model.ClassificationOutcome
			err := common.WithRetry(ctx, func() error {
				var runErr error
				outcome, runErr = b.runner.Run(ctx, id)
				return runErr
			}, opts.Retry)

			res := BatchResult{TransactionID: id, Outcome: outcome, Err: err}
			results[i] = res
			if err != nil {
				common.LogError(ctx, err, "failed to classify transaction", common.Fields{"transaction_id": id})
			}

			if opts.OnResult != nil {
				mu.Lock()
				opts.OnResult(res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := service.BatchStats{Total: len(ids), Duration: time.Since(start)}
	for i := range results {
		if results[i].TransactionID == "" {
			results[i] = BatchResult{TransactionID: ids[i], Err: ctx.Err()}
		}
		switch {
		case results[i].Err != nil:
			stats.Failed++
		case results[i].Outcome.Decision == model.DecisionCategorized:
			stats.Categorized++
		default:
			stats.NeedsReview++
		}
	}

	return results, stats, ctx.Err()
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
