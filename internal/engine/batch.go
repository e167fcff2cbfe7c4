package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sananlb/Expense-bot-sub000/internal/model"
)

// BatchResult is the outcome for one draft of a batch.
type BatchResult struct {
	Err    error
	Result model.CategorizationResult
	Index  int
}

// ResolveBatch resolves drafts concurrently with at most workers in flight
// (the configured BatchWorkers when workers is not positive). Per-draft
// failures are reported in the results; the returned error is only set when
// ctx ends first. onDone, when non-nil, is called from worker goroutines as
// each draft finishes.
func (r *Resolver) ResolveBatch(ctx context.Context, drafts []model.TransactionDraft, workers int, onDone func(BatchResult)) ([]BatchResult, error) {
	if workers <= 0 {
		workers = r.cfg.BatchWorkers
	}

	results := make([]BatchResult, len(drafts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, draft := range drafts {
		if gctx.Err() != nil {
			break
		}
		i, draft := i, draft
		g.Go(func() error {
			result, err := r.Resolve(gctx, draft)
			results[i] = BatchResult{Index: i, Result: result, Err: err}
			if onDone != nil {
				onDone(results[i])
			}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
