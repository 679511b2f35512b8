package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/propflow/propflow/internal/model"
)

// BatchOptions configures a batch classification run.
type BatchOptions struct {
	Workers      int
	ShowProgress bool
}

// ClassifyBatch runs the engine and resolver over a batch of transactions.
// Transactions are independent, so the batch fans out across workers; the
// returned labels follow the input order regardless of completion order.
// Superseded transactions are skipped. Versions are assigned later by the
// label ledger.
func ClassifyBatch(ctx context.Context, eng *Engine, resolver *Resolver, txns []model.Transaction, perf map[string]model.RulePerformance, opts BatchOptions) ([]model.Label, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(txns)), "classifying")
	}

	results := make([]*model.Label, len(txns))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				txn := txns[i]
				if !txn.Superseded {
					label := classifyOne(eng, resolver, txn, perf)
					results[i] = &label
				}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}

	var cancelled error
feed:
	for i := range txns {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	labels := make([]model.Label, 0, len(txns))
	for _, label := range results {
		if label != nil {
			labels = append(labels, *label)
		}
	}

	slog.Debug("Batch classification complete",
		"transactions", len(txns),
		"labels", len(labels),
		"workers", workers)

	return labels, nil
}

func classifyOne(eng *Engine, resolver *Resolver, txn model.Transaction, perf map[string]model.RulePerformance) model.Label {
	draft, trace := eng.Classify(txn)
	resolution := resolver.Resolve(trace, draft, perf)

	var strength *model.Strength
	if resolution.RuleID != nil {
		s := resolution.Strength
		strength = &s
	}

	return model.Label{
		TransactionID: txn.ID,
		PropertyCode:  draft.PropertyCode,
		Category:      draft.Category,
		Subcategory:   draft.Subcategory,
		Description:   draft.Description,
		Confidence:    resolution.Confidence,
		RuleID:        resolution.RuleID,
		RuleStrength:  strength,
		NeedsReview:   resolution.NeedsReview,
		Source:        model.SourceRule,
	}
}
