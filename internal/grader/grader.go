// Package grader measures how well each rule predicts confirmed labels.
//
// Grading replays the classifier over every transaction that has a confirmed
// label, attributes each prediction to the rule that won it, and compares the
// prediction against the confirmed truth. The resulting per-rule accuracy
// feeds back into confidence scoring on the next classification run.
package grader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/propflow/propflow/internal/engine"
	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/service"
)

// Report summarizes a grading run.
type Report struct {
	RulesGraded        int
	TransactionsGraded int
	SkippedUnconfirmed int
}

// Grader rebuilds rule performance statistics from confirmed labels.
type Grader struct {
	storage  service.Storage
	engine   *engine.Engine
	resolver *engine.Resolver
	logger   *slog.Logger
}

// New creates a grader. The logger may be nil, in which case the default
// logger is used.
func New(storage service.Storage, eng *engine.Engine, resolver *engine.Resolver, logger *slog.Logger) *Grader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grader{
		storage:  storage,
		engine:   eng,
		resolver: resolver,
		logger:   logger,
	}
}

type ruleTally struct {
	matches          int
	categoryHits     int
	categoryTotal    int
	subcategoryHits  int
	subcategoryTotal int
	propertyHits     int
	propertyTotal    int
}

// Grade recomputes per-rule accuracy against confirmed labels and stores the
// result. A label counts as confirmed when it was written manually or has
// been marked reviewed; transactions whose latest label is an unreviewed
// automatic prediction are skipped. Rules that matched nothing keep whatever
// statistics a previous run recorded.
func (g *Grader) Grade(ctx context.Context) (*Report, error) {
	transactions, err := g.storage.GetLabeledTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load labeled transactions: %w", err)
	}
	latest, err := g.storage.LatestLabels(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest labels: %w", err)
	}

	report := &Report{}
	tallies := make(map[string]*ruleTally)

	for _, txn := range transactions {
		truth, ok := latest[txn.ID]
		if !ok {
			continue
		}
		if truth.Source != model.SourceManual && !truth.Reviewed {
			report.SkippedUnconfirmed++
			continue
		}

		// Predictions are attributed without measured accuracy so that
		// grading is not biased by its own previous output.
		draft, trace := g.engine.Classify(txn)
		resolution := g.resolver.Resolve(trace, draft, nil)
		if resolution.RuleID == nil {
			continue
		}

		tally := tallies[*resolution.RuleID]
		if tally == nil {
			tally = &ruleTally{}
			tallies[*resolution.RuleID] = tally
		}
		tally.matches++
		report.TransactionsGraded++

		tally.score(draft, truth)
	}

	if len(tallies) == 0 {
		g.logger.Info("no confirmed labels to grade against")
		return report, nil
	}

	now := time.Now().UTC()
	stats := make([]model.RulePerformance, 0, len(tallies))
	for ruleID, tally := range tallies {
		stats = append(stats, model.RulePerformance{
			RuleID:         ruleID,
			MatchCount:     tally.matches,
			AccCategory:    ratio(tally.categoryHits, tally.categoryTotal),
			AccSubcategory: ratio(tally.subcategoryHits, tally.subcategoryTotal),
			AccProperty:    ratio(tally.propertyHits, tally.propertyTotal),
			ComputedAt:     now,
		})
	}

	if err := g.storage.ReplaceRulePerformance(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to store rule performance: %w", err)
	}

	report.RulesGraded = len(stats)
	g.logger.Info("grading complete",
		"rules", report.RulesGraded,
		"transactions", report.TransactionsGraded,
		"skipped_unconfirmed", report.SkippedUnconfirmed)
	return report, nil
}

// score compares one prediction against its confirmed truth. A dimension is
// only counted when either side has a value, so rules that never touch a
// dimension stay unmeasured on it rather than scoring free hits.
func (t *ruleTally) score(draft model.LabelDraft, truth model.Label) {
	if draft.Category != "" || truth.Category != "" {
		t.categoryTotal++
		if draft.Category == truth.Category {
			t.categoryHits++
		}
	}
	if draft.Subcategory != "" || truth.Subcategory != "" {
		t.subcategoryTotal++
		if draft.Subcategory == truth.Subcategory {
			t.subcategoryHits++
		}
	}
	if draft.PropertyCode != "" || truth.PropertyCode != "" {
		t.propertyTotal++
		if draft.PropertyCode == truth.PropertyCode {
			t.propertyHits++
		}
	}
}

func ratio(hits, total int) *float64 {
	if total == 0 {
		return nil
	}
	v := float64(hits) / float64(total)
	return &v
}
