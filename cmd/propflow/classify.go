package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/propflow/propflow/internal/config"
	"github.com/propflow/propflow/internal/engine"
	"github.com/propflow/propflow/internal/service"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify transactions and append label versions",
		Long: `Run the rule engine over stored transactions and append a new label
version for each one. Previous label versions are never modified.`,
		RunE: runClassify,
	}

	cmd.Flags().String("month", "", "restrict to one month (YYYY-MM)")
	cmd.Flags().Bool("progress", true, "show a progress bar")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	month, _ := cmd.Flags().GetString("month")
	progress, _ := cmd.Flags().GetBool("progress")

	start, end, err := parsePeriod(month)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	eng, resolver, err := loadEngine(ctx, store)
	if err != nil {
		return err
	}

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: start, EndDate: end})
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(transactions) == 0 {
		slog.Info("No transactions to classify", "month", month)
		return nil
	}

	perf, err := store.GetRulePerformance(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rule performance: %w", err)
	}

	labels, err := engine.ClassifyBatch(ctx, eng, resolver, transactions, perf, engine.BatchOptions{
		Workers:      config.Workers(),
		ShowProgress: progress,
	})
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	needsReview := 0
	for i := range labels {
		if _, err := store.AppendLabel(ctx, &labels[i]); err != nil {
			return fmt.Errorf("failed to append label for %s: %w", labels[i].TransactionID, err)
		}
		if labels[i].NeedsReview {
			needsReview++
		}
	}

	slog.Info("Classification complete",
		"transactions", len(labels),
		"needs_review", needsReview,
		"auto_accepted", len(labels)-needsReview)
	return nil
}
