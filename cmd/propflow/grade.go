package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/propflow/propflow/internal/backtest"
	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/grader"
	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/service"
)

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Recompute rule accuracy from confirmed labels",
		Long: `Replay the rule engine over transactions with confirmed labels and
rebuild per-rule accuracy statistics. These statistics feed into the
confidence score of future classification runs.

With --truth, historically labeled rows are first matched to stored
transactions and written as confirmed labels.`,
		RunE: runGrade,
	}

	cmd.Flags().String("truth", "", "ground truth CSV to load as confirmed labels before grading")

	return cmd
}

func runGrade(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	truthPath, _ := cmd.Flags().GetString("truth")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if truthPath != "" {
		if err := loadTruthLabels(cmd, store, truthPath); err != nil {
			return err
		}
	}

	eng, resolver, err := loadEngine(ctx, store)
	if err != nil {
		return err
	}

	report, err := grader.New(store, eng, resolver, slog.Default()).Grade(ctx)
	if err != nil {
		return fmt.Errorf("grading failed: %w", err)
	}

	slog.Info("Grading finished",
		"rules", report.RulesGraded,
		"transactions", report.TransactionsGraded,
		"skipped_unconfirmed", report.SkippedUnconfirmed)
	return nil
}

func loadTruthLabels(cmd *cobra.Command, store service.Storage, path string) error {
	ctx := cmd.Context()

	truth, err := backtest.LoadGroundTruth(path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not read ground truth from %s", path), err)
	}

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	matched := backtest.MatchTruth(truth, transactions)
	applied, unmatched := 0, 0
	for i, row := range truth {
		if matched[i] == "" {
			unmatched++
			continue
		}
		label := model.Label{
			TransactionID: matched[i],
			PropertyCode:  row.PropertyCode,
			Category:      row.Category,
			Subcategory:   row.Subcategory,
			Source:        model.SourceManual,
			Confidence:    1.0,
			Reviewed:      true,
		}
		if _, err := store.AppendLabel(ctx, &label); err != nil {
			return fmt.Errorf("failed to record confirmed label for %s: %w", matched[i], err)
		}
		applied++
	}

	slog.Info("Ground truth loaded", "rows", len(truth), "applied", applied, "unmatched", unmatched)
	return nil
}
