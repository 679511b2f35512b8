package main

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/propflow/propflow/internal/backtest"
	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/engine"
	"github.com/propflow/propflow/internal/service"
)

func backtestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest <truth.csv>",
		Short: "Compare engine output against historical labels",
		Long: `Run the rule engine over stored transactions and compare the result
month by month against a historically labeled ground truth file.

Nothing is written to the label ledger; this is a read-only evaluation.`,
		Args: cobra.ExactArgs(1),
		RunE: runBacktest,
	}

	cmd.Flags().Int("confusions", 10, "number of worst category confusions to report")

	return cmd
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	confusionLimit, _ := cmd.Flags().GetInt("confusions")

	truth, err := backtest.LoadGroundTruth(args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not read ground truth from %s", args[0]), err)
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

	transactions, err := store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	perf, err := store.GetRulePerformance(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rule performance: %w", err)
	}

	labels, err := engine.ClassifyBatch(ctx, eng, resolver, transactions, perf, engine.BatchOptions{})
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	predictions := make([]backtest.Prediction, 0, len(labels))
	predicted := make(map[string]int, len(labels))
	for i := range labels {
		predicted[labels[i].TransactionID] = i
	}
	for _, txn := range transactions {
		if i, ok := predicted[txn.ID]; ok {
			predictions = append(predictions, backtest.Prediction{Transaction: txn, Label: labels[i]})
		}
	}

	byMonth := backtest.GroupByMonth(truth)
	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	monthly := make([]*backtest.Metrics, 0, len(months))
	for _, month := range months {
		metrics := backtest.Compare(month, byMonth[month], predictions)
		monthly = append(monthly, metrics)
		slog.Info("Month scored",
			"month", month,
			"truth_rows", metrics.TruthRows,
			"matched", metrics.MatchedRows,
			"category_accuracy", fmt.Sprintf("%.3f", metrics.CategoryAccuracy()),
			"critical_accuracy", fmt.Sprintf("%.3f", metrics.CriticalAccuracy()),
			"property_accuracy", fmt.Sprintf("%.3f", metrics.PropertyAccuracy()),
			"financial_impact", fmt.Sprintf("%.2f", metrics.FinancialImpact))
	}

	summary := backtest.Summarize(monthly)
	slog.Info("Backtest summary",
		"months", summary.Months,
		"row_match_rate", fmt.Sprintf("%.3f", summary.MeanRowMatchRate),
		"category_accuracy", fmt.Sprintf("%.3f", summary.MeanCategoryAccuracy),
		"subcategory_accuracy", fmt.Sprintf("%.3f", summary.MeanSubcategoryAccuracy),
		"property_accuracy", fmt.Sprintf("%.3f", summary.MeanPropertyAccuracy),
		"critical_accuracy", fmt.Sprintf("%.3f", summary.MeanCriticalAccuracy),
		"full_accuracy", fmt.Sprintf("%.3f", summary.MeanFullAccuracy),
		"financial_impact", fmt.Sprintf("%.2f", summary.TotalFinancialImpact))

	for _, confusion := range backtest.WorstConfusions(monthly, confusionLimit) {
		slog.Info("Category confusion",
			"truth", confusion.Truth,
			"predicted", confusion.Predicted,
			"count", confusion.Count)
	}

	return nil
}
