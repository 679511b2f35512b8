package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/ingest"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import canonical transactions from a CSV file",
		Long: `Import canonical transaction rows into the database.

Rows are identified deterministically from their content, so importing
the same file twice is a no-op. Genuine duplicates within one file
(same day, amount and memo) are kept apart.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	batchID := uuid.New().String()
	transactions, err := ingest.LoadTransactions(args[0], batchID)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not read transactions from %s", args[0]), err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	inserted, err := store.SaveTransactions(ctx, transactions)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	slog.Info("Import complete",
		"batch", batchID,
		"read", len(transactions),
		"inserted", inserted,
		"already_present", len(transactions)-inserted)
	return nil
}
