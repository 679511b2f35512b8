package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/ingest"
	"github.com/propflow/propflow/internal/model"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <corrections.csv>",
		Short: "Apply manual corrections as new label versions",
		Long: `Apply reviewed outcomes from a corrections CSV.

Each correction appends a new label version with full confidence and the
review flag cleared; the corrected prediction stays in the history.`,
		Args: cobra.ExactArgs(1),
		RunE: runReview,
	}
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	corrections, err := ingest.LoadCorrections(args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not read corrections from %s", args[0]), err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	applied := 0
	for _, correction := range corrections {
		label := model.Label{
			TransactionID: correction.TransactionID,
			PropertyCode:  correction.PropertyCode,
			Category:      correction.Category,
			Subcategory:   correction.Subcategory,
			Description:   correction.Description,
			Source:        model.SourceManual,
			Confidence:    1.0,
			NeedsReview:   false,
			Reviewed:      true,
		}
		if _, err := store.AppendLabel(ctx, &label); err != nil {
			return fmt.Errorf("failed to apply correction for %s: %w", correction.TransactionID, err)
		}
		applied++
	}

	slog.Info("Review corrections applied", "corrections", applied)
	return nil
}
