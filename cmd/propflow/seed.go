package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/rules"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in rule set and property catalog",
		Long: `Install the built-in classification rules and property catalog.

Existing rules and properties with the same ids are replaced; anything
else already in the database is left alone.`,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	specs := rules.SeedSpecs()
	if _, err := rules.CompileAll(specs); err != nil {
		return fmt.Errorf("seed rules failed validation: %w", err)
	}
	if err := store.SaveRuleSpecs(ctx, specs); err != nil {
		return fmt.Errorf("failed to save seed rules: %w", err)
	}

	properties := rules.SeedProperties()
	if err := store.SaveProperties(ctx, properties); err != nil {
		return fmt.Errorf("failed to save property catalog: %w", err)
	}

	common.LogInfo("Seed data installed", common.Fields{
		"rules":      len(specs),
		"properties": len(properties),
	})
	return nil
}
