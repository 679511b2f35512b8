package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}

	cmd.AddCommand(rulesImportCmd())
	cmd.AddCommand(rulesListCmd())

	return cmd
}

func rulesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <rules.yaml>",
		Short: "Import rules from a YAML file",
		Long: `Load rules from a YAML file, validate them, and upsert them into the
database. The whole file is rejected if any rule fails to compile.`,
		Args: cobra.ExactArgs(1),
		RunE: runRulesImport,
	}
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	specs, err := rules.LoadFile(args[0])
	if err != nil {
		return common.NewUserError(fmt.Sprintf("could not read rules from %s", args[0]), err)
	}
	if _, err := rules.CompileAll(specs); err != nil {
		return common.NewUserError("rules failed validation", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveRuleSpecs(ctx, specs); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}

	slog.Info("Rules imported", "file", args[0], "rules", len(specs))
	return nil
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored rules in evaluation order",
		RunE:  runRulesList,
	}
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	specs, err := store.GetRuleSpecs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	if len(specs) == 0 {
		slog.Info("No rules stored; run 'propflow seed' or 'propflow rules import'")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tORDER\tID\tSTRENGTH\tENABLED\tPATTERN")
	for _, spec := range specs {
		pattern := spec.Pattern
		if spec.Sentinel != "" {
			pattern = "<" + spec.Sentinel + ">"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%t\t%s\n",
			spec.Phase, spec.OrderIndex, spec.ID, spec.Strength, spec.Enabled, pattern)
	}
	return w.Flush()
}
