package main

import (
	"context"
	"fmt"
	"time"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/config"
	"github.com/propflow/propflow/internal/engine"
	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/rules"
	"github.com/propflow/propflow/internal/service"
	"github.com/propflow/propflow/internal/storage"
)

// initStorage opens the database from config and runs migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadEngine compiles the stored rule set and property catalog into a
// classification engine plus its confidence resolver.
func loadEngine(ctx context.Context, store service.Storage) (*engine.Engine, *engine.Resolver, error) {
	specs, err := store.GetRuleSpecs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}
	compiled, err := rules.CompileAll(specs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", common.ErrRuleLoad, err)
	}

	properties, err := store.GetProperties(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load properties: %w", err)
	}

	resolverCfg, err := config.ResolverConfig()
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(rules.NewSnapshot(compiled), model.NewPropertySet(properties))
	return eng, engine.NewResolver(resolverCfg), nil
}

// parsePeriod interprets a --month flag as a [start, end] date range. An
// empty value means no bound.
func parsePeriod(month string) (start, end *time.Time, err error) {
	if month == "" {
		return nil, nil, nil
	}
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid month %q (want YYYY-MM): %w", month, err)
	}
	last := first.AddDate(0, 1, -1)
	return &first, &last, nil
}
