package storage

import (
	"context"
	"fmt"

	"github.com/propflow/propflow/internal/model"
)

// ReplaceRulePerformance upserts the given per-rule statistics in a single
// transaction. Rules absent from the slice keep their previous rows, so a
// grading run that saw no matches for a rule leaves its stats untouched.
func (s *SQLiteStorage) ReplaceRulePerformance(ctx context.Context, stats []model.RulePerformance) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(stats) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO rule_performance (
			rule_id, match_count, acc_category, acc_subcategory, acc_property, computed_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare performance upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, stat := range stats {
		if err := validateString(stat.RuleID, "rule id"); err != nil {
			return err
		}
		_, execErr := stmt.ExecContext(ctx,
			stat.RuleID,
			stat.MatchCount,
			stat.AccCategory,
			stat.AccSubcategory,
			stat.AccProperty,
			stat.ComputedAt,
		)
		if execErr != nil {
			return fmt.Errorf("failed to save performance for rule %s: %w", stat.RuleID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule performance: %w", err)
	}
	return nil
}

// GetRulePerformance returns all stored per-rule statistics keyed by rule id.
func (s *SQLiteStorage) GetRulePerformance(ctx context.Context) (map[string]model.RulePerformance, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, match_count, acc_category, acc_subcategory, acc_property, computed_at
		FROM rule_performance
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule performance: %w", err)
	}
	defer func() { _ = rows.Close() }()

	perf := make(map[string]model.RulePerformance)
	for rows.Next() {
		var stat model.RulePerformance
		err := rows.Scan(
			&stat.RuleID,
			&stat.MatchCount,
			&stat.AccCategory,
			&stat.AccSubcategory,
			&stat.AccProperty,
			&stat.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule performance: %w", err)
		}
		perf[stat.RuleID] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rule performance: %w", err)
	}
	return perf, nil
}
