package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/rules"
)

// SaveRuleSpecs upserts rule specifications. Existing rules with the same id
// are replaced in full; the updated_at trigger records the change.
func (s *SQLiteStorage) SaveRuleSpecs(ctx context.Context, specs []rules.Spec) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(specs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rules (id, phase, order_index, kind, pattern, sentinel,
			strength, apply_when, outputs, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			order_index = excluded.order_index,
			kind = excluded.kind,
			pattern = excluded.pattern,
			sentinel = excluded.sentinel,
			strength = excluded.strength,
			apply_when = excluded.apply_when,
			outputs = excluded.outputs,
			enabled = excluded.enabled
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rule upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, spec := range specs {
		if err := validateString(spec.ID, "rule id"); err != nil {
			return err
		}
		applyWhen, marshalErr := json.Marshal(spec.ApplyWhen)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal apply_when for rule %s: %w", spec.ID, marshalErr)
		}
		outputs, marshalErr := json.Marshal(spec.Outputs)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal outputs for rule %s: %w", spec.ID, marshalErr)
		}
		_, execErr := stmt.ExecContext(ctx,
			spec.ID,
			spec.Phase,
			spec.OrderIndex,
			spec.Kind,
			spec.Pattern,
			spec.Sentinel,
			spec.Strength,
			string(applyWhen),
			string(outputs),
			spec.Enabled,
		)
		if execErr != nil {
			return fmt.Errorf("failed to save rule %s: %w", spec.ID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rules: %w", err)
	}
	return nil
}

// GetRuleSpecs returns all stored rules ordered by phase then order_index.
// Failures wrap common.ErrRuleLoad so callers can tell a broken rule store
// apart from an empty one.
func (s *SQLiteStorage) GetRuleSpecs(ctx context.Context) ([]rules.Spec, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	specs, err := s.queryRuleSpecs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRuleLoad, err)
	}
	return specs, nil
}

func (s *SQLiteStorage) queryRuleSpecs(ctx context.Context) ([]rules.Spec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phase, order_index, kind, pattern, sentinel, strength,
			apply_when, outputs, enabled
		FROM rules
		ORDER BY phase, order_index, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var specs []rules.Spec
	for rows.Next() {
		var spec rules.Spec
		var pattern, sentinel sql.NullString
		var applyWhen, outputs string
		err := rows.Scan(
			&spec.ID,
			&spec.Phase,
			&spec.OrderIndex,
			&spec.Kind,
			&pattern,
			&sentinel,
			&spec.Strength,
			&applyWhen,
			&outputs,
			&spec.Enabled,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		spec.Pattern = pattern.String
		spec.Sentinel = sentinel.String
		if applyWhen != "" {
			if err := json.Unmarshal([]byte(applyWhen), &spec.ApplyWhen); err != nil {
				return nil, fmt.Errorf("failed to unmarshal apply_when for rule %s: %w", spec.ID, err)
			}
		}
		if outputs != "" {
			if err := json.Unmarshal([]byte(outputs), &spec.Outputs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal outputs for rule %s: %w", spec.ID, err)
			}
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return specs, nil
}
