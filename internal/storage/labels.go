package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/service"
)

const labelColumns = `transaction_id, version, property_code, category, subcategory,
	description, confidence, rule_id, rule_strength, needs_review, reviewed,
	source, created_at`

// AppendLabel writes a new label version for a transaction. Versions are
// allocated as max+1 inside a transaction; a concurrent writer racing for the
// same version trips the primary key and the whole operation is retried.
// On success the allocated version is stored back into label.Version and
// returned.
func (s *SQLiteStorage) AppendLabel(ctx context.Context, label *model.Label) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateLabel(label); err != nil {
		return 0, err
	}

	var version int
	err := common.WithRetry(ctx, func() error {
		v, appendErr := s.appendLabelOnce(ctx, label)
		if appendErr != nil {
			return appendErr
		}
		version = v
		return nil
	}, service.RetryOptions{})
	if err != nil {
		return 0, err
	}

	label.Version = version
	return version, nil
}

func (s *SQLiteStorage) appendLabelOnce(ctx context.Context, label *model.Label) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE id = ?`, label.TransactionID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check transaction: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("transaction %s: %w", label.TransactionID, common.ErrNotFound)
	}

	var version int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM labels WHERE transaction_id = ?`,
		label.TransactionID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate label version: %w", err)
	}

	var ruleStrength *string
	if label.RuleStrength != nil {
		v := string(*label.RuleStrength)
		ruleStrength = &v
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO labels (
			transaction_id, version, property_code, category, subcategory,
			description, confidence, rule_id, rule_strength, needs_review,
			reviewed, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		label.TransactionID,
		version,
		label.PropertyCode,
		label.Category,
		label.Subcategory,
		label.Description,
		label.Confidence,
		label.RuleID,
		ruleStrength,
		label.NeedsReview,
		label.Reviewed,
		string(label.Source),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, &common.RetryableError{
				Err:       fmt.Errorf("label version %d for %s: %w", version, label.TransactionID, common.ErrVersionConflict),
				Retryable: true,
			}
		}
		return 0, fmt.Errorf("failed to insert label: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit label: %w", err)
	}
	return version, nil
}

// LatestLabels returns the highest-version label per transaction. A nil or
// empty id slice returns the latest label for every labeled transaction.
func (s *SQLiteStorage) LatestLabels(ctx context.Context, transactionIDs []string) (map[string]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM labels l
		WHERE l.version = (
			SELECT MAX(version) FROM labels WHERE transaction_id = l.transaction_id
		)
	`, labelColumns)

	var args []any
	if len(transactionIDs) > 0 {
		placeholders := make([]string, len(transactionIDs))
		for i, id := range transactionIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND l.transaction_id IN (%s)", strings.Join(placeholders, ", "))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := make(map[string]model.Label)
	for rows.Next() {
		label, scanErr := scanLabel(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan label: %w", scanErr)
		}
		latest[label.TransactionID] = *label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate labels: %w", err)
	}
	return latest, nil
}

// LabelHistory returns every label version for a transaction in ascending
// version order.
func (s *SQLiteStorage) LabelHistory(ctx context.Context, transactionID string) ([]model.Label, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM labels
		WHERE transaction_id = ?
		ORDER BY version
	`, labelColumns), transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query label history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.Label
	for rows.Next() {
		label, scanErr := scanLabel(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan label: %w", scanErr)
		}
		history = append(history, *label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate label history: %w", err)
	}
	return history, nil
}

func scanLabel(row rowScanner) (*model.Label, error) {
	var label model.Label
	var propertyCode, category, subcategory, description sql.NullString
	var ruleID, ruleStrength, source sql.NullString
	err := row.Scan(
		&label.TransactionID,
		&label.Version,
		&propertyCode,
		&category,
		&subcategory,
		&description,
		&label.Confidence,
		&ruleID,
		&ruleStrength,
		&label.NeedsReview,
		&label.Reviewed,
		&source,
		&label.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	label.PropertyCode = propertyCode.String
	label.Category = category.String
	label.Subcategory = subcategory.String
	label.Description = description.String
	label.Source = model.LabelSource(source.String)
	if ruleID.Valid {
		id := ruleID.String
		label.RuleID = &id
	}
	if ruleStrength.Valid {
		strength := model.Strength(ruleStrength.String)
		label.RuleStrength = &strength
	}
	return &label, nil
}
