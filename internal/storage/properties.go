package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/propflow/propflow/internal/model"
)

// SaveProperties upserts catalog entries keyed by property code.
func (s *SQLiteStorage) SaveProperties(ctx context.Context, properties []model.Property) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(properties) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO properties (code, address, block, freehold_entity)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			address = excluded.address,
			block = excluded.block,
			freehold_entity = excluded.freehold_entity
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare property upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, property := range properties {
		if err := validateString(property.Code, "property code"); err != nil {
			return err
		}
		if _, execErr := stmt.ExecContext(ctx,
			property.Code, property.Address, property.Block, property.FreeholdEntity,
		); execErr != nil {
			return fmt.Errorf("failed to save property %s: %w", property.Code, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit properties: %w", err)
	}
	return nil
}

// GetProperties returns the full catalog ordered by code.
func (s *SQLiteStorage) GetProperties(ctx context.Context) ([]model.Property, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, address, block, freehold_entity
		FROM properties
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var properties []model.Property
	for rows.Next() {
		var property model.Property
		var address, block, freehold sql.NullString
		if err := rows.Scan(&property.Code, &address, &block, &freehold); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		property.Address = address.String
		property.Block = block.String
		property.FreeholdEntity = freehold.String
		properties = append(properties, property)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}
	return properties, nil
}
