package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					import_batch_id TEXT NOT NULL,
					source_bank TEXT NOT NULL,
					source_account TEXT NOT NULL,
					date DATETIME NOT NULL,
					amount REAL NOT NULL,
					currency TEXT NOT NULL DEFAULT 'GBP',
					counterparty TEXT,
					reference TEXT,
					memo TEXT,
					type TEXT,
					effective_subcategory TEXT,
					match_text TEXT,
					description TEXT,
					superseded INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_batch ON transactions(import_batch_id)`,

				`CREATE TABLE IF NOT EXISTS labels (
					transaction_id TEXT NOT NULL,
					version INTEGER NOT NULL,
					property_code TEXT,
					category TEXT,
					subcategory TEXT,
					description TEXT,
					confidence REAL,
					rule_id TEXT,
					rule_strength TEXT,
					needs_review INTEGER NOT NULL DEFAULT 0,
					reviewed INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL DEFAULT 'rule',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (transaction_id, version),
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id TEXT PRIMARY KEY,
					phase TEXT NOT NULL,
					order_index INTEGER NOT NULL,
					kind TEXT NOT NULL DEFAULT 'regex',
					pattern TEXT,
					sentinel TEXT,
					strength TEXT NOT NULL DEFAULT 'medium',
					apply_when TEXT,
					outputs TEXT NOT NULL,
					enabled INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS rule_performance (
					rule_id TEXT PRIMARY KEY,
					match_count INTEGER NOT NULL DEFAULT 0,
					acc_category REAL,
					acc_subcategory REAL,
					acc_property REAL,
					computed_at DATETIME,
					FOREIGN KEY (rule_id) REFERENCES rules(id)
				)`,

				`CREATE TABLE IF NOT EXISTS properties (
					code TEXT PRIMARY KEY,
					address TEXT,
					block TEXT,
					freehold_entity TEXT
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Indexes for label and rule lookups",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE INDEX IF NOT EXISTS idx_labels_transaction_id ON labels(transaction_id)`,
				`CREATE INDEX IF NOT EXISTS idx_labels_needs_review ON labels(needs_review)`,
				`CREATE INDEX IF NOT EXISTS idx_rules_phase_order ON rules(phase, order_index)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Track rule updates",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TRIGGER IF NOT EXISTS update_rules_updated_at
				AFTER UPDATE ON rules
				FOR EACH ROW
				BEGIN
					UPDATE rules SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
				END
			`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
