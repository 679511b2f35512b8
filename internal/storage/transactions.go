package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/service"
)

const transactionColumns = `id, import_batch_id, source_bank, source_account, date, amount,
	currency, counterparty, reference, memo, type, effective_subcategory,
	match_text, description, superseded, created_at`

// SaveTransactions stores canonical transactions. Transactions are
// immutable; rows whose id already exists are left untouched. Returns the
// number of newly inserted rows.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, import_batch_id, source_bank, source_account, date, amount,
			currency, counterparty, reference, memo, type,
			effective_subcategory, match_text, description, superseded
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		result, execErr := stmt.ExecContext(ctx,
			txn.ID,
			txn.ImportBatchID,
			txn.SourceBank,
			txn.SourceAccount,
			txn.Date,
			txn.Amount,
			txn.Currency,
			txn.Counterparty,
			txn.Reference,
			txn.Memo,
			txn.Type,
			txn.EffectiveSubcategory,
			txn.MatchText,
			txn.Description,
			txn.Superseded,
		)
		if execErr != nil {
			return 0, fmt.Errorf("failed to save transaction %s: %w", txn.ID, execErr)
		}
		n, _ := result.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

// GetTransactions returns active (non-superseded) transactions matching the
// filter, ordered by date then id.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var conditions []string
	var args []any
	conditions = append(conditions, "superseded = 0")
	if filter.StartDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, *filter.EndDate)
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date, id`,
		transactionColumns, strings.Join(conditions, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// GetTransactionByID fetches a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM transactions WHERE id = ?`, transactionColumns), id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return txn, nil
}

// GetLabeledTransactions returns active transactions that have at least one
// label, for grading against confirmed labels.
func (s *SQLiteStorage) GetLabeledTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM transactions t
		WHERE t.superseded = 0
		  AND EXISTS (SELECT 1 FROM labels l WHERE l.transaction_id = t.id)
		ORDER BY t.date, t.id
	`, transactionColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to query labeled transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var counterparty, reference, memo, txnType, effSubcat, matchText, description sql.NullString
	err := row.Scan(
		&txn.ID,
		&txn.ImportBatchID,
		&txn.SourceBank,
		&txn.SourceAccount,
		&txn.Date,
		&txn.Amount,
		&txn.Currency,
		&counterparty,
		&reference,
		&memo,
		&txnType,
		&effSubcat,
		&matchText,
		&description,
		&txn.Superseded,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Counterparty = counterparty.String
	txn.Reference = reference.String
	txn.Memo = memo.String
	txn.Type = txnType.String
	txn.EffectiveSubcategory = effSubcat.String
	txn.MatchText = matchText.String
	txn.Description = description.String
	return &txn, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}
