// Package ingest reads canonical transaction rows and review corrections
// from CSV files.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/model"
)

// Required canonical columns. type and effective_subcategory are optional.
var requiredColumns = []string{"date", "source_bank", "source_account", "amount", "counterparty", "reference", "memo"}

// LoadTransactions reads canonical transaction rows from a CSV file.
// Each row gets a deterministic id; rows that would collide within the same
// file are disambiguated by a per-key sequence so that re-importing the same
// file is idempotent but genuine same-day duplicates survive.
func LoadTransactions(path, batchID string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	transactions, err := ReadTransactions(f, batchID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return transactions, nil
}

// ReadTransactions parses canonical transaction CSV from a reader.
func ReadTransactions(r io.Reader, batchID string) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("import: %w", common.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("import missing column %q", required)
		}
	}

	var transactions []model.Transaction
	seen := make(map[string]int)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		date, err := time.Parse("2006-01-02", field("date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", line, err)
		}
		amount, err := strconv.ParseFloat(field("amount"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount: %w", line, err)
		}

		txn := model.Transaction{
			Date:                 date,
			SourceBank:           field("source_bank"),
			SourceAccount:        field("source_account"),
			Amount:               amount,
			Currency:             field("currency"),
			Counterparty:         field("counterparty"),
			Reference:            field("reference"),
			Memo:                 field("memo"),
			Type:                 field("type"),
			EffectiveSubcategory: field("effective_subcategory"),
			ImportBatchID:        batchID,
		}
		if txn.Currency == "" {
			txn.Currency = "GBP"
		}
		txn.MatchText = txn.BuildMatchText()

		// Sequence duplicates within the file so each gets a stable,
		// distinct id.
		base := txn.GenerateID(0)
		seq := seen[base]
		seen[base] = seq + 1
		txn.ID = txn.GenerateID(seq)

		transactions = append(transactions, txn)
	}

	if len(transactions) == 0 {
		return nil, fmt.Errorf("import: %w", common.ErrEmptyInput)
	}
	return transactions, nil
}
