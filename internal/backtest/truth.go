package backtest

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

// Ground truth CSV columns. Header names are matched case-insensitively;
// subcategory and property_code are optional.
const (
	colDate         = "date"
	colAccount      = "account"
	colAmount       = "amount"
	colMemo         = "memo"
	colCategory     = "category"
	colSubcategory  = "subcategory"
	colPropertyCode = "property_code"
)

// LoadGroundTruth reads historically labeled rows from a CSV file.
func LoadGroundTruth(path string) ([]TruthRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ground truth file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadGroundTruth(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadGroundTruth parses ground truth CSV from a reader.
func ReadGroundTruth(r io.Reader) ([]TruthRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ground truth: %w", common.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colDate, colAccount, colAmount, colMemo, colCategory} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("ground truth missing column %q", required)
		}
	}

	var rows []TruthRow
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

		date, err := time.Parse("2006-01-02", field(colDate))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", line, err)
		}
		amount, err := strconv.ParseFloat(field(colAmount), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount: %w", line, err)
		}

		rows = append(rows, TruthRow{
			Date:         date,
			Account:      field(colAccount),
			Amount:       amount,
			Memo:         field(colMemo),
			Category:     field(colCategory),
			Subcategory:  field(colSubcategory),
			PropertyCode: field(colPropertyCode),
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("ground truth: %w", common.ErrEmptyInput)
	}
	return rows, nil
}

// MatchTruth pairs truth rows with stored transactions using the same
// greedy join as Compare. The result is indexed like truth; unmatched rows
// get an empty id.
func MatchTruth(truth []TruthRow, transactions []model.Transaction) []string {
	available := make(map[string][]int, len(transactions))
	for i, txn := range transactions {
		key := joinKey(txn.Date, txn.SourceAccount, txn.Amount, txn.Memo)
		available[key] = append(available[key], i)
	}

	matched := make([]string, len(truth))
	for i, row := range truth {
		key := joinKey(row.Date, row.Account, row.Amount, row.Memo)
		queue := available[key]
		if len(queue) == 0 {
			continue
		}
		matched[i] = transactions[queue[0]].ID
		available[key] = queue[1:]
	}
	return matched
}

// GroupByMonth splits truth rows into per-month buckets keyed "2006-01",
// preserving input order within each month.
func GroupByMonth(rows []TruthRow) map[string][]TruthRow {
	grouped := make(map[string][]TruthRow)
	for _, row := range rows {
		key := row.Date.Format("2006-01")
		grouped[key] = append(grouped[key], row)
	}
	return grouped
}
