package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/propflow/propflow/internal/common"
)

// Correction is one manually reviewed outcome for a transaction.
type Correction struct {
	TransactionID string
	PropertyCode  string
	Category      string
	Subcategory   string
	Description   string
}

// LoadCorrections reads review corrections from a CSV file with columns
// transaction_id, property_code, category, subcategory and optionally
// description.
func LoadCorrections(path string) ([]Correction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open review file: %w", err)
	}
	defer func() { _ = f.Close() }()

	corrections, err := ReadCorrections(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return corrections, nil
}

// ReadCorrections parses review corrections from a reader.
func ReadCorrections(r io.Reader) ([]Correction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("review: %w", common.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["transaction_id"]; !ok {
		return nil, fmt.Errorf("review missing column %q", "transaction_id")
	}
	if _, ok := index["category"]; !ok {
		return nil, fmt.Errorf("review missing column %q", "category")
	}

	var corrections []Correction
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

		correction := Correction{
			TransactionID: field("transaction_id"),
			PropertyCode:  field("property_code"),
			Category:      field("category"),
			Subcategory:   field("subcategory"),
			Description:   field("description"),
		}
		if correction.TransactionID == "" {
			return nil, fmt.Errorf("line %d: empty transaction_id", line)
		}
		if correction.Category == "" {
			return nil, fmt.Errorf("line %d: empty category", line)
		}
		corrections = append(corrections, correction)
	}

	if len(corrections) == 0 {
		return nil, fmt.Errorf("review: %w", common.ErrEmptyInput)
	}
	return corrections, nil
}
