// Package backtest compares engine predictions against historical ground
// truth and reports per-month accuracy.
package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/propflow/propflow/internal/model"
)

// Categories where a wrong prediction moves money between accounting
// buckets that matter, so they are scored separately.
var criticalCategories = map[string]bool{
	"Mortgage":        true,
	"OurRent":         true,
	"BealsRent":       true,
	"PropertyExpense": true,
	"ServiceCharge":   true,
}

// Categories whose rows must carry a property code to be useful.
var propertyRequired = map[string]bool{
	"Mortgage":        true,
	"OurRent":         true,
	"BealsRent":       true,
	"PropertyExpense": true,
}

// TruthRow is one historically labeled transaction.
type TruthRow struct {
	Date         time.Time
	Account      string
	Memo         string
	Category     string
	Subcategory  string
	PropertyCode string
	Amount       float64
}

// Prediction pairs a transaction with the label the engine produced for it.
type Prediction struct {
	Transaction model.Transaction
	Label       model.Label
}

// Mismatch records one matched row where prediction and truth disagree on
// category.
type Mismatch struct {
	Date              time.Time
	Memo              string
	TruthCategory     string
	PredictedCategory string
	Amount            float64
}

// Metrics holds the comparison result for one run (typically one month).
type Metrics struct {
	Period string

	TruthRows     int
	PredictedRows int
	MatchedRows   int

	CategoryCorrect    int
	CategoryTotal      int
	SubcategoryCorrect int
	PropertyCorrect    int
	PropertyTotal      int
	CriticalCorrect    int
	CriticalTotal      int
	FullCorrect        int

	// FinancialImpact is the sum of absolute amounts on rows whose
	// predicted category disagrees with truth.
	FinancialImpact float64

	Confusion  map[string]map[string]int
	Mismatches []Mismatch
}

// RowMatchRate is the fraction of truth rows a prediction could be joined to.
func (m *Metrics) RowMatchRate() float64 {
	if m.TruthRows == 0 {
		return 0
	}
	return float64(m.MatchedRows) / float64(m.TruthRows)
}

// CategoryAccuracy over matched rows.
func (m *Metrics) CategoryAccuracy() float64 { return rate(m.CategoryCorrect, m.CategoryTotal) }

// SubcategoryAccuracy over all matched rows. Subcategories are compared
// literally, so a predicted subcategory on a row whose truth has none is a
// miss, and two empty subcategories agree.
func (m *Metrics) SubcategoryAccuracy() float64 {
	return rate(m.SubcategoryCorrect, m.MatchedRows)
}

// PropertyAccuracy over matched rows whose truth category requires a
// property code.
func (m *Metrics) PropertyAccuracy() float64 { return rate(m.PropertyCorrect, m.PropertyTotal) }

// CriticalAccuracy over matched rows whose truth category is critical.
func (m *Metrics) CriticalAccuracy() float64 { return rate(m.CriticalCorrect, m.CriticalTotal) }

// FullAccuracy is the fraction of matched rows where category, subcategory
// and property all agree.
func (m *Metrics) FullAccuracy() float64 { return rate(m.FullCorrect, m.MatchedRows) }

func rate(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// joinKey identifies a row for matching. Two rows with the same key are
// considered the same underlying transaction.
func joinKey(date time.Time, account string, amount float64, memo string) string {
	return fmt.Sprintf("%s|%s|%.2f|%s",
		date.Format("2006-01-02"),
		strings.TrimSpace(account),
		amount,
		strings.TrimSpace(memo))
}

// Compare joins predictions to truth rows and scores them. Matching is
// greedy: each truth row claims the first still-unclaimed prediction with the
// same join key, in input order. Truth rows with no available prediction are
// counted unmatched and excluded from accuracy denominators.
func Compare(period string, truth []TruthRow, predictions []Prediction) *Metrics {
	metrics := &Metrics{
		Period:        period,
		TruthRows:     len(truth),
		PredictedRows: len(predictions),
		Confusion:     make(map[string]map[string]int),
	}

	available := make(map[string][]int, len(predictions))
	for i, p := range predictions {
		key := joinKey(p.Transaction.Date, p.Transaction.SourceAccount, p.Transaction.Amount, p.Transaction.Memo)
		available[key] = append(available[key], i)
	}

	for _, row := range truth {
		key := joinKey(row.Date, row.Account, row.Amount, row.Memo)
		queue := available[key]
		if len(queue) == 0 {
			continue
		}
		prediction := predictions[queue[0]]
		available[key] = queue[1:]
		metrics.MatchedRows++

		scoreRow(metrics, row, prediction)
	}

	return metrics
}

func scoreRow(metrics *Metrics, row TruthRow, prediction Prediction) {
	predicted := prediction.Label

	categoryHit := predicted.Category == row.Category
	metrics.CategoryTotal++
	if categoryHit {
		metrics.CategoryCorrect++
	} else {
		metrics.FinancialImpact += abs(row.Amount)
		metrics.Mismatches = append(metrics.Mismatches, Mismatch{
			Date:              row.Date,
			Memo:              row.Memo,
			TruthCategory:     row.Category,
			PredictedCategory: predicted.Category,
			Amount:            row.Amount,
		})
	}

	if metrics.Confusion[row.Category] == nil {
		metrics.Confusion[row.Category] = make(map[string]int)
	}
	metrics.Confusion[row.Category][predicted.Category]++

	subcategoryHit := predicted.Subcategory == row.Subcategory
	if subcategoryHit {
		metrics.SubcategoryCorrect++
	}

	// Property accuracy is reported only for categories that require a
	// code, but the full-label check still compares codes literally on
	// every row.
	propertyHit := predicted.PropertyCode == row.PropertyCode
	if propertyRequired[row.Category] {
		metrics.PropertyTotal++
		if propertyHit {
			metrics.PropertyCorrect++
		}
	}

	if criticalCategories[row.Category] {
		metrics.CriticalTotal++
		if categoryHit {
			metrics.CriticalCorrect++
		}
	}

	if categoryHit && subcategoryHit && propertyHit {
		metrics.FullCorrect++
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
