package backtest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propflow/propflow/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func prediction(id string, d int, amount float64, memo, category, subcategory, propertyCode string) Prediction {
	return Prediction{
		Transaction: model.Transaction{
			ID:            id,
			Date:          day(d),
			SourceAccount: "current",
			Amount:        amount,
			Memo:          memo,
		},
		Label: model.Label{
			TransactionID: id,
			Category:      category,
			Subcategory:   subcategory,
			PropertyCode:  propertyCode,
		},
	}
}

func truthRow(d int, amount float64, memo, category, subcategory, propertyCode string) TruthRow {
	return TruthRow{
		Date:         day(d),
		Account:      "current",
		Amount:       amount,
		Memo:         memo,
		Category:     category,
		Subcategory:  subcategory,
		PropertyCode: propertyCode,
	}
}

func TestCompare_ScoresMatchedRows(t *testing.T) {
	truth := []TruthRow{
		truthRow(1, -642.10, "MORTGAGE DD", "Mortgage", "", "F1321LON"),
		truthRow(2, -42.50, "TESCO", "PersonalExpense", "Groceries", ""),
		truthRow(3, -9.99, "NETFLIX", "PersonalExpense", "Streaming", ""),
	}
	predictions := []Prediction{
		prediction("t1", 1, -642.10, "MORTGAGE DD", "Mortgage", "", "F1321LON"),
		prediction("t2", 2, -42.50, "TESCO", "PersonalExpense", "Groceries", ""),
		prediction("t3", 3, -9.99, "NETFLIX", "OtherExpense", "", ""),
	}

	metrics := Compare("2024-03", truth, predictions)

	assert.Equal(t, 3, metrics.TruthRows)
	assert.Equal(t, 3, metrics.MatchedRows)
	assert.InDelta(t, 1.0, metrics.RowMatchRate(), 1e-9)

	assert.InDelta(t, 2.0/3.0, metrics.CategoryAccuracy(), 1e-9)
	// The NETFLIX row predicts no subcategory where truth has one.
	assert.Equal(t, 2, metrics.SubcategoryCorrect)
	assert.InDelta(t, 2.0/3.0, metrics.SubcategoryAccuracy(), 1e-9)

	// Only the mortgage row requires a property code.
	assert.Equal(t, 1, metrics.PropertyTotal)
	assert.InDelta(t, 1.0, metrics.PropertyAccuracy(), 1e-9)
	assert.Equal(t, 1, metrics.CriticalTotal)
	assert.InDelta(t, 1.0, metrics.CriticalAccuracy(), 1e-9)

	assert.Equal(t, 2, metrics.FullCorrect)
	assert.InDelta(t, 9.99, metrics.FinancialImpact, 1e-9)

	require.Len(t, metrics.Mismatches, 1)
	assert.Equal(t, "PersonalExpense", metrics.Mismatches[0].TruthCategory)
	assert.Equal(t, "OtherExpense", metrics.Mismatches[0].PredictedCategory)

	assert.Equal(t, 1, metrics.Confusion["PersonalExpense"]["OtherExpense"])
	assert.Equal(t, 1, metrics.Confusion["Mortgage"]["Mortgage"])
}

func TestCompare_SpuriousFieldsAreFullLabelMisses(t *testing.T) {
	// Truth carries neither a subcategory nor a property code; a prediction
	// that invents them must not count as a full-label hit.
	truth := []TruthRow{
		truthRow(1, -15.00, "CARD PAYMENT", "OtherExpense", "", ""),
	}
	predictions := []Prediction{
		prediction("t1", 1, -15.00, "CARD PAYMENT", "OtherExpense", "Tesco", "F1321LON"),
	}

	metrics := Compare("2024-03", truth, predictions)
	assert.Equal(t, 1, metrics.MatchedRows)
	assert.InDelta(t, 1.0, metrics.CategoryAccuracy(), 1e-9)
	assert.Equal(t, 0, metrics.SubcategoryCorrect)
	assert.InDelta(t, 0.0, metrics.SubcategoryAccuracy(), 1e-9)
	assert.Equal(t, 0, metrics.FullCorrect)
	assert.InDelta(t, 0.0, metrics.FullAccuracy(), 1e-9)
}

func TestCompare_GreedyMatchingConsumesDuplicates(t *testing.T) {
	// Two identical truth rows, one prediction: only one can match.
	truth := []TruthRow{
		truthRow(1, -5.00, "COFFEE", "PersonalExpense", "", ""),
		truthRow(1, -5.00, "COFFEE", "PersonalExpense", "", ""),
	}
	predictions := []Prediction{
		prediction("t1", 1, -5.00, "COFFEE", "PersonalExpense", "", ""),
	}

	metrics := Compare("2024-03", truth, predictions)
	assert.Equal(t, 2, metrics.TruthRows)
	assert.Equal(t, 1, metrics.MatchedRows)
	assert.InDelta(t, 0.5, metrics.RowMatchRate(), 1e-9)

	// Two identical predictions both get claimed in order.
	predictions = append(predictions, prediction("t2", 1, -5.00, "COFFEE", "OtherExpense", "", ""))
	metrics = Compare("2024-03", truth, predictions)
	assert.Equal(t, 2, metrics.MatchedRows)
	assert.Equal(t, 1, metrics.CategoryCorrect, "first truth row claims the first prediction")
}

func TestCompare_UnmatchedRowsExcludedFromAccuracy(t *testing.T) {
	truth := []TruthRow{
		truthRow(1, -10.00, "KNOWN", "PersonalExpense", "", ""),
		truthRow(2, -20.00, "MISSING", "PersonalExpense", "", ""),
	}
	predictions := []Prediction{
		prediction("t1", 1, -10.00, "KNOWN", "PersonalExpense", "", ""),
	}

	metrics := Compare("2024-03", truth, predictions)
	assert.Equal(t, 1, metrics.MatchedRows)
	assert.Equal(t, 1, metrics.CategoryTotal)
	assert.InDelta(t, 1.0, metrics.CategoryAccuracy(), 1e-9)
}

func TestCompare_AmountRoundingInJoin(t *testing.T) {
	truth := []TruthRow{truthRow(1, -10.001, "MEMO", "PersonalExpense", "", "")}
	predictions := []Prediction{prediction("t1", 1, -10.0009, "MEMO", "PersonalExpense", "", "")}

	metrics := Compare("2024-03", truth, predictions)
	assert.Equal(t, 1, metrics.MatchedRows, "amounts join at two decimal places")
}

func TestCompare_Empty(t *testing.T) {
	metrics := Compare("2024-03", nil, nil)
	assert.Equal(t, 0, metrics.TruthRows)
	assert.InDelta(t, 0.0, metrics.RowMatchRate(), 1e-9)
	assert.InDelta(t, 0.0, metrics.CategoryAccuracy(), 1e-9)
}

func TestMatchTruth(t *testing.T) {
	truth := []TruthRow{
		truthRow(1, -10.00, "ALPHA", "PersonalExpense", "", ""),
		truthRow(2, -20.00, "BETA", "PersonalExpense", "", ""),
	}
	transactions := []model.Transaction{
		{ID: "t-alpha", Date: day(1), SourceAccount: "current", Amount: -10.00, Memo: "ALPHA"},
		{ID: "t-gamma", Date: day(3), SourceAccount: "current", Amount: -30.00, Memo: "GAMMA"},
	}

	matched := MatchTruth(truth, transactions)
	require.Len(t, matched, 2)
	assert.Equal(t, "t-alpha", matched[0])
	assert.Empty(t, matched[1])
}

func TestSummarize(t *testing.T) {
	march := Compare("2024-03", []TruthRow{
		truthRow(1, -642.10, "MORTGAGE", "Mortgage", "", "F1321LON"),
		truthRow(2, -42.50, "TESCO", "PersonalExpense", "", ""),
	}, []Prediction{
		prediction("m1", 1, -642.10, "MORTGAGE", "Mortgage", "", "F1321LON"),
		prediction("m2", 2, -42.50, "TESCO", "OtherExpense", "", ""),
	})
	// April has no critical rows; its absence must not dilute the
	// critical mean.
	april := Compare("2024-04", []TruthRow{
		truthRow(5, -9.99, "NETFLIX", "PersonalExpense", "", ""),
	}, []Prediction{
		prediction("a1", 5, -9.99, "NETFLIX", "PersonalExpense", "", ""),
	})
	april.Period = "2024-04"

	summary := Summarize([]*Metrics{march, april})
	assert.Equal(t, 2, summary.Months)
	assert.Equal(t, 3, summary.TotalTruthRows)
	assert.InDelta(t, 1.0, summary.MeanRowMatchRate, 1e-9)
	assert.InDelta(t, 0.75, summary.MeanCategoryAccuracy, 1e-9)
	assert.InDelta(t, 1.0, summary.MeanCriticalAccuracy, 1e-9, "critical mean only over months with critical rows")
	assert.InDelta(t, 42.50, summary.TotalFinancialImpact, 1e-9)
}

func TestWorstConfusions(t *testing.T) {
	metrics := Compare("2024-03", []TruthRow{
		truthRow(1, -1, "A1", "PersonalExpense", "", ""),
		truthRow(2, -1, "A2", "PersonalExpense", "", ""),
		truthRow(3, -1, "B1", "ServiceCharge", "", ""),
	}, []Prediction{
		prediction("p1", 1, -1, "A1", "OtherExpense", "", ""),
		prediction("p2", 2, -1, "A2", "OtherExpense", "", ""),
		prediction("p3", 3, -1, "B1", "PropertyExpense", "", ""),
	})

	confusions := WorstConfusions([]*Metrics{metrics}, 10)
	require.Len(t, confusions, 2)
	assert.Equal(t, Confusion{Truth: "PersonalExpense", Predicted: "OtherExpense", Count: 2}, confusions[0])

	capped := WorstConfusions([]*Metrics{metrics}, 1)
	assert.Len(t, capped, 1)
}

func TestReadGroundTruth(t *testing.T) {
	csv := `date,account,amount,memo,category,subcategory,property_code
2024-03-01,current,-642.10,MORTGAGE DD,Mortgage,,F1321LON
2024-03-02,current,-42.50,TESCO,PersonalExpense,Groceries,
`
	rows, err := ReadGroundTruth(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Mortgage", rows[0].Category)
	assert.Equal(t, "F1321LON", rows[0].PropertyCode)
	assert.InDelta(t, -642.10, rows[0].Amount, 1e-9)
	assert.Equal(t, "Groceries", rows[1].Subcategory)
}

func TestReadGroundTruth_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "empty", csv: ""},
		{name: "header only", csv: "date,account,amount,memo,category\n"},
		{name: "missing column", csv: "date,account,amount\n2024-03-01,current,-1\n"},
		{name: "bad date", csv: "date,account,amount,memo,category\nyesterday,current,-1,x,C\n"},
		{name: "bad amount", csv: "date,account,amount,memo,category\n2024-03-01,current,lots,x,C\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGroundTruth(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func TestGroupByMonth(t *testing.T) {
	rows := []TruthRow{
		truthRow(1, -1, "A", "X", "", ""),
		truthRow(31, -1, "B", "X", "", ""),
		{Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Account: "current", Amount: -1, Memo: "C", Category: "X"},
	}

	grouped := GroupByMonth(rows)
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped["2024-03"], 2)
	assert.Len(t, grouped["2024-04"], 1)
}
