package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/rules"
)

func buildEngine(t *testing.T, specs []rules.Spec, propertyCodes ...string) *Engine {
	t.Helper()
	compiled, err := rules.CompileAll(specs)
	require.NoError(t, err)

	properties := make([]model.Property, len(propertyCodes))
	for i, code := range propertyCodes {
		properties[i] = model.Property{Code: code}
	}
	return New(rules.NewSnapshot(compiled), model.NewPropertySet(properties))
}

func testSpecs() []rules.Spec {
	return []rules.Spec{
		{
			ID: "prop_mortgage_express", Phase: "property", OrderIndex: 10, Enabled: true,
			Pattern: `MORTGAGE EXPRESS\s*001872470.*`,
			Outputs: rules.OutputsSpec{PropertyCode: "F1321LON"},
		},
		{
			ID: "prop_bad_code", Phase: "property", OrderIndex: 5, Enabled: true,
			Pattern: `MORTGAGE EXPRESS.*`,
			Outputs: rules.OutputsSpec{PropertyCode: "NOPE"},
		},
		{
			ID: "cat_mortgage", Phase: "category", OrderIndex: 10, Strength: "strong", Enabled: true,
			Pattern: `MORTGAGE EXPRESS|TOPAZ FIN`,
			Outputs: rules.OutputsSpec{Category: "Mortgage", Description: "Mortgage payment"},
		},
		{
			ID: "cat_groceries", Phase: "category", OrderIndex: 20, Strength: "strong", Enabled: true,
			Pattern: `TESCO.*`,
			Outputs: rules.OutputsSpec{Category: "PersonalExpense"},
		},
		{
			ID: "cat_income_catchall", Phase: "category", OrderIndex: 900, Strength: "catch_all", Enabled: true,
			Sentinel: "amount_positive",
			Outputs:  rules.OutputsSpec{Category: "OtherIncome"},
		},
		{
			ID: "cat_expense_catchall", Phase: "category", OrderIndex: 910, Strength: "catch_all", Enabled: true,
			Sentinel: "amount_negative",
			Outputs:  rules.OutputsSpec{Category: "OtherExpense"},
		},
		{
			ID: "subcat_tesco", Phase: "subcategory", OrderIndex: 10, Strength: "strong", Enabled: true,
			Pattern:   `TESCO.*`,
			ApplyWhen: []rules.ConditionSpec{{Field: "category", Regex: `^PersonalExpense$`}},
			Outputs:   rules.OutputsSpec{Subcategory: "Groceries"},
		},
		{
			ID: "override_refund", Phase: "override", OrderIndex: 10, Strength: "strong", Enabled: true,
			Pattern: `TESCO REFUND.*`,
			Outputs: rules.OutputsSpec{Category: "PersonalExpense", Subcategory: "Refund"},
		},
		{
			ID: "override_refund_desc", Phase: "override", OrderIndex: 20, Strength: "strong", Enabled: true,
			Pattern: `TESCO REFUND.*`,
			Outputs: rules.OutputsSpec{Description: "Store refund"},
		},
	}
}

func classifyText(eng *Engine, matchText string, amount float64) (model.LabelDraft, Trace) {
	return eng.Classify(model.Transaction{
		Date:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:    amount,
		MatchText: matchText,
	})
}

func TestClassify_PropertyAndCategory(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")

	draft, trace := classifyText(eng, "MORTGAGE EXPRESS  001872470 DD", -642.10)

	assert.Equal(t, "F1321LON", draft.PropertyCode)
	assert.Equal(t, "Mortgage", draft.Category)
	assert.Equal(t, "Mortgage payment", draft.Description, "category rules may set description")
	assert.Empty(t, draft.Subcategory)

	require.Len(t, trace, 2)
	assert.Equal(t, "prop_mortgage_express", trace[0].Rule.ID)
	assert.Equal(t, model.PhaseProperty, trace[0].Phase)
	assert.Equal(t, "cat_mortgage", trace[1].Rule.ID)
}

func TestClassify_UnknownPropertyCodeSkipsRule(t *testing.T) {
	// prop_bad_code sorts first but outputs a code missing from the
	// catalog, so the later rule still gets its chance.
	eng := buildEngine(t, testSpecs(), "F1321LON")

	draft, _ := classifyText(eng, "MORTGAGE EXPRESS  001872470 DD", -642.10)
	assert.Equal(t, "F1321LON", draft.PropertyCode)
}

func TestClassify_EmptyCatalogDisablesValidation(t *testing.T) {
	eng := buildEngine(t, testSpecs())

	draft, _ := classifyText(eng, "MORTGAGE EXPRESS  001872470 DD", -642.10)
	assert.Equal(t, "NOPE", draft.PropertyCode)
}

func TestClassify_FirstMatchWinsPerPhase(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")

	// The groceries rule matches before the income catch-all would.
	draft, trace := classifyText(eng, "TESCO STORES 3456", -42.50)
	assert.Equal(t, "PersonalExpense", draft.Category)
	assert.Equal(t, "Groceries", draft.Subcategory)
	for _, entry := range trace {
		assert.NotEqual(t, "cat_expense_catchall", entry.Rule.ID)
	}
}

func TestClassify_AmountSignCatchAll(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")

	credit, _ := classifyText(eng, "RANDOM PAYER LTD", 250.00)
	assert.Equal(t, "OtherIncome", credit.Category)

	debit, _ := classifyText(eng, "RANDOM PAYEE LTD", -250.00)
	assert.Equal(t, "OtherExpense", debit.Category)
}

func TestClassify_SubcategoryGatedOnCategory(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")

	draft, _ := classifyText(eng, "TESCO RENT RECEIVED", 500.00)
	assert.Equal(t, "PersonalExpense", draft.Category)
	assert.Equal(t, "Groceries", draft.Subcategory)

	other, _ := classifyText(eng, "AMAZON PRIME", -7.99)
	assert.Equal(t, "OtherExpense", other.Category)
	assert.Empty(t, other.Subcategory, "gate on category blocks the subcategory rule")
}

func TestClassify_OverridesApplyInOrder(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")

	draft, trace := classifyText(eng, "TESCO REFUND 3456", 42.50)

	// Both overrides fire, in order; each only overwrites what it sets.
	assert.Equal(t, "PersonalExpense", draft.Category)
	assert.Equal(t, "Refund", draft.Subcategory)
	assert.Equal(t, "Store refund", draft.Description)

	var overrides []string
	for _, entry := range trace {
		if entry.Phase == model.PhaseOverride {
			overrides = append(overrides, entry.Rule.ID)
		}
	}
	assert.Equal(t, []string{"override_refund", "override_refund_desc"}, overrides)
}

func TestClassify_NoRulesFired(t *testing.T) {
	eng := buildEngine(t, testSpecs()[:1], "F1321LON")

	draft, trace := classifyText(eng, "NOTHING MATCHES THIS", -1.00)
	assert.Empty(t, draft.PropertyCode)
	assert.Empty(t, draft.Category)
	assert.Empty(t, trace)
}

func TestClassify_Idempotent(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")
	txn := model.Transaction{Amount: -42.50, MatchText: "TESCO STORES 3456"}

	first, _ := eng.Classify(txn)
	second, _ := eng.Classify(txn)
	assert.Equal(t, first, second)
}

func TestClassify_PreservesTransactionDescription(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")

	draft, _ := eng.Classify(model.Transaction{
		Amount:      -10,
		MatchText:   "AMAZON PRIME",
		Description: "imported description",
	})
	assert.Equal(t, "imported description", draft.Description)
}
