package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/propflow/propflow/internal/common"
	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/rules"
)

func TestSaveRuleSpecs_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	minAmount := -200.0
	maxAmount := -190.0
	specs := []rules.Spec{
		{
			ID:         "cat_test_regex",
			Phase:      "category",
			Kind:       "regex",
			Pattern:    `TESCO.*`,
			Strength:   "strong",
			OrderIndex: 10,
			Enabled:    true,
			ApplyWhen: []rules.ConditionSpec{
				{Field: "amount", Min: &minAmount, Max: &maxAmount},
			},
			Outputs: rules.OutputsSpec{Category: "PersonalExpense"},
		},
		{
			ID:         "cat_test_sentinel",
			Phase:      "category",
			Kind:       "sentinel",
			Sentinel:   "amount_positive",
			Strength:   "catch_all",
			OrderIndex: 20,
			Enabled:    true,
			Outputs:    rules.OutputsSpec{Category: "OtherIncome"},
		},
	}

	if err := store.SaveRuleSpecs(ctx, specs); err != nil {
		t.Fatalf("Failed to save rules: %v", err)
	}

	got, err := store.GetRuleSpecs(ctx)
	if err != nil {
		t.Fatalf("Failed to get rules: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Got %d rules, want 2", len(got))
	}

	regex := got[0]
	if regex.ID != "cat_test_regex" {
		t.Fatalf("Rules out of order: first id %q", regex.ID)
	}
	if regex.Pattern != `TESCO.*` {
		t.Errorf("Pattern = %q, want TESCO.*", regex.Pattern)
	}
	if len(regex.ApplyWhen) != 1 {
		t.Fatalf("ApplyWhen has %d conditions, want 1", len(regex.ApplyWhen))
	}
	cond := regex.ApplyWhen[0]
	if cond.Field != "amount" || cond.Min == nil || *cond.Min != minAmount || cond.Max == nil || *cond.Max != maxAmount {
		t.Errorf("Condition round-trip mismatch: %+v", cond)
	}
	if regex.Outputs.Category != "PersonalExpense" {
		t.Errorf("Outputs.Category = %q, want PersonalExpense", regex.Outputs.Category)
	}

	sentinel := got[1]
	if sentinel.Sentinel != "amount_positive" {
		t.Errorf("Sentinel = %q, want amount_positive", sentinel.Sentinel)
	}

	// Saved specs must still compile.
	if _, err := rules.CompileAll(got); err != nil {
		t.Errorf("Stored rules failed to compile: %v", err)
	}
}

func TestSaveRuleSpecs_Upsert(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	spec := rules.Spec{
		ID:         "cat_test",
		Phase:      "category",
		Kind:       "regex",
		Pattern:    `OLD.*`,
		Strength:   "weak",
		OrderIndex: 10,
		Enabled:    true,
		Outputs:    rules.OutputsSpec{Category: "OtherExpense"},
	}
	if err := store.SaveRuleSpecs(ctx, []rules.Spec{spec}); err != nil {
		t.Fatalf("Failed to save rule: %v", err)
	}

	spec.Pattern = `NEW.*`
	spec.Strength = "strong"
	spec.Enabled = false
	if err := store.SaveRuleSpecs(ctx, []rules.Spec{spec}); err != nil {
		t.Fatalf("Failed to re-save rule: %v", err)
	}

	got, err := store.GetRuleSpecs(ctx)
	if err != nil {
		t.Fatalf("Failed to get rules: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Got %d rules, want 1", len(got))
	}
	if got[0].Pattern != `NEW.*` || got[0].Strength != "strong" || got[0].Enabled {
		t.Errorf("Upsert did not replace rule: %+v", got[0])
	}
}

func TestReplaceRulePerformance(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	specs := rules.SeedSpecs()[:2]
	if err := store.SaveRuleSpecs(ctx, specs); err != nil {
		t.Fatalf("Failed to save rules: %v", err)
	}

	acc := 0.9
	now := time.Now().UTC()
	stats := []model.RulePerformance{
		{RuleID: specs[0].ID, MatchCount: 10, AccCategory: &acc, ComputedAt: now},
		{RuleID: specs[1].ID, MatchCount: 5, ComputedAt: now},
	}
	if err := store.ReplaceRulePerformance(ctx, stats); err != nil {
		t.Fatalf("Failed to save performance: %v", err)
	}

	// A later run that only saw the first rule updates it and leaves the
	// second rule's row alone.
	better := 0.95
	if err := store.ReplaceRulePerformance(ctx, []model.RulePerformance{
		{RuleID: specs[0].ID, MatchCount: 20, AccCategory: &better, ComputedAt: now},
	}); err != nil {
		t.Fatalf("Failed to update performance: %v", err)
	}

	perf, err := store.GetRulePerformance(ctx)
	if err != nil {
		t.Fatalf("Failed to get performance: %v", err)
	}
	if len(perf) != 2 {
		t.Fatalf("Got %d performance rows, want 2", len(perf))
	}

	first := perf[specs[0].ID]
	if first.MatchCount != 20 {
		t.Errorf("MatchCount = %d, want 20", first.MatchCount)
	}
	if first.AccCategory == nil || *first.AccCategory != better {
		t.Errorf("AccCategory = %v, want %v", first.AccCategory, better)
	}

	second := perf[specs[1].ID]
	if second.MatchCount != 5 {
		t.Errorf("Stale row MatchCount = %d, want 5", second.MatchCount)
	}
	if second.AccCategory != nil {
		t.Errorf("Stale row AccCategory = %v, want nil", second.AccCategory)
	}
}

func TestSaveProperties_Upsert(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	properties := []model.Property{
		{Code: "F1321LON", Address: "Flat 13, 21 London Road", Block: "21LON"},
		{Code: "F0207BRI", Address: "Flat 2, 7 Brighton Street"},
	}
	if err := store.SaveProperties(ctx, properties); err != nil {
		t.Fatalf("Failed to save properties: %v", err)
	}

	properties[0].Address = "Flat 13, 21 London Road, SW1"
	if err := store.SaveProperties(ctx, properties[:1]); err != nil {
		t.Fatalf("Failed to re-save property: %v", err)
	}

	got, err := store.GetProperties(ctx)
	if err != nil {
		t.Fatalf("Failed to get properties: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Got %d properties, want 2", len(got))
	}
	if got[0].Code != "F0207BRI" {
		t.Errorf("Properties not ordered by code: first is %q", got[0].Code)
	}
	if got[1].Address != "Flat 13, 21 London Road, SW1" {
		t.Errorf("Upsert did not replace address: %q", got[1].Address)
	}
}

func TestGetRuleSpecs_CorruptRowReportsRuleLoad(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO rules (id, phase, order_index, kind, pattern, sentinel,
			strength, apply_when, outputs, enabled)
		VALUES ('broken', 'category', 0, 'regex', 'X', NULL, 'medium', 'not json', '{}', 1)
	`)
	if err != nil {
		t.Fatalf("Failed to insert corrupt rule row: %v", err)
	}

	_, err = store.GetRuleSpecs(ctx)
	if err == nil {
		t.Fatal("Expected error from corrupt rule row")
	}
	if !errors.Is(err, common.ErrRuleLoad) {
		t.Errorf("Expected ErrRuleLoad, got %v", err)
	}
}
