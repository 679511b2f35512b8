package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propflow/propflow/internal/model"
)

func batchTransactions(count int) []model.Transaction {
	txns := make([]model.Transaction, count)
	for i := range txns {
		amount := -10.0
		if i%2 == 0 {
			amount = 10.0
		}
		txns[i] = model.Transaction{
			ID:        fmt.Sprintf("txn-%03d", i),
			Amount:    amount,
			MatchText: fmt.Sprintf("PAYMENT %d", i),
		}
	}
	return txns
}

func TestClassifyBatch_PreservesInputOrder(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")
	resolver := NewResolver(DefaultResolverConfig())
	txns := batchTransactions(50)

	labels, err := ClassifyBatch(context.Background(), eng, resolver, txns, nil, BatchOptions{Workers: 8})
	require.NoError(t, err)
	require.Len(t, labels, 50)

	for i, label := range labels {
		assert.Equal(t, txns[i].ID, label.TransactionID)
		assert.Equal(t, model.SourceRule, label.Source)
	}

	// Alternating amounts hit the sign catch-alls.
	assert.Equal(t, "OtherIncome", labels[0].Category)
	assert.Equal(t, "OtherExpense", labels[1].Category)
}

func TestClassifyBatch_SkipsSuperseded(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")
	resolver := NewResolver(DefaultResolverConfig())

	txns := batchTransactions(3)
	txns[1].Superseded = true

	labels, err := ClassifyBatch(context.Background(), eng, resolver, txns, nil, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "txn-000", labels[0].TransactionID)
	assert.Equal(t, "txn-002", labels[1].TransactionID)
}

func TestClassifyBatch_SetsRuleAttribution(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")
	resolver := NewResolver(DefaultResolverConfig())

	txns := []model.Transaction{
		{ID: "matched", Amount: -42.50, MatchText: "TESCO STORES 3456"},
	}
	labels, err := ClassifyBatch(context.Background(), eng, resolver, txns, nil, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, labels, 1)

	label := labels[0]
	require.NotNil(t, label.RuleID)
	require.NotNil(t, label.RuleStrength)
	assert.Equal(t, model.StrengthStrong, *label.RuleStrength)
	assert.False(t, label.NeedsReview)
}

func TestClassifyBatch_Cancelled(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")
	resolver := NewResolver(DefaultResolverConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ClassifyBatch(ctx, eng, resolver, batchTransactions(1000), nil, BatchOptions{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyBatch_Empty(t *testing.T) {
	eng := buildEngine(t, testSpecs(), "F1321LON")
	resolver := NewResolver(DefaultResolverConfig())

	labels, err := ClassifyBatch(context.Background(), eng, resolver, nil, nil, BatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, labels)
}
