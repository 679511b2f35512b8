package storage

import (
	"context"
	"fmt"

	"github.com/propflow/propflow/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	for i, txn := range transactions {
		if txn.ID == "" {
			return fmt.Errorf("transaction %d has no id", i)
		}
		if txn.Date.IsZero() {
			return fmt.Errorf("transaction %s has no date", txn.ID)
		}
		if txn.SourceBank == "" || txn.SourceAccount == "" {
			return fmt.Errorf("transaction %s has no source bank/account", txn.ID)
		}
	}
	return nil
}

func validateLabel(label *model.Label) error {
	if label == nil {
		return fmt.Errorf("label cannot be nil")
	}
	if label.TransactionID == "" {
		return fmt.Errorf("label has no transaction id")
	}
	if !label.Source.Valid() {
		return fmt.Errorf("label has unknown source %q", label.Source)
	}
	if label.Confidence < 0 || label.Confidence > 1 {
		return fmt.Errorf("label confidence %f outside [0,1]", label.Confidence)
	}
	if label.RuleStrength != nil && !label.RuleStrength.Valid() {
		return fmt.Errorf("label has unknown rule strength %q", *label.RuleStrength)
	}
	return nil
}
