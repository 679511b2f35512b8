// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/rules"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Transaction operations. Canonical transactions are immutable; saving
	// an already-stored transaction is a no-op.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetLabeledTransactions(ctx context.Context) ([]model.Transaction, error)

	// Label ledger operations. AppendLabel allocates the next version for the
	// transaction and inserts atomically; rows are never updated or deleted.
	AppendLabel(ctx context.Context, label *model.Label) (int, error)
	LatestLabels(ctx context.Context, transactionIDs []string) (map[string]model.Label, error)
	LabelHistory(ctx context.Context, transactionID string) ([]model.Label, error)

	// Rule store operations. Rules persist as uncompiled specs; compilation
	// happens at snapshot load time.
	SaveRuleSpecs(ctx context.Context, specs []rules.Spec) error
	GetRuleSpecs(ctx context.Context) ([]rules.Spec, error)

	// Rule performance operations. Replace upserts per rule; rules absent
	// from the slice keep their stale rows.
	ReplaceRulePerformance(ctx context.Context, perf []model.RulePerformance) error
	GetRulePerformance(ctx context.Context) (map[string]model.RulePerformance, error)

	// Property catalog.
	SaveProperties(ctx context.Context, properties []model.Property) error
	GetProperties(ctx context.Context) ([]model.Property, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for racy operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
