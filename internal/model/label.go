package model

import "time"

// LabelSource indicates where a label came from.
type LabelSource string

// Label sources.
const (
	SourceRule   LabelSource = "rule"
	SourceManual LabelSource = "manual"
	SourceModel  LabelSource = "model"
)

// Valid reports whether s is a known label source.
func (s LabelSource) Valid() bool {
	switch s {
	case SourceRule, SourceManual, SourceModel:
		return true
	}
	return false
}

// LabelDraft is the mutable labels-so-far value threaded through the four
// evaluation phases. It is finalized into an immutable Label once the
// confidence resolver has run.
type LabelDraft struct {
	PropertyCode string
	Category     string
	Subcategory  string
	Description  string
}

// Label is one versioned row of the append-only label ledger. Rows are never
// edited or deleted; corrections are new versions, and the highest version
// per transaction is authoritative.
type Label struct {
	CreatedAt     time.Time
	RuleID        *string
	RuleStrength  *Strength
	TransactionID string
	PropertyCode  string
	Category      string
	Subcategory   string
	Description   string
	Source        LabelSource
	Confidence    float64
	Version       int
	NeedsReview   bool
	Reviewed      bool
}
