// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Transaction represents a single canonical transaction delivered by an importer.
// Transactions are immutable once created.
type Transaction struct {
	Date                 time.Time
	CreatedAt            time.Time
	ID                   string
	SourceBank           string
	SourceAccount        string
	Counterparty         string
	Reference            string
	Memo                 string
	Type                 string
	Currency             string
	EffectiveSubcategory string
	MatchText            string
	Description          string
	ImportBatchID        string
	Amount               float64
	Superseded           bool
}

// GenerateID derives a stable identifier from the transaction's identifying
// fields plus a sequence discriminator, so identical-looking rows in one file
// still get distinct ids.
func (t *Transaction) GenerateID(seq int) string {
	data := fmt.Sprintf("%s:%s:%s:%.2f:%s:%s:%s:%d",
		t.SourceBank,
		t.SourceAccount,
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Counterparty,
		t.Reference,
		t.Memo,
		seq)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// BuildMatchText concatenates the textual fields used for rule matching.
func (t *Transaction) BuildMatchText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{t.Counterparty, t.Reference, t.Memo, t.Type} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, " ")
}
