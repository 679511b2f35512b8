package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// Phase identifies one of the four sequential rule-evaluation stages.
type Phase string

// Evaluation phases, in execution order.
const (
	PhaseProperty    Phase = "property"
	PhaseCategory    Phase = "category"
	PhaseSubcategory Phase = "subcategory"
	PhaseOverride    Phase = "override"
)

// Phases lists all phases in evaluation order.
var Phases = []Phase{PhaseProperty, PhaseCategory, PhaseSubcategory, PhaseOverride}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseProperty, PhaseCategory, PhaseSubcategory, PhaseOverride:
		return true
	}
	return false
}

// Strength is the coarse priority/confidence tier assigned to a rule.
type Strength string

// Rule strength tiers.
const (
	StrengthStrong   Strength = "strong"
	StrengthMedium   Strength = "medium"
	StrengthWeak     Strength = "weak"
	StrengthCatchAll Strength = "catch_all"
)

// Priority returns the numeric rank of a strength; lower is stronger.
// Unknown strengths rank with catch_all.
func (s Strength) Priority() int {
	switch s {
	case StrengthStrong:
		return 0
	case StrengthMedium:
		return 1
	case StrengthWeak:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is a known strength tier.
func (s Strength) Valid() bool {
	switch s {
	case StrengthStrong, StrengthMedium, StrengthWeak, StrengthCatchAll:
		return true
	}
	return false
}

// PatternKind distinguishes textual patterns from named sentinel predicates.
type PatternKind string

// Pattern kinds.
const (
	PatternRegex    PatternKind = "regex"
	PatternSentinel PatternKind = "sentinel"
)

// SentinelKind names a non-textual predicate used in place of a regex.
type SentinelKind string

// Sentinel predicates.
const (
	// SentinelPropertyAssigned matches when the draft already has a property code.
	SentinelPropertyAssigned SentinelKind = "property_assigned"
	// SentinelAmountPositive matches credits.
	SentinelAmountPositive SentinelKind = "amount_positive"
	// SentinelAmountNegative matches debits.
	SentinelAmountNegative SentinelKind = "amount_negative"
	// SentinelCatchAll matches unconditionally.
	SentinelCatchAll SentinelKind = "catch_all"
	// SentinelMarker always matches; the real condition lives in apply_when.
	SentinelMarker SentinelKind = "marker"
)

// Valid reports whether k is a known sentinel predicate.
func (k SentinelKind) Valid() bool {
	switch k {
	case SentinelPropertyAssigned, SentinelAmountPositive, SentinelAmountNegative,
		SentinelCatchAll, SentinelMarker:
		return true
	}
	return false
}

// Pattern is a rule's match predicate: either a compiled regular expression
// tested against the transaction's match text, or a sentinel predicate.
// Regex patterns are compiled once at load time and never re-parsed.
type Pattern struct {
	re       *regexp.Regexp
	Expr     string
	Kind     PatternKind
	Sentinel SentinelKind
}

// CompileRegexPattern compiles a textual pattern. Matching is
// case-insensitive and anchored at the start of the match text.
func CompileRegexPattern(expr string) (Pattern, error) {
	if expr == "" {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	re, err := regexp.Compile("(?i)^(?:" + expr + ")")
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return Pattern{Kind: PatternRegex, Expr: expr, re: re}, nil
}

// SentinelPattern builds a sentinel predicate pattern.
func SentinelPattern(kind SentinelKind) (Pattern, error) {
	if !kind.Valid() {
		return Pattern{}, fmt.Errorf("unknown sentinel %q", kind)
	}
	return Pattern{Kind: PatternSentinel, Sentinel: kind}, nil
}

// Matches evaluates the pattern against a transaction and the labels
// assigned so far.
func (p Pattern) Matches(txn Transaction, draft *LabelDraft) bool {
	if p.Kind == PatternSentinel {
		switch p.Sentinel {
		case SentinelPropertyAssigned:
			return draft.PropertyCode != ""
		case SentinelAmountPositive:
			return txn.Amount > 0
		case SentinelAmountNegative:
			return txn.Amount < 0
		case SentinelCatchAll, SentinelMarker:
			return true
		}
		return false
	}
	if p.re == nil {
		return false
	}
	return p.re.MatchString(txn.MatchText)
}

// ConditionKind distinguishes textual from numeric apply_when clauses.
type ConditionKind string

// Condition kinds.
const (
	ConditionText  ConditionKind = "text"
	ConditionRange ConditionKind = "range"
)

// Condition is a single apply_when clause. All of a rule's conditions must
// hold for the rule to be eligible. A clause that cannot be evaluated
// (unknown field, type mismatch) holds false rather than failing the batch.
type Condition struct {
	re    *regexp.Regexp
	Min   *float64
	Max   *float64
	Field string
	Expr  string
	Kind  ConditionKind
}

// CompileTextCondition compiles a field+regex clause. The regex is applied
// case-insensitively and unanchored.
func CompileTextCondition(field, expr string) (Condition, error) {
	if field == "" || expr == "" {
		return Condition{}, fmt.Errorf("text condition requires field and regex")
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Condition{}, fmt.Errorf("invalid condition regex %q: %w", expr, err)
	}
	return Condition{Kind: ConditionText, Field: field, Expr: expr, re: re}, nil
}

// RangeCondition builds a field+numeric-range clause with inclusive bounds.
func RangeCondition(field string, minVal, maxVal *float64) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("range condition requires a field")
	}
	if minVal == nil && maxVal == nil {
		return Condition{}, fmt.Errorf("range condition requires min or max")
	}
	return Condition{Kind: ConditionRange, Field: field, Min: minVal, Max: maxVal}, nil
}

// Holds evaluates the clause against a transaction and the labels so far.
func (c Condition) Holds(txn Transaction, draft *LabelDraft) bool {
	switch c.Kind {
	case ConditionText:
		value, ok := textFieldValue(c.Field, txn, draft)
		if !ok {
			return false
		}
		return c.re.MatchString(value)
	case ConditionRange:
		num, ok := numericFieldValue(c.Field, txn)
		if !ok {
			return false
		}
		if c.Min != nil && num < *c.Min {
			return false
		}
		if c.Max != nil && num > *c.Max {
			return false
		}
		return true
	}
	return false
}

// textFieldValue resolves a condition field against the transaction or the
// label-so-far draft.
func textFieldValue(field string, txn Transaction, draft *LabelDraft) (string, bool) {
	switch field {
	case "category":
		return draft.Category, true
	case "subcategory":
		return draft.Subcategory, true
	case "property_code":
		return draft.PropertyCode, true
	case "description":
		return draft.Description, true
	case "match_text":
		return txn.MatchText, true
	case "memo":
		return txn.Memo, true
	case "counterparty":
		return txn.Counterparty, true
	case "reference":
		return txn.Reference, true
	case "type":
		return txn.Type, true
	case "effective_subcategory":
		return txn.EffectiveSubcategory, true
	case "source_bank":
		return txn.SourceBank, true
	case "source_account":
		return txn.SourceAccount, true
	}
	return "", false
}

func numericFieldValue(field string, txn Transaction) (float64, bool) {
	switch field {
	case "amount":
		return txn.Amount, true
	case "date_day":
		return float64(txn.Date.Day()), true
	}
	// A textual field holding a number is still usable in a range clause.
	if s, ok := textFieldValue(field, txn, &LabelDraft{}); ok {
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num, true
		}
	}
	return 0, false
}

// Outputs is the set of label fields a rule writes when it fires. An empty
// string means the rule does not touch that field.
type Outputs struct {
	PropertyCode string
	Category     string
	Subcategory  string
	Description  string
}

// Empty reports whether the rule writes nothing.
func (o Outputs) Empty() bool {
	return o.PropertyCode == "" && o.Category == "" && o.Subcategory == "" && o.Description == ""
}

// Rule is a compiled classification rule, ready for per-transaction
// evaluation without further parsing.
type Rule struct {
	ID         string
	Pattern    Pattern
	Conditions []Condition
	Outputs    Outputs
	Phase      Phase
	Strength   Strength
	OrderIndex int
	Enabled    bool
}

// Eligible reports whether every apply_when clause holds.
func (r *Rule) Eligible(txn Transaction, draft *LabelDraft) bool {
	for _, cond := range r.Conditions {
		if !cond.Holds(txn, draft) {
			return false
		}
	}
	return true
}
