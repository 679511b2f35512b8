// Package engine implements the four-phase rule evaluator and the
// confidence resolver that turn canonical transactions into label drafts.
package engine

import (
	"github.com/propflow/propflow/internal/model"
	"github.com/propflow/propflow/internal/rules"
)

// TraceEntry records one rule firing during evaluation.
type TraceEntry struct {
	Rule  *model.Rule
	Phase model.Phase
}

// Trace is the ordered list of rules that fired for one transaction.
type Trace []TraceEntry

// Engine evaluates the four phases for one transaction at a time. It is a
// pure function of its rule snapshot and property catalog and is safe for
// concurrent use across transactions.
type Engine struct {
	snapshot   *rules.Snapshot
	properties model.PropertySet
}

// New creates an engine over an immutable rule snapshot. An empty property
// set disables property-output validation.
func New(snapshot *rules.Snapshot, properties model.PropertySet) *Engine {
	return &Engine{snapshot: snapshot, properties: properties}
}

// Classify runs the four phases over a transaction, returning the label
// draft and the ordered trace of fired rules.
func (e *Engine) Classify(txn model.Transaction) (model.LabelDraft, Trace) {
	draft := model.LabelDraft{Description: txn.Description}
	var trace Trace

	trace = e.propertyPhase(txn, &draft, trace)
	trace = e.categoryPhase(txn, &draft, trace)
	trace = e.subcategoryPhase(txn, &draft, trace)
	trace = e.overridePhase(txn, &draft, trace)

	return draft, trace
}

// propertyPhase assigns property_code, first match wins. A rule whose output
// is not a known property code is skipped, not fatal: later rules still run.
func (e *Engine) propertyPhase(txn model.Transaction, draft *model.LabelDraft, trace Trace) Trace {
	ordered := e.snapshot.Phase(model.PhaseProperty)
	for i := range ordered {
		if draft.PropertyCode != "" {
			break
		}
		rule := &ordered[i]
		if !rule.Eligible(txn, draft) {
			continue
		}
		if !rule.Pattern.Matches(txn, draft) {
			continue
		}
		code := rule.Outputs.PropertyCode
		if code == "" {
			continue
		}
		if len(e.properties) > 0 && !e.properties.Has(code) {
			continue
		}
		draft.PropertyCode = code
		trace = append(trace, TraceEntry{Phase: model.PhaseProperty, Rule: rule})
	}
	return trace
}

// categoryPhase assigns category (and optionally description), first match
// wins; only entered while category is unset.
func (e *Engine) categoryPhase(txn model.Transaction, draft *model.LabelDraft, trace Trace) Trace {
	ordered := e.snapshot.Phase(model.PhaseCategory)
	for i := range ordered {
		if draft.Category != "" {
			break
		}
		rule := &ordered[i]
		if !rule.Eligible(txn, draft) {
			continue
		}
		if !rule.Pattern.Matches(txn, draft) {
			continue
		}
		draft.Category = rule.Outputs.Category
		if rule.Outputs.Description != "" {
			draft.Description = rule.Outputs.Description
		}
		trace = append(trace, TraceEntry{Phase: model.PhaseCategory, Rule: rule})
	}
	return trace
}

// subcategoryPhase assigns subcategory, first match wins; runs whether or
// not the category phase succeeded (rules gate themselves via apply_when).
func (e *Engine) subcategoryPhase(txn model.Transaction, draft *model.LabelDraft, trace Trace) Trace {
	ordered := e.snapshot.Phase(model.PhaseSubcategory)
	for i := range ordered {
		if draft.Subcategory != "" {
			break
		}
		rule := &ordered[i]
		if !rule.Eligible(txn, draft) {
			continue
		}
		if !rule.Pattern.Matches(txn, draft) {
			continue
		}
		draft.Subcategory = rule.Outputs.Subcategory
		trace = append(trace, TraceEntry{Phase: model.PhaseSubcategory, Rule: rule})
	}
	return trace
}

// overridePhase applies every matching override in order; later overrides
// win over earlier ones and over anything set in phases 1-3.
func (e *Engine) overridePhase(txn model.Transaction, draft *model.LabelDraft, trace Trace) Trace {
	ordered := e.snapshot.Phase(model.PhaseOverride)
	for i := range ordered {
		rule := &ordered[i]
		if !rule.Eligible(txn, draft) {
			continue
		}
		if !rule.Pattern.Matches(txn, draft) {
			continue
		}
		if rule.Outputs.Category != "" {
			draft.Category = rule.Outputs.Category
		}
		if rule.Outputs.Subcategory != "" {
			draft.Subcategory = rule.Outputs.Subcategory
		}
		if rule.Outputs.Description != "" {
			draft.Description = rule.Outputs.Description
		}
		trace = append(trace, TraceEntry{Phase: model.PhaseOverride, Rule: rule})
	}
	return trace
}
