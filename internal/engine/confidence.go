package engine

import (
	"github.com/propflow/propflow/internal/model"
)

// ResolverConfig carries the thresholds and baselines for confidence
// resolution. Passing it explicitly lets different runs (say, a stricter
// backtest policy) resolve concurrently without interference.
type ResolverConfig struct {
	StrengthBaselines map[model.Strength]float64
	PropertyRequired  map[string]bool
	AutoAccept        float64
	ForceReview       float64
	MeasuredScale     float64
	ConfidenceCap     float64
}

// DefaultResolverConfig returns the production thresholds.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		StrengthBaselines: map[model.Strength]float64{
			model.StrengthStrong:   0.99,
			model.StrengthMedium:   0.93,
			model.StrengthWeak:     0.86,
			model.StrengthCatchAll: 0.65,
		},
		PropertyRequired: map[string]bool{
			"OurRent":         true,
			"PropertyExpense": true,
			"Mortgage":        true,
		},
		AutoAccept:    0.93,
		ForceReview:   0.75,
		MeasuredScale: 0.95,
		ConfidenceCap: 0.99,
	}
}

// Resolution is the resolver's verdict for one transaction.
type Resolution struct {
	RuleID      *string
	Strength    model.Strength
	Confidence  float64
	NeedsReview bool
}

// Resolver turns a rule trace into a confidence score and a review
// decision, consulting measured rule performance when available.
type Resolver struct {
	config ResolverConfig
}

// NewResolver creates a resolver with the given policy.
func NewResolver(config ResolverConfig) *Resolver {
	return &Resolver{config: config}
}

// Config returns the resolver's policy.
func (r *Resolver) Config() ResolverConfig {
	return r.config
}

// Resolve selects the strongest fired rule (ties broken by latest firing),
// computes confidence, and decides needs_review.
func (r *Resolver) Resolve(trace Trace, draft model.LabelDraft, perf map[string]model.RulePerformance) Resolution {
	selected := r.selectRule(trace)

	strength := model.StrengthCatchAll
	var ruleID *string
	if selected != nil {
		strength = selected.Strength
		id := selected.ID
		ruleID = &id
	}

	confidence := r.baseline(strength)
	if selected != nil && perf != nil {
		if rp, ok := perf[selected.ID]; ok {
			if measured, measuredOK := rp.MeasuredAccuracy(); measuredOK {
				blended := measured * r.config.MeasuredScale
				if blended < confidence {
					blended = confidence
				}
				if blended > r.config.ConfidenceCap {
					blended = r.config.ConfidenceCap
				}
				confidence = blended
			}
		}
	}

	needsReview := confidence < r.config.ForceReview ||
		strength == model.StrengthCatchAll ||
		confidence < r.config.AutoAccept

	// Property-required categories force review when the code is missing,
	// regardless of confidence.
	if r.config.PropertyRequired[draft.Category] && draft.PropertyCode == "" {
		needsReview = true
	}

	return Resolution{
		RuleID:      ruleID,
		Strength:    strength,
		Confidence:  confidence,
		NeedsReview: needsReview,
	}
}

// selectRule picks the fired rule with the highest strength priority; on a
// tie, the one that fired latest wins. Nil when nothing fired.
func (r *Resolver) selectRule(trace Trace) *model.Rule {
	var selected *model.Rule
	for _, entry := range trace {
		if selected == nil || entry.Rule.Strength.Priority() <= selected.Strength.Priority() {
			selected = entry.Rule
		}
	}
	return selected
}

func (r *Resolver) baseline(strength model.Strength) float64 {
	if base, ok := r.config.StrengthBaselines[strength]; ok {
		return base
	}
	return r.config.StrengthBaselines[model.StrengthCatchAll]
}
