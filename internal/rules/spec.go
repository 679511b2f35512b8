// Package rules provides rule definitions, load-time compilation and
// validation, and immutable phase-partitioned snapshots for the engine.
package rules

import (
	"errors"
	"fmt"

	"github.com/propflow/propflow/internal/model"
)

// ConditionSpec is one uncompiled apply_when clause: a field+regex test, a
// field+numeric-range test, or both (each part must hold).
type ConditionSpec struct {
	Min   *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Field string   `json:"field" yaml:"field"`
	Regex string   `json:"regex,omitempty" yaml:"regex,omitempty"`
}

// OutputsSpec names the label fields a rule writes when it fires.
type OutputsSpec struct {
	PropertyCode string `json:"property_code,omitempty" yaml:"property_code,omitempty"`
	Category     string `json:"category,omitempty" yaml:"category,omitempty"`
	Subcategory  string `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Spec is an uncompiled rule definition, as stored in the rule store or a
// rule file. Compile turns it into a model.Rule; nothing downstream of
// compilation re-parses patterns.
type Spec struct {
	ID         string          `yaml:"id"`
	Phase      string          `yaml:"phase"`
	Kind       string          `yaml:"kind,omitempty"`
	Pattern    string          `yaml:"pattern,omitempty"`
	Sentinel   string          `yaml:"sentinel,omitempty"`
	Strength   string          `yaml:"strength,omitempty"`
	ApplyWhen  []ConditionSpec `yaml:"apply_when,omitempty"`
	Outputs    OutputsSpec     `yaml:"outputs"`
	OrderIndex int             `yaml:"order"`
	Enabled    bool            `yaml:"enabled"`
}

// Compile validates and compiles a single rule spec.
func Compile(spec Spec) (model.Rule, error) {
	if spec.ID == "" {
		return model.Rule{}, fmt.Errorf("rule without id")
	}

	phase := model.Phase(spec.Phase)
	if !phase.Valid() {
		return model.Rule{}, fmt.Errorf("rule %s: unknown phase %q", spec.ID, spec.Phase)
	}

	strength := model.Strength(spec.Strength)
	if spec.Strength == "" {
		strength = model.StrengthMedium
	}
	if !strength.Valid() {
		return model.Rule{}, fmt.Errorf("rule %s: unknown strength %q", spec.ID, spec.Strength)
	}

	kind := model.PatternKind(spec.Kind)
	if spec.Kind == "" {
		if spec.Sentinel != "" {
			kind = model.PatternSentinel
		} else {
			kind = model.PatternRegex
		}
	}

	var pattern model.Pattern
	var err error
	switch kind {
	case model.PatternRegex:
		pattern, err = model.CompileRegexPattern(spec.Pattern)
	case model.PatternSentinel:
		pattern, err = model.SentinelPattern(model.SentinelKind(spec.Sentinel))
	default:
		err = fmt.Errorf("unknown pattern kind %q", spec.Kind)
	}
	if err != nil {
		return model.Rule{}, fmt.Errorf("rule %s: %w", spec.ID, err)
	}

	conditions, err := compileConditions(spec.ApplyWhen)
	if err != nil {
		return model.Rule{}, fmt.Errorf("rule %s: %w", spec.ID, err)
	}

	outputs := model.Outputs{
		PropertyCode: spec.Outputs.PropertyCode,
		Category:     spec.Outputs.Category,
		Subcategory:  spec.Outputs.Subcategory,
		Description:  spec.Outputs.Description,
	}
	if outputs.Empty() {
		return model.Rule{}, fmt.Errorf("rule %s: no outputs", spec.ID)
	}

	return model.Rule{
		ID:         spec.ID,
		Phase:      phase,
		OrderIndex: spec.OrderIndex,
		Pattern:    pattern,
		Conditions: conditions,
		Outputs:    outputs,
		Strength:   strength,
		Enabled:    spec.Enabled,
	}, nil
}

func compileConditions(specs []ConditionSpec) ([]model.Condition, error) {
	var conditions []model.Condition
	for _, cs := range specs {
		if cs.Regex != "" {
			cond, err := model.CompileTextCondition(cs.Field, cs.Regex)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
		if cs.Min != nil || cs.Max != nil {
			cond, err := model.RangeCondition(cs.Field, cs.Min, cs.Max)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
		if cs.Regex == "" && cs.Min == nil && cs.Max == nil {
			return nil, fmt.Errorf("apply_when clause on %q has no regex or range", cs.Field)
		}
	}
	return conditions, nil
}

// CompileAll compiles every spec, collecting all validation failures so a
// bad rule file reports every problem at once. Any failure rejects the whole
// set: a broken rule must never reach transaction processing.
func CompileAll(specs []Spec) ([]model.Rule, error) {
	compiled := make([]model.Rule, 0, len(specs))
	var errs []error
	seen := make(map[string]struct{}, len(specs))

	for _, spec := range specs {
		if _, dup := seen[spec.ID]; dup && spec.ID != "" {
			errs = append(errs, fmt.Errorf("duplicate rule id %s", spec.ID))
			continue
		}
		seen[spec.ID] = struct{}{}

		rule, err := Compile(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		compiled = append(compiled, rule)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return compiled, nil
}
