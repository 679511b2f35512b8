package rules

import (
	"sort"

	"github.com/propflow/propflow/internal/model"
)

// Snapshot is an immutable, phase-partitioned view of the enabled rules,
// loaded once per batch. Edits to the rule store never affect a snapshot
// already handed to a run.
type Snapshot struct {
	phases map[model.Phase][]model.Rule
	byID   map[string]*model.Rule
	total  int
}

// NewSnapshot partitions the enabled rules by phase and sorts each phase by
// order index.
func NewSnapshot(ruleSet []model.Rule) *Snapshot {
	s := &Snapshot{
		phases: make(map[model.Phase][]model.Rule, len(model.Phases)),
		byID:   make(map[string]*model.Rule, len(ruleSet)),
	}

	for _, rule := range ruleSet {
		if !rule.Enabled {
			continue
		}
		s.phases[rule.Phase] = append(s.phases[rule.Phase], rule)
		s.total++
	}

	for phase := range s.phases {
		ordered := s.phases[phase]
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].OrderIndex < ordered[j].OrderIndex
		})
		for i := range ordered {
			s.byID[ordered[i].ID] = &ordered[i]
		}
	}

	return s
}

// Phase returns the ordered rules for one phase.
func (s *Snapshot) Phase(phase model.Phase) []model.Rule {
	return s.phases[phase]
}

// Rule looks up a rule by id.
func (s *Snapshot) Rule(id string) (*model.Rule, bool) {
	rule, ok := s.byID[id]
	return rule, ok
}

// Len returns the number of enabled rules in the snapshot.
func (s *Snapshot) Len() int {
	return s.total
}
