package model

import (
	"fmt"
	"strings"
)

// StudyTypeUnknown is the sentinel study type returned when no rule matches.
// An Unknown classification is a valid outcome, not an error; the record is
// kept at 0.0 RVU and surfaced so the user can author a rule for it.
const StudyTypeUnknown = "Unknown"

// ClassificationRule maps procedure text to a study type and RVU value.
// RequiredGroups is satisfied when every group has at least one member
// present (AND across groups, OR within a group). Any excluded keyword
// present disqualifies the rule outright.
type ClassificationRule struct {
	TypeName         string
	Modality         string
	BodyPart         string
	RequiredGroups   [][]string
	ExcludedKeywords []string
	RVU              float64
	Priority         int
}

// Validate ensures the rule is well formed before it enters a RuleSet.
func (r *ClassificationRule) Validate() error {
	if strings.TrimSpace(r.TypeName) == "" {
		return fmt.Errorf("rule type name is required")
	}
	if r.RVU < 0 {
		return fmt.Errorf("rule %q: rvu must not be negative", r.TypeName)
	}
	if len(r.RequiredGroups) == 0 {
		return fmt.Errorf("rule %q: at least one required keyword group is needed", r.TypeName)
	}
	for i, group := range r.RequiredGroups {
		if len(group) == 0 {
			return fmt.Errorf("rule %q: required group %d is empty", r.TypeName, i+1)
		}
		for _, kw := range group {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("rule %q: required group %d contains a blank keyword", r.TypeName, i+1)
			}
		}
	}
	for _, kw := range r.ExcludedKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("rule %q: excluded keywords must not be blank", r.TypeName)
		}
	}
	return nil
}

// RuleSet is one immutable generation of classification rules. A reload
// builds a whole new RuleSet and swaps it in atomically; in-flight
// classification keeps the generation it was handed.
type RuleSet struct {
	rules      []ClassificationRule
	generation int64
}

// NewRuleSet validates the rules and freezes them into a generation.
// Rule order is preserved; it is the final classification tie-break.
func NewRuleSet(generation int64, rules []ClassificationRule) (*RuleSet, error) {
	seen := make(map[string]struct{}, len(rules))
	frozen := make([]ClassificationRule, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(rules[i].TypeName)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate rule type name %q", rules[i].TypeName)
		}
		seen[key] = struct{}{}
		frozen[i] = rules[i]
	}
	return &RuleSet{rules: frozen, generation: generation}, nil
}

// Generation identifies this rule set build; it increments on every reload.
func (rs *RuleSet) Generation() int64 {
	return rs.generation
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Rule returns the rule at the given declaration position.
func (rs *RuleSet) Rule(i int) ClassificationRule {
	return rs.rules[i]
}

// Rules returns the rules in declaration order. Callers must treat the
// returned slice as read-only.
func (rs *RuleSet) Rules() []ClassificationRule {
	return rs.rules
}
