// Package rules loads classification rule definitions and publishes them as
// immutable, atomically swappable RuleSet generations.
package rules

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/calebmd/radpace/internal/common"
	"github.com/calebmd/radpace/internal/model"
)

// ruleSpec mirrors one rule entry in the rules file.
type ruleSpec struct {
	Type     string     `mapstructure:"type"`
	Modality string     `mapstructure:"modality"`
	BodyPart string     `mapstructure:"body_part"`
	Requires [][]string `mapstructure:"requires"`
	Excludes []string   `mapstructure:"excludes"`
	RVU      float64    `mapstructure:"rvu"`
	Priority int        `mapstructure:"priority"`
}

// load reads and validates the rules file through the given viper instance,
// producing a frozen RuleSet with the given generation number. Nothing is
// published on failure; the caller keeps whatever generation it had.
func load(v *viper.Viper, generation int64) (*model.RuleSet, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var specs []ruleSpec
	if err := v.UnmarshalKey("rules", &specs); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRule, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: rules file defines no rules", common.ErrInvalidConfig)
	}

	defs := make([]model.ClassificationRule, len(specs))
	for i, spec := range specs {
		defs[i] = model.ClassificationRule{
			TypeName:         spec.Type,
			Modality:         spec.Modality,
			BodyPart:         spec.BodyPart,
			RequiredGroups:   spec.Requires,
			ExcludedKeywords: spec.Excludes,
			RVU:              spec.RVU,
			Priority:         spec.Priority,
		}
	}

	rs, err := model.NewRuleSet(generation, defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRule, err)
	}
	return rs, nil
}
