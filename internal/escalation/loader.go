package escalation

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Name       string                      `yaml:"name"`
	Active     *bool                       `yaml:"active"`
	Conditions domain.EscalationConditions `yaml:"conditions"`
	Actions    domain.EscalationActions    `yaml:"actions"`
}

// LoadRulesFile reads rule seeds from a YAML file.
func LoadRulesFile(path string) ([]domain.EscalationRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeRules(f)
}

// DecodeRules parses YAML rule seeds and validates each rule.
func DecodeRules(r io.Reader) ([]domain.EscalationRule, error) {
	var file ruleFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	rules := make([]domain.EscalationRule, 0, len(file.Rules))
	for i, entry := range file.Rules {
		if entry.Name == "" {
			return nil, fmt.Errorf("rule %d: name required", i)
		}
		rule := domain.EscalationRule{
			Name:       entry.Name,
			IsActive:   entry.Active == nil || *entry.Active,
			Conditions: entry.Conditions,
			Actions:    entry.Actions,
		}
		if err := Validate(&rule); err != nil {
			return nil, fmt.Errorf("rule %q: %w", entry.Name, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
