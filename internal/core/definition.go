package core

import (
	"slices"

	"github.com/samber/lo"
)

// Conditions maps a condition key to its acceptable values. Used for
// only_if and not_if predicates.
type Conditions map[string][]string

// MergeConditions returns the union of a and b. Keys present in both inputs
// get the union of their values with duplicates removed, first occurrence
// first. Keys present in only one input are carried through unchanged.
// Neither input is modified.
func MergeConditions(a, b Conditions) Conditions {
	merged := make(Conditions, len(a)+len(b))
	for key, values := range a {
		if other, ok := b[key]; ok {
			merged[key] = lo.Uniq(append(slices.Clone(values), other...))
			continue
		}
		merged[key] = slices.Clone(values)
	}
	for key, values := range b {
		if _, ok := a[key]; !ok {
			merged[key] = slices.Clone(values)
		}
	}
	return merged
}

// Clone returns a deep copy of c.
func (c Conditions) Clone() Conditions {
	if c == nil {
		return nil
	}
	return MergeConditions(c, nil)
}

// TestConfig is one resolved configuration of a test definition. A
// definition expands into one TestConfig per permutation.
type TestConfig struct {
	Name        string            `json:"name"`
	Permutation string            `json:"permutation,omitempty"`
	Modes       []string          `json:"modes,omitempty"`
	Command     string            `json:"command"`
	Variables   map[string]string `json:"variables,omitempty"`
	OnlyIf      Conditions        `json:"only_if,omitempty"`
	NotIf       Conditions        `json:"not_if,omitempty"`
}

// DisplayName returns the name with the permutation label, if any.
func (c TestConfig) DisplayName() string {
	if c.Permutation == "" {
		return c.Name
	}
	return c.Name + "." + c.Permutation
}

// TestDefinition is a named test within a series after preparation. It is
// not modified once the scheduler starts.
type TestDefinition struct {
	Name        string
	DependsOn   []string
	Modes       []string
	OnlyIf      Conditions
	NotIf       Conditions
	DependsPass bool
	Configs     []TestConfig
}

// NoConditionConfigs returns copies of the resolved configurations with
// their predicates cleared. Skip placeholders are recorded this way.
func (d TestDefinition) NoConditionConfigs() []TestConfig {
	return lo.Map(d.Configs, func(c TestConfig, _ int) TestConfig {
		c.OnlyIf = nil
		c.NotIf = nil
		return c
	})
}
