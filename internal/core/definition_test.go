package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeConditions(t *testing.T) {
	tests := []struct {
		name     string
		a        Conditions
		b        Conditions
		expected Conditions
	}{
		{
			name:     "BothEmpty",
			expected: Conditions{},
		},
		{
			name:     "DisjointKeys",
			a:        Conditions{"sys_name": {"alpha"}},
			b:        Conditions{"user": {"bob"}},
			expected: Conditions{"sys_name": {"alpha"}, "user": {"bob"}},
		},
		{
			name:     "SharedKeyUnion",
			a:        Conditions{"sys_name": {"alpha", "beta"}},
			b:        Conditions{"sys_name": {"beta", "gamma"}},
			expected: Conditions{"sys_name": {"alpha", "beta", "gamma"}},
		},
		{
			name:     "SharedKeyDuplicatesWithinInput",
			a:        Conditions{"arch": {"x86", "x86"}},
			b:        Conditions{"arch": {"arm"}},
			expected: Conditions{"arch": {"x86", "arm"}},
		},
		{
			name:     "SingleSideKeptUnchanged",
			a:        Conditions{"arch": {"x86", "x86"}},
			b:        Conditions{"user": {}},
			expected: Conditions{"arch": {"x86", "x86"}, "user": {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeConditions(tt.a, tt.b)
			require.Equal(t, tt.expected, merged)
		})
	}

	t.Run("InputsNotModified", func(t *testing.T) {
		a := Conditions{"k": {"1"}}
		b := Conditions{"k": {"2"}}
		merged := MergeConditions(a, b)
		merged["k"][0] = "changed"

		require.Equal(t, Conditions{"k": {"1"}}, a)
		require.Equal(t, Conditions{"k": {"2"}}, b)
	})
}

func TestDefinitionStatus(t *testing.T) {
	require.Equal(t, "pending", Pending.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "finished", Finished.String())
	require.Equal(t, "skipped", Skipped.String())
	require.Equal(t, "unknown", DefinitionStatus(42).String())

	require.False(t, Pending.IsTerminal())
	require.False(t, Running.IsTerminal())
	require.True(t, Finished.IsTerminal())
	require.True(t, Skipped.IsTerminal())
}

func TestNoConditionConfigs(t *testing.T) {
	def := TestDefinition{
		Name: "build",
		Configs: []TestConfig{
			{Name: "build", Permutation: "gcc", OnlyIf: Conditions{"a": {"b"}}},
			{Name: "build", NotIf: Conditions{"c": {"d"}}},
		},
	}

	configs := def.NoConditionConfigs()
	require.Len(t, configs, 2)
	for _, c := range configs {
		require.Nil(t, c.OnlyIf)
		require.Nil(t, c.NotIf)
	}
	require.NotNil(t, def.Configs[0].OnlyIf)
	require.Equal(t, "build.gcc", configs[0].DisplayName())
	require.Equal(t, "build", configs[1].DisplayName())
}
