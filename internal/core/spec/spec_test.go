package spec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dagu-org/testseries/internal/core"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, subdir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, subdir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestParseSeries(t *testing.T) {
	t.Run("KeepsFileOrder", func(t *testing.T) {
		s, err := ParseSeries("nightly", []byte(`
modes: [smoke]
series:
  zeta:
    depends_on: []
  alpha:
    depends_on: [zeta]
    depends_pass: True
    modes: [fast]
    only_if:
      sys_name: [alpha, beta]
    not_if:
      user: bob
  mid:
`))
		require.NoError(t, err)
		require.Equal(t, "nightly", s.Name)
		require.Equal(t, []string{"smoke"}, s.Modes)
		require.False(t, s.Ordered)
		require.Len(t, s.Tests, 3)
		require.Equal(t, "zeta", s.Tests[0].Name)
		require.Equal(t, "alpha", s.Tests[1].Name)
		require.Equal(t, "mid", s.Tests[2].Name)

		alpha := s.Tests[1]
		require.Equal(t, []string{"zeta"}, alpha.DependsOn)
		require.True(t, alpha.DependsPass)
		require.Equal(t, []string{"fast"}, alpha.Modes)
		require.Equal(t, core.Conditions{"sys_name": {"alpha", "beta"}}, alpha.OnlyIf)
		require.Equal(t, core.Conditions{"user": {"bob"}}, alpha.NotIf)
		require.False(t, s.Tests[2].DependsPass)
	})

	t.Run("OrderedChainsEntries", func(t *testing.T) {
		s, err := ParseSeries("chain", []byte(`
ordered: true
series:
  first: {}
  second: {depends_on: [first]}
  third: {depends_on: [first]}
  fourth: {}
`))
		require.NoError(t, err)
		require.Empty(t, s.Tests[0].DependsOn)
		require.Equal(t, []string{"first"}, s.Tests[1].DependsOn)
		require.Equal(t, []string{"first", "second"}, s.Tests[2].DependsOn)
		require.Equal(t, []string{"third"}, s.Tests[3].DependsOn)
	})

	t.Run("StringDependsPass", func(t *testing.T) {
		s, err := ParseSeries("x", []byte("series:\n  a: {depends_pass: 'True'}\n"))
		require.NoError(t, err)
		require.True(t, s.Tests[0].DependsPass)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := ParseSeries("x", []byte("series:\n  a: {depnds_on: [b]}\n"))
		require.ErrorIs(t, err, ErrInvalidSeriesFile)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParseSeries("x", []byte("modes: [a]\n"))
		require.ErrorIs(t, err, ErrEmptySeries)

		_, err = ParseSeries("x", nil)
		require.ErrorIs(t, err, ErrEmptySeries)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := ParseSeries("x", []byte("series: [\n"))
		require.ErrorIs(t, err, ErrInvalidSeriesFile)
	})
}

func TestLoadSeries(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, second, SeriesDir, "nightly.yml", "series:\n  a: {}\n")

	s, err := LoadSeries(context.Background(), []string{first, second}, "nightly")
	require.NoError(t, err)
	require.Equal(t, "nightly", s.Name)
	require.Equal(t, "a", s.Tests[0].Name)

	_, err = LoadSeries(context.Background(), []string{first, second}, "weekly")
	require.ErrorIs(t, err, ErrSeriesFileNotFound)
}

func TestFileResolver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, TestsDir, "build.yaml", `
command: make {{ .compiler }}
variables:
  compiler: [gcc, clang]
  opt: [O1, O2]
  jobs: 4
permute_on: [compiler]
only_if:
  sys_os: [linux]
`)
	writeFile(t, dir, ModesDir, "debug.yaml", `
variables:
  opt: O0
only_if:
  sys_os: [darwin]
not_if:
  user: [root]
`)
	writeFile(t, dir, ModesDir, "quick.yaml", "command: make quick\n")
	writeFile(t, dir, TestsDir, "broken.yaml", "commnd: x\n")
	writeFile(t, dir, TestsDir, "nocmd.yaml", "variables: {a: b}\n")
	writeFile(t, dir, TestsDir, "badperm.yaml", "command: x\npermute_on: [missing]\n")

	r := NewFileResolver([]string{dir})

	t.Run("Permutations", func(t *testing.T) {
		configs, err := r.Resolve(ctx, "build", nil)
		require.NoError(t, err)
		require.Len(t, configs, 2)
		require.Equal(t, "gcc", configs[0].Permutation)
		require.Equal(t, "clang", configs[1].Permutation)
		require.Equal(t, map[string]string{"compiler": "gcc", "opt": "O1", "jobs": "4"}, configs[0].Variables)
		require.Equal(t, "clang", configs[1].Variables["compiler"])
		require.Equal(t, core.Conditions{"sys_os": {"linux"}}, configs[0].OnlyIf)
		require.Equal(t, "make {{ .compiler }}", configs[0].Command)
	})

	t.Run("ModeOverlay", func(t *testing.T) {
		configs, err := r.Resolve(ctx, "build", []string{"debug", "quick"})
		require.NoError(t, err)
		require.Len(t, configs, 2)
		require.Equal(t, "make quick", configs[0].Command)
		require.Equal(t, "O0", configs[0].Variables["opt"])
		require.Equal(t, "gcc", configs[0].Variables["compiler"])
		require.Equal(t, core.Conditions{"sys_os": {"linux", "darwin"}}, configs[0].OnlyIf)
		require.Equal(t, core.Conditions{"user": {"root"}}, configs[0].NotIf)
		require.Equal(t, []string{"debug", "quick"}, configs[0].Modes)
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := r.Resolve(ctx, "missing", nil)
		require.ErrorIs(t, err, core.ErrTestNotFound)

		_, err = r.Resolve(ctx, "build", []string{"nomode"})
		require.ErrorIs(t, err, ErrModeNotFound)

		_, err = r.Resolve(ctx, "broken", nil)
		require.ErrorIs(t, err, ErrInvalidTestFile)

		_, err = r.Resolve(ctx, "nocmd", nil)
		require.ErrorIs(t, err, ErrCommandRequired)

		_, err = r.Resolve(ctx, "badperm", nil)
		require.ErrorIs(t, err, ErrUnknownPermuteVar)
	})
}

type stubResolver map[string][]core.TestConfig

func (s stubResolver) Resolve(_ context.Context, name string, modes []string) ([]core.TestConfig, error) {
	configs, ok := s[name]
	if !ok {
		return nil, core.ErrTestNotFound
	}
	out := make([]core.TestConfig, len(configs))
	for i, c := range configs {
		c.Modes = modes
		out[i] = c
	}
	return out, nil
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()
	resolver := stubResolver{
		"a": {{Name: "a", OnlyIf: core.Conditions{"arch": {"x86"}}}},
		"b": {{Name: "b", Permutation: "1"}, {Name: "b", Permutation: "2"}},
	}

	s := &Series{
		Modes: []string{"smoke"},
		Tests: []SeriesTest{
			{Name: "a", Modes: []string{"fast"}, OnlyIf: core.Conditions{"arch": {"arm", "x86"}, "os": {"linux"}}},
			{Name: "b", DependsOn: []string{"a"}, DependsPass: true, NotIf: core.Conditions{"user": {"root"}}},
		},
	}

	defs, err := Prepare(ctx, s, resolver)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	a := defs[0]
	require.Equal(t, []string{"smoke", "fast"}, a.Modes)
	require.Equal(t, []string{"smoke", "fast"}, a.Configs[0].Modes)
	require.Equal(t, core.Conditions{"arch": {"x86", "arm"}, "os": {"linux"}}, a.Configs[0].OnlyIf)
	require.Equal(t, core.Conditions{}, a.Configs[0].NotIf)

	b := defs[1]
	require.Equal(t, []string{"smoke"}, b.Modes)
	require.True(t, b.DependsPass)
	require.Equal(t, []string{"a"}, b.DependsOn)
	require.Len(t, b.Configs, 2)
	require.Equal(t, core.Conditions{"user": {"root"}}, b.Configs[1].NotIf)

	t.Run("ResolveError", func(t *testing.T) {
		_, err := Prepare(ctx, &Series{Tests: []SeriesTest{{Name: "zzz"}}}, resolver)
		require.ErrorIs(t, err, core.ErrTestNotFound)
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, err := Prepare(ctx, &Series{Tests: []SeriesTest{{Name: "a"}, {Name: "a"}}}, resolver)
		require.ErrorIs(t, err, core.ErrDuplicateTest)
	})
}
