package output

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dagu-org/testseries/internal/core"
	"github.com/dagu-org/testseries/internal/persis/filetestrun"
	"github.com/dagu-org/testseries/internal/runtime"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *runtime.Result {
	t.Helper()
	ctx := context.Background()
	store := filetestrun.New(t.TempDir())

	pass, err := store.Create(ctx, core.TestConfig{Name: "build"}, "s3")
	require.NoError(t, err)
	require.NoError(t, pass.WriteResults(filetestrun.Results{Result: core.ResultPass}))

	fail, err := store.Create(ctx, core.TestConfig{Name: "unit", Permutation: "gcc"}, "s3")
	require.NoError(t, err)
	require.NoError(t, fail.WriteResults(filetestrun.Results{Result: core.ResultFail, Note: "exit status 1"}))
	require.NoError(t, os.WriteFile(fail.File(filetestrun.LogFile), []byte("line one\nassert failed\n"), 0600))

	skipped, err := store.CreateSkipped(ctx, core.TestConfig{Name: "deploy"}, "s3", core.SkipNote)
	require.NoError(t, err)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &runtime.Result{
		SeriesID: "s3",
		Names:    []string{"build", "unit", "deploy", "lint"},
		Order:    []string{"build", "lint", "unit", "deploy"},
		Started:  start,
		Finished: start.Add(90 * time.Second),
		Tests: map[string]*runtime.TestResult{
			"build": {
				Name: "build", Status: core.Finished, Passed: true,
				Instances: []core.Instance{pass},
				Results:   []runtime.InstanceResult{{ID: pass.ID(), Name: "build", Result: core.ResultPass}},
				Started:   start, Finished: start.Add(2 * time.Second),
			},
			"unit": {
				Name: "unit", Status: core.Finished,
				Instances: []core.Instance{fail},
				Results:   []runtime.InstanceResult{{ID: fail.ID(), Name: "unit.gcc", Result: core.ResultFail}},
			},
			"deploy": {
				Name: "deploy", Status: core.Skipped,
				Instances: []core.Instance{skipped},
				Results:   []runtime.InstanceResult{{ID: skipped.ID(), Name: "deploy", Result: core.ResultSkipped}},
			},
			"lint": {
				Name: "lint", Status: core.Finished,
				LaunchErr: errors.New("no such resolver"),
			},
		},
	}
}

func TestRenderRun(t *testing.T) {
	res := sampleResult(t)
	cfg := DefaultConfig()
	cfg.ColorEnabled = false

	out := NewRenderer(cfg).RenderRun("nightly", res)

	require.True(t, strings.HasPrefix(out, "Failed - 2026-01-02 03:04:05\n"))
	require.Contains(t, out, "series: nightly s3 (1m30s)")
	require.Contains(t, out, "├─✓ build (2s) [finished]")
	require.Contains(t, out, "#0000002 unit.gcc FAIL")
	require.Contains(t, out, "exit status 1")
	require.Contains(t, out, "assert failed")
	require.Contains(t, out, core.SkipNote)
	require.Contains(t, out, "└─✗ lint [finished]")
	require.Contains(t, out, "error: no such resolver")
	require.True(t, strings.HasSuffix(out, "\nResult: Failed\n"))
	require.NotContains(t, out, "\033[")
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, sampleResult(t), false)
	out := buf.String()

	build := strings.Index(out, "build")
	lint := strings.Index(out, "lint")
	unit := strings.Index(out, "unit")
	require.Less(t, build, lint)
	require.Less(t, lint, unit)
	require.Contains(t, out, "Skipped")
	require.Contains(t, out, "1/4")
}

func TestRenderInstances(t *testing.T) {
	var buf bytes.Buffer
	RenderInstances(&buf, []InstanceRow{
		{ID: 12, Name: "build", State: core.StateComplete, Result: core.ResultPass},
		{ID: 13, Name: "unit.gcc", State: core.StateRunning},
	}, false)
	out := buf.String()
	require.Contains(t, out, "unit.gcc")
	require.Contains(t, out, "RUNNING")
	require.Contains(t, out, "PASS")
}

func TestReadLogFileTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n\n"), 0600))

	lines, truncated, err := ReadLogFileTail(path, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, lines)
	require.Equal(t, 1, truncated)

	lines, truncated, err = ReadLogFileTail(path, 0)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Zero(t, truncated)

	lines, _, err = ReadLogFileTail(filepath.Join(dir, "missing"), 5)
	require.NoError(t, err)
	require.Nil(t, lines)
}

func TestWrapText(t *testing.T) {
	require.Equal(t, []string{"short"}, wrapText("short", 20))
	require.Equal(t, []string{"aaaa bbbb", "cccc"}, wrapText("aaaa bbbb cccc", 10))
	require.Equal(t, []string{"abcde", "fgh"}, wrapText("abcdefgh", 5))
}

func TestStatusText(t *testing.T) {
	require.Equal(t, "Pending", StatusText(core.Pending))
	require.Equal(t, "Skipped", StatusText(core.Skipped))
	require.Equal(t, SymbolSkipped, ResultSymbol(core.ResultSkipped))
	require.Equal(t, SymbolFailed, DefinitionSymbol(core.Finished, false))
}
