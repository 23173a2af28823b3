package filetestrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dagu-org/testseries/internal/core"
	"github.com/stretchr/testify/require"
)

func TestStore_Create(t *testing.T) {
	ctx := context.Background()
	store := New(filepath.Join(t.TempDir(), "test_runs"))

	cfg := core.TestConfig{
		Name:        "build",
		Permutation: "gcc",
		Command:     "make",
		Variables:   map[string]string{"compiler": "gcc"},
	}
	run, err := store.Create(ctx, cfg, "s3")
	require.NoError(t, err)
	require.Equal(t, 1, run.ID())
	require.Equal(t, "build.gcc", run.Name())
	require.Equal(t, "s3", run.SeriesID())
	require.False(t, run.IsComplete())
	require.FileExists(t, run.File(ConfigFile))

	status, err := run.Status()
	require.NoError(t, err)
	require.Equal(t, core.StateCreated, status.State)

	_, err = run.Result()
	require.ErrorIs(t, err, core.ErrNoResult)

	loaded, err := store.LoadByID(ctx, run.ID())
	require.NoError(t, err)
	require.Equal(t, cfg, loaded.Config())
	require.Equal(t, run.Path(), loaded.Path())

	second, err := store.Create(ctx, cfg, "s3")
	require.NoError(t, err)
	require.Equal(t, 2, second.ID())
}

func TestStore_CreateSkipped(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	inst, err := store.CreateSkipped(ctx, core.TestConfig{Name: "run"}, "s1", core.SkipNote)
	require.NoError(t, err)
	require.True(t, inst.IsComplete())

	result, err := inst.Result()
	require.NoError(t, err)
	require.Equal(t, core.ResultSkipped, result)

	run := inst.(*TestRun)
	status, err := run.Status()
	require.NoError(t, err)
	require.Equal(t, core.StateComplete, status.State)
	require.Equal(t, core.SkipNote, status.Note)

	res, err := run.Results()
	require.NoError(t, err)
	require.Equal(t, core.SkipNote, res.Note)
	require.False(t, res.Finished.IsZero())
}

func TestTestRun_Results(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())
	run, err := store.Create(ctx, core.TestConfig{Name: "a"}, "")
	require.NoError(t, err)

	code := 0
	require.NoError(t, run.WriteResults(Results{Result: core.ResultPass, ExitCode: &code}))
	require.NoError(t, run.SetComplete())
	require.True(t, run.IsComplete())

	result, err := run.Result()
	require.NoError(t, err)
	require.Equal(t, core.ResultPass, result)

	require.NoError(t, os.WriteFile(run.File(ResultsFile), []byte(`{"note":"x"}`), 0600))
	_, err = run.Result()
	require.ErrorIs(t, err, core.ErrNoResult)

	require.NoError(t, os.WriteFile(run.File(ResultsFile), []byte(`{`), 0600))
	_, err = run.Result()
	require.Error(t, err)
}

func TestOpen_Invalid(t *testing.T) {
	base := t.TempDir()

	_, err := Open(filepath.Join(base, "not-an-id"))
	require.ErrorIs(t, err, ErrInvalidTestRunDir)

	_, err = Open(filepath.Join(base, "0000009"))
	require.ErrorIs(t, err, ErrInvalidTestRunDir)

	file := filepath.Join(base, "0000002")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	_, err = Open(file)
	require.ErrorIs(t, err, ErrInvalidTestRunDir)

	dir := filepath.Join(base, "0000003")
	require.NoError(t, os.Mkdir(dir, 0750))
	_, err = Open(dir)
	require.ErrorIs(t, err, ErrConfigRead)
}

func TestParseStatusLine(t *testing.T) {
	entry, err := parseStatusLine("2024-01-02T03:04:05Z COMPLETE Skipping. Previous test did not PASS.")
	require.NoError(t, err)
	require.Equal(t, core.StateComplete, entry.State)
	require.Equal(t, core.SkipNote, entry.Note)

	_, err = parseStatusLine("garbage")
	require.Error(t, err)
}

func TestStore_LoadCached(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())
	run, err := store.Create(ctx, core.TestConfig{Name: "a"}, "s1")
	require.NoError(t, err)

	first, err := store.Load(ctx, run.Path())
	require.NoError(t, err)
	require.Same(t, run, first)
	require.Equal(t, 1, store.runs.Len())

	require.NoError(t, os.RemoveAll(run.Path()))
	_, err = store.Load(ctx, run.Path())
	require.ErrorIs(t, err, ErrInvalidTestRunDir)
	require.Equal(t, 0, store.runs.Len())

	other := New(store.BaseDir())
	second, err := other.Create(ctx, core.TestConfig{Name: "b"}, "s1")
	require.NoError(t, err)
	fresh := New(store.BaseDir())
	loaded, err := fresh.LoadByID(ctx, second.ID())
	require.NoError(t, err)
	require.Equal(t, "b", loaded.Name())
	require.Equal(t, 1, fresh.runs.Len())
}
