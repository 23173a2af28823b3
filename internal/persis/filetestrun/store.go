// Package filetestrun stores test runs as numbered directories under the
// working directory's test_runs folder.
package filetestrun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
	"github.com/dagu-org/testseries/internal/persis/iddir"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	runCacheSize = 1024
	runCacheTTL  = time.Hour
)

var _ core.InstanceStore = (*Store)(nil)

// Store creates and loads test runs under baseDir. Loaded runs are cached by
// path since config.json never changes after creation.
type Store struct {
	baseDir string
	runs    *expirable.LRU[string, *TestRun]
}

// New creates a store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		runs:    expirable.NewLRU[string, *TestRun](runCacheSize, nil, runCacheTTL),
	}
}

// BaseDir returns the directory holding the test runs.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Create allocates a new test run directory and records cfg in it.
func (s *Store) Create(ctx context.Context, cfg core.TestConfig, seriesID string) (*TestRun, error) {
	id, dir, err := iddir.Create(ctx, s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate test run: %w", err)
	}

	run := &TestRun{
		id:   id,
		path: dir,
		record: Record{
			ID:       id,
			SeriesID: seriesID,
			Config:   cfg,
			Created:  time.Now(),
		},
	}
	if err := fileutil.WriteJSONFile(run.File(ConfigFile), run.record); err != nil {
		return nil, err
	}
	if err := run.SetStatus(core.StateCreated, "Created test run."); err != nil {
		return nil, err
	}
	s.runs.Add(dir, run)

	logger.Debug(ctx, "Created test run",
		tag.TestRunID(id),
		tag.Test(cfg.DisplayName()),
		tag.Dir(dir),
	)
	return run, nil
}

// CreateSkipped implements core.InstanceStore.
func (s *Store) CreateSkipped(ctx context.Context, cfg core.TestConfig, seriesID, note string) (core.Instance, error) {
	run, err := s.Create(ctx, cfg, seriesID)
	if err != nil {
		return nil, err
	}
	if err := run.WriteResults(Results{Result: core.ResultSkipped, Note: note}); err != nil {
		return nil, err
	}
	if err := run.SetStatus(core.StateComplete, note); err != nil {
		return nil, err
	}
	if err := run.SetComplete(); err != nil {
		return nil, err
	}
	return run, nil
}

// Load implements core.InstanceStore. A cached run is returned only while
// its directory still exists.
func (s *Store) Load(_ context.Context, path string) (core.Instance, error) {
	if run, ok := s.runs.Get(path); ok {
		if _, err := os.Stat(run.File(ConfigFile)); err == nil {
			return run, nil
		}
		s.runs.Remove(path)
	}
	run, err := Open(path)
	if err != nil {
		return nil, err
	}
	s.runs.Add(path, run)
	return run, nil
}

// LoadByID opens the test run with the given id.
func (s *Store) LoadByID(ctx context.Context, id int) (*TestRun, error) {
	inst, err := s.Load(ctx, iddir.Path(s.baseDir, id))
	if err != nil {
		return nil, err
	}
	return inst.(*TestRun), nil
}

// Open reads the test run stored at path. The directory name must be a
// numeric id.
func Open(path string) (*TestRun, error) {
	id, ok := iddir.ParseName(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTestRunDir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTestRunDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidTestRunDir, path)
	}

	run := &TestRun{id: id, path: path}
	if err := fileutil.ReadJSONFile(run.File(ConfigFile), &run.record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}
	return run, nil
}
