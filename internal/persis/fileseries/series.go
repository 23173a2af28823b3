// Package fileseries records series membership as a numbered directory
// holding one symlink per test run.
package fileseries

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
	"github.com/dagu-org/testseries/internal/persis/iddir"
	"github.com/samber/lo"
)

// Metadata files written into a series directory next to the links.
const (
	DependencyFile = "dependency"
	ConfigFile     = "config"
	MetricsFile    = "metrics.prom"
)

var metadataFiles = []string{DependencyFile, ConfigFile, MetricsFile}

var _ core.SeriesRegistry = (*Series)(nil)

// Series is a series directory and the instances linked into it.
type Series struct {
	id        int
	path      string
	instances map[int]core.Instance
}

// FormatID returns the external identifier for id.
func FormatID(id int) string {
	return "s" + strconv.Itoa(id)
}

// ParseID accepts "s12" or "12".
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "s"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidSeriesID, s)
	}
	return id, nil
}

// Create allocates a new series under baseDir and links the given
// instances into it. The new id is saved as the invoking user's last series
// in usersDir; failing to do so is only logged.
func Create(ctx context.Context, baseDir, usersDir string, instances ...core.Instance) (*Series, error) {
	id, dir, err := iddir.Create(ctx, baseDir)
	if err != nil {
		return nil, fmt.Errorf("could not get id or series directory in %s: %w", baseDir, err)
	}

	s := &Series{id: id, path: dir, instances: map[int]core.Instance{}}
	if err := s.AddInstances(ctx, instances...); err != nil {
		return nil, err
	}

	if err := SaveUserSeriesID(usersDir, s.SeriesID()); err != nil {
		logger.Warn(ctx, "Could not save series id",
			tag.Series(s.SeriesID()),
			tag.Dir(usersDir),
			tag.Error(err),
		)
	}

	logger.Info(ctx, "Created series", tag.Series(s.SeriesID()), tag.Dir(dir))
	return s, nil
}

// ID returns the numeric id.
func (s *Series) ID() int { return s.id }

// SeriesID implements core.SeriesRegistry.
func (s *Series) SeriesID() string { return FormatID(s.id) }

// Path returns the series directory.
func (s *Series) Path() string { return s.path }

// Instances returns the known instances ordered by id.
func (s *Series) Instances() []core.Instance {
	ids := lo.Keys(s.instances)
	slices.Sort(ids)
	return lo.Map(ids, func(id int, _ int) core.Instance { return s.instances[id] })
}

// AddInstances implements core.SeriesRegistry. Each instance is linked as
// <series dir>/<instance id> pointing at the instance directory.
func (s *Series) AddInstances(ctx context.Context, instances ...core.Instance) error {
	for _, inst := range instances {
		link := iddir.Path(s.path, inst.ID())
		if err := os.Symlink(inst.Path(), link); err != nil {
			return fmt.Errorf("%w: could not link %s in series at %s: %w",
				core.ErrLinkFailed, inst.Path(), link, err)
		}
		s.instances[inst.ID()] = inst
		logger.Debug(ctx, "Linked test run",
			tag.Series(s.SeriesID()),
			tag.TestRunID(inst.ID()),
			tag.Path(inst.Path()),
		)
	}
	return nil
}

// Timestamp returns the last modification time of the series directory.
func (s *Series) Timestamp() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// WriteJSON stores v as a metadata file inside the series directory.
func (s *Series) WriteJSON(name string, v any) error {
	return fileutil.WriteJSONFile(filepath.Join(s.path, name), v)
}

// ReadJSON reads a metadata file written by WriteJSON.
func (s *Series) ReadJSON(name string, v any) error {
	return fileutil.ReadJSONFile(filepath.Join(s.path, name), v)
}

// Load reconstructs the series with the given id from baseDir. The
// directory must exist. Entries that are not links to loadable test run
// directories are logged and skipped.
func Load(ctx context.Context, baseDir string, store core.InstanceStore, id int) (*Series, error) {
	dir := iddir.Path(baseDir, id)
	if !fileutil.IsDir(dir) {
		return nil, fmt.Errorf("%w: %s at %s", core.ErrSeriesNotFound, FormatID(id), dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read series directory %s: %w", dir, err)
	}

	s := &Series{id: id, path: dir, instances: map[int]core.Instance{}}
	ctx = logger.WithValues(ctx, tag.Series(s.SeriesID()))

	for _, entry := range entries {
		name := entry.Name()
		if slices.Contains(metadataFiles, name) || iddir.IsMetadata(name) {
			continue
		}
		entryPath := filepath.Join(dir, name)

		testID, ok := iddir.ParseName(name)
		if !ok {
			logger.Warn(ctx, "Bad test id in series directory", tag.Path(entryPath))
			continue
		}
		if entry.Type()&os.ModeSymlink == 0 {
			logger.Warn(ctx, "Polluted series directory, entry is not a link", tag.Path(entryPath))
			continue
		}
		target, err := filepath.EvalSymlinks(entryPath)
		if err != nil || !fileutil.IsDir(target) {
			logger.Warn(ctx, "Series link does not point at a directory",
				tag.Path(entryPath),
				tag.Error(err),
			)
			continue
		}

		inst, err := store.Load(ctx, target)
		if err != nil {
			logger.Warn(ctx, "Error loading test run",
				tag.TestRunID(testID),
				tag.Error(err),
			)
			continue
		}
		s.instances[inst.ID()] = inst
	}

	return s, nil
}
