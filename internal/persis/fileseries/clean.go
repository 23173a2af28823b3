package fileseries

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/persis/iddir"
)

// RemoveOrphans deletes series directories under baseDir that no longer
// link to any existing test run and returns their ids. With dryRun set,
// nothing is removed.
func RemoveOrphans(ctx context.Context, baseDir string, dryRun bool) ([]int, error) {
	ids, err := iddir.List(baseDir)
	if err != nil {
		return nil, err
	}

	var removed []int
	for _, id := range ids {
		dir := iddir.Path(baseDir, id)
		if !fileutil.IsDir(dir) || hasLiveLink(dir) {
			continue
		}
		if dryRun {
			logger.Info(ctx, "Orphaned series", tag.Series(FormatID(id)), tag.Dir(dir))
			removed = append(removed, id)
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("failed to remove series %s: %w", FormatID(id), err)
		}
		logger.Info(ctx, "Removed orphaned series", tag.Series(FormatID(id)), tag.Dir(dir))
		removed = append(removed, id)
	}

	if len(removed) > 0 && !dryRun {
		if err := iddir.ResetNext(ctx, baseDir); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func hasLiveLink(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		target, err := filepath.EvalSymlinks(filepath.Join(dir, entry.Name()))
		if err == nil && fileutil.FileExists(target) {
			return true
		}
	}
	return false
}
