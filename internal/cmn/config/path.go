package config

import (
	"os"
	"path/filepath"

	"github.com/dagu-org/testseries/internal/build"
	"github.com/dagu-org/testseries/internal/cmn/fileutil"
)

// Paths holds the default locations derived from the environment.
type Paths struct {
	// ConfigDir is the directory holding config.yaml and the series, tests
	// and modes subdirectories.
	ConfigDir string
	// WorkingDir is the root for series, test_runs and users.
	WorkingDir string
	// LogDir is where per series run logs are written.
	LogDir string
}

// XDGConfig contains the standard XDG directories used as a fallback.
type XDGConfig struct {
	DataHome   string
	ConfigHome string
}

// ResolvePaths determines application paths based on the application home
// environment variable, a legacy path, and an XDGConfig.
//
// Resolution logic:
// 1. If the environment variable (appHomeEnv) is set, everything lives under it.
// 2. Else, if legacyPath exists on disk, everything lives under it.
// 3. Otherwise, fall back to XDG-compliant defaults.
func ResolvePaths(appHomeEnv, legacyPath string, xdg XDGConfig) Paths {
	switch {
	case os.Getenv(appHomeEnv) != "":
		return setUnifiedPaths(os.Getenv(appHomeEnv))
	case fileutil.IsDir(legacyPath):
		return setUnifiedPaths(legacyPath)
	default:
		return Paths{
			ConfigDir:  filepath.Join(xdg.ConfigHome, build.Slug),
			WorkingDir: filepath.Join(xdg.DataHome, build.Slug, "working_dir"),
			LogDir:     filepath.Join(xdg.DataHome, build.Slug, "logs"),
		}
	}
}

func setUnifiedPaths(home string) Paths {
	return Paths{
		ConfigDir:  home,
		WorkingDir: filepath.Join(home, "working_dir"),
		LogDir:     filepath.Join(home, "logs"),
	}
}
