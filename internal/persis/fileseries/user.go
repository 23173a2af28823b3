package fileseries

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
)

// Login returns the invoking user's login name.
func Login() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

func userSeriesFile(usersDir string) string {
	return filepath.Join(usersDir, Login()+".series")
}

// SaveUserSeriesID records seriesID as the last series of the invoking user.
func SaveUserSeriesID(usersDir, seriesID string) error {
	if err := os.MkdirAll(usersDir, 0750); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(userSeriesFile(usersDir), []byte(seriesID), 0600)
}

// LoadUserSeriesID returns the last series id saved for the invoking user,
// or "" when none was saved or it cannot be read.
func LoadUserSeriesID(ctx context.Context, usersDir string) string {
	path := userSeriesFile(usersDir)
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn(ctx, "Failed to read series id file", tag.File(path), tag.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
