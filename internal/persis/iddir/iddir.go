// Package iddir manages directories named by a zero padded integer id. The
// directory name works as a filesystem primary key.
package iddir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	// Digits is the width of a formatted id.
	Digits = 7
	// NextIDFile caches the next id to try.
	NextIDFile = "next_id"
	// LockFile serializes allocation across processes.
	LockFile = ".lockfile"

	lockTimeout   = time.Second
	lockRetryWait = 10 * time.Millisecond
)

var ErrLockTimeout = errors.New("timed out waiting for id directory lock")

// FormatName returns the directory name for id.
func FormatName(id int) string {
	return fmt.Sprintf("%0*d", Digits, id)
}

// ParseName parses a directory name produced by FormatName. Names that are
// not all digits are rejected.
func ParseName(name string) (int, bool) {
	if name == "" || strings.TrimLeft(name, "0123456789") != "" {
		return 0, false
	}
	id, err := strconv.Atoi(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Path returns the full path of id under base.
func Path(base string, id int) string {
	return filepath.Join(base, FormatName(id))
}

// IsMetadata reports whether name is one of the bookkeeping files kept in an
// id directory.
func IsMetadata(name string) bool {
	return name == NextIDFile || name == LockFile
}

// Create makes the lowest numbered id directory under base that does not
// exist yet and returns its id and path. The cached next id is trusted when
// its directory is free; otherwise base is scanned.
func Create(ctx context.Context, base string) (int, string, error) {
	if err := os.MkdirAll(base, 0750); err != nil {
		return 0, "", fmt.Errorf("failed to create directory %s: %w", base, err)
	}

	unlock, err := lock(ctx, base)
	if err != nil {
		return 0, "", err
	}
	defer unlock()

	nextPath := filepath.Join(base, NextIDFile)
	id, ok := readNext(nextPath)
	if !ok || exists(Path(base, id)) {
		ids, err := List(base)
		if err != nil {
			return 0, "", err
		}
		id = lowestFree(ids)
	}

	dir := Path(base, id)
	if err := os.Mkdir(dir, 0750); err != nil {
		return 0, "", fmt.Errorf("failed to create id directory %s: %w", dir, err)
	}
	if err := os.WriteFile(nextPath, []byte(strconv.Itoa(id+1)), 0600); err != nil {
		return 0, "", fmt.Errorf("failed to write %s: %w", nextPath, err)
	}
	return id, dir, nil
}

// List returns the ids present under base in ascending order.
func List(base string) ([]int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", base, err)
	}
	var ids []int
	for _, entry := range entries {
		if id, ok := ParseName(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// ResetNext removes the cached next id so the following Create rescans.
func ResetNext(ctx context.Context, base string) error {
	unlock, err := lock(ctx, base)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(filepath.Join(base, NextIDFile)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func lock(ctx context.Context, base string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	fl := flock.New(filepath.Join(base, LockFile))
	locked, err := fl.TryLockContext(ctx, lockRetryWait)
	if err != nil || !locked {
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			err = ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to lock %s: %w", base, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

func readNext(path string) (int, bool) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func lowestFree(sorted []int) int {
	next := 1
	for _, id := range sorted {
		if id == next {
			next++
		} else if id > next {
			break
		}
	}
	return next
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
