package filetestrun

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/core"
)

// Files kept in a test run directory.
const (
	ConfigFile  = "config.json"
	StatusFile  = "status"
	ResultsFile = "results.json"
	LogFile     = "run.log"
)

var (
	ErrInvalidTestRunDir = errors.New("invalid test run directory")
	ErrConfigRead        = errors.New("failed to read test run config")
)

var _ core.Instance = (*TestRun)(nil)

// Record is what config.json holds.
type Record struct {
	ID       int             `json:"id"`
	SeriesID string          `json:"series_id,omitempty"`
	Config   core.TestConfig `json:"config"`
	Created  time.Time       `json:"created"`
}

// Results is what results.json holds.
type Results struct {
	Result   string    `json:"result"`
	Note     string    `json:"note,omitempty"`
	ExitCode *int      `json:"exit_code,omitempty"`
	Finished time.Time `json:"finished,omitzero"`
}

// StatusEntry is one line of the status file.
type StatusEntry struct {
	Time  time.Time
	State core.InstanceState
	Note  string
}

// TestRun is a test run directory on disk.
type TestRun struct {
	id     int
	path   string
	record Record
}

// ID implements core.Instance.
func (r *TestRun) ID() int { return r.id }

// Name implements core.Instance.
func (r *TestRun) Name() string { return r.record.Config.DisplayName() }

// Path implements core.Instance.
func (r *TestRun) Path() string { return r.path }

// SeriesID returns the owning series, if any.
func (r *TestRun) SeriesID() string { return r.record.SeriesID }

// Config returns the resolved configuration the run was created with.
func (r *TestRun) Config() core.TestConfig { return r.record.Config }

// Created returns the creation time.
func (r *TestRun) Created() time.Time { return r.record.Created }

// File returns the path of name inside the run directory.
func (r *TestRun) File(name string) string {
	return filepath.Join(r.path, name)
}

// IsComplete implements core.Instance.
func (r *TestRun) IsComplete() bool {
	return fileutil.FileExists(r.File(core.MarkerFile))
}

// Result implements core.Instance.
func (r *TestRun) Result() (string, error) {
	res, err := r.Results()
	if err != nil {
		return "", err
	}
	if res.Result == "" {
		return "", fmt.Errorf("%w: %s", core.ErrNoResult, r.File(ResultsFile))
	}
	return res.Result, nil
}

// Results reads results.json.
func (r *TestRun) Results() (Results, error) {
	var res Results
	if err := fileutil.ReadJSONFile(r.File(ResultsFile), &res); err != nil {
		if os.IsNotExist(err) {
			return res, fmt.Errorf("%w: %s", core.ErrNoResult, r.File(ResultsFile))
		}
		return res, err
	}
	return res, nil
}

// WriteResults writes results.json atomically.
func (r *TestRun) WriteResults(res Results) error {
	if res.Finished.IsZero() {
		res.Finished = time.Now()
	}
	return fileutil.WriteJSONFile(r.File(ResultsFile), res)
}

// SetStatus appends an entry to the status file.
func (r *TestRun) SetStatus(state core.InstanceState, note string) error {
	f, err := fileutil.OpenOrCreateFile(r.File(StatusFile))
	if err != nil {
		return fmt.Errorf("failed to open status file: %w", err)
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("%s %s %s\n", time.Now().Format(time.RFC3339Nano), state, note)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// Status returns the most recent status entry.
func (r *TestRun) Status() (StatusEntry, error) {
	f, err := os.Open(r.File(StatusFile))
	if err != nil {
		return StatusEntry{}, err
	}
	defer func() { _ = f.Close() }()

	var last string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return StatusEntry{}, err
	}
	return parseStatusLine(last)
}

// SetComplete creates the completion marker.
func (r *TestRun) SetComplete() error {
	f, err := os.OpenFile(r.File(core.MarkerFile), os.O_CREATE|os.O_WRONLY, 0600) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to create completion marker: %w", err)
	}
	return f.Close()
}

func parseStatusLine(line string) (StatusEntry, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return StatusEntry{}, fmt.Errorf("malformed status line: %q", line)
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return StatusEntry{}, fmt.Errorf("malformed status time: %w", err)
	}
	entry := StatusEntry{Time: ts, State: core.InstanceState(parts[1])}
	if len(parts) == 3 {
		entry.Note = parts[2]
	}
	return entry, nil
}
