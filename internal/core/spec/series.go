// Package spec loads series, test and mode files and prepares the test
// definitions a series run schedules.
package spec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
)

// Subdirectories of a config directory.
const (
	SeriesDir = "series"
	TestsDir  = "tests"
	ModesDir  = "modes"
)

var (
	ErrSeriesFileNotFound = errors.New("series file not found")
	ErrInvalidSeriesFile  = errors.New("invalid series file")
	ErrEmptySeries        = errors.New("series has no tests")
)

// Series is a parsed series file.
type Series struct {
	Name    string       `json:"name"`
	Modes   []string     `json:"modes"`
	Ordered bool         `json:"ordered"`
	Tests   []SeriesTest `json:"series"`
}

// SeriesTest is one entry of the series section.
type SeriesTest struct {
	Name        string          `json:"name"`
	DependsOn   []string        `json:"depends_on"`
	Modes       []string        `json:"modes"`
	OnlyIf      core.Conditions `json:"only_if"`
	NotIf       core.Conditions `json:"not_if"`
	DependsPass bool            `json:"depends_pass"`
}

type seriesDef struct {
	Modes   []string                 `mapstructure:"modes"`
	Ordered bool                     `mapstructure:"ordered"`
	Series  map[string]seriesTestDef `mapstructure:"series"`
}

type seriesTestDef struct {
	DependsOn   []string            `mapstructure:"depends_on"`
	Modes       []string            `mapstructure:"modes"`
	OnlyIf      map[string][]string `mapstructure:"only_if"`
	NotIf       map[string][]string `mapstructure:"not_if"`
	DependsPass bool                `mapstructure:"depends_pass"`
}

// LoadSeries finds <dir>/series/<name>.yaml in the first config directory
// that has it and parses it.
func LoadSeries(ctx context.Context, configDirs []string, name string) (*Series, error) {
	dirs := make([]string, 0, len(configDirs))
	for _, dir := range configDirs {
		dirs = append(dirs, filepath.Join(dir, SeriesDir))
	}
	file, ok := fileutil.FindYAML(dirs, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSeriesFileNotFound, name)
	}
	logger.Debug(ctx, "Loading series file", tag.SeriesName(name), tag.File(file))
	return LoadSeriesFile(file)
}

// LoadSeriesFile parses the series file at path. The series is named after
// the file.
func LoadSeriesFile(path string) (*Series, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))]
	return ParseSeries(name, data)
}

// ParseSeries parses series YAML. Test entries keep the order of the file.
// With ordered set, every entry depends on the one declared before it.
func ParseSeries(name string, data []byte) (*Series, error) {
	cm, err := unmarshalData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSeriesFile, name, err)
	}
	var def seriesDef
	if err := decode(cm, &def); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSeriesFile, name, err)
	}
	if len(def.Series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySeries, name)
	}

	order, err := orderedKeys(data, "series")
	if err != nil || len(order) != len(def.Series) {
		// Fall back to a stable order when the file order is unavailable.
		order = make([]string, 0, len(def.Series))
		for testName := range def.Series {
			order = append(order, testName)
		}
		slices.Sort(order)
	}

	s := &Series{
		Name:    name,
		Modes:   def.Modes,
		Ordered: def.Ordered,
	}
	for _, testName := range order {
		t := def.Series[testName]
		s.Tests = append(s.Tests, SeriesTest{
			Name:        testName,
			DependsOn:   t.DependsOn,
			Modes:       t.Modes,
			OnlyIf:      core.Conditions(t.OnlyIf),
			NotIf:       core.Conditions(t.NotIf),
			DependsPass: t.DependsPass,
		})
	}

	if s.Ordered {
		s.applyOrder()
	}
	return s, nil
}

func (s *Series) applyOrder() {
	for i := 1; i < len(s.Tests); i++ {
		prev := s.Tests[i-1].Name
		if !slices.Contains(s.Tests[i].DependsOn, prev) {
			s.Tests[i].DependsOn = append(s.Tests[i].DependsOn, prev)
		}
	}
}
