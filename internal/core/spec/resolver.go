package spec

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
)

var (
	ErrModeNotFound      = errors.New("mode file not found")
	ErrInvalidTestFile   = errors.New("invalid test file")
	ErrUnknownPermuteVar = errors.New("permute_on refers to an unknown variable")
	ErrEmptyPermuteVar   = errors.New("permute_on variable has no values")
	ErrCommandRequired   = errors.New("test command is required")
)

var _ core.ConfigResolver = (*FileResolver)(nil)

// FileResolver resolves tests from <dir>/tests/<name>.yaml, overlaid with
// <dir>/modes/<mode>.yaml for each requested mode. Directories are searched
// in order and the first match wins.
type FileResolver struct {
	configDirs []string
}

// NewFileResolver creates a resolver over the given config directories.
func NewFileResolver(configDirs []string) *FileResolver {
	return &FileResolver{configDirs: slices.Clone(configDirs)}
}

// testDef is the decoded form of a test or mode file.
type testDef struct {
	Command   string              `mapstructure:"command"`
	Summary   string              `mapstructure:"summary"`
	Variables map[string][]string `mapstructure:"variables"`
	OnlyIf    core.Conditions     `mapstructure:"only_if"`
	NotIf     core.Conditions     `mapstructure:"not_if"`
	PermuteOn []string            `mapstructure:"permute_on"`
}

// Resolve implements core.ConfigResolver. Each combination of the values of
// the permute_on variables yields one configuration.
func (r *FileResolver) Resolve(ctx context.Context, name string, modes []string) ([]core.TestConfig, error) {
	file, ok := r.find(TestsDir, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTestNotFound, name)
	}
	def, err := loadTestDef(file)
	if err != nil {
		return nil, err
	}

	for _, mode := range modes {
		modeFile, ok := r.find(ModesDir, mode)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrModeNotFound, mode)
		}
		overlay, err := loadTestDef(modeFile)
		if err != nil {
			return nil, err
		}
		if err := merge(def, overlay); err != nil {
			return nil, fmt.Errorf("failed to apply mode %s to %s: %w", mode, name, err)
		}
		logger.Debug(ctx, "Applied mode", tag.Test(name), tag.File(modeFile))
	}

	if strings.TrimSpace(def.Command) == "" {
		return nil, fmt.Errorf("%w: %s", ErrCommandRequired, name)
	}

	perms, err := permutations(def.Variables, def.PermuteOn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	configs := make([]core.TestConfig, 0, len(perms))
	for _, perm := range perms {
		configs = append(configs, core.TestConfig{
			Name:        name,
			Permutation: perm.label,
			Modes:       slices.Clone(modes),
			Command:     def.Command,
			Variables:   perm.vars,
			OnlyIf:      def.OnlyIf.Clone(),
			NotIf:       def.NotIf.Clone(),
		})
	}
	return configs, nil
}

func (r *FileResolver) find(subdir, name string) (string, bool) {
	dirs := make([]string, 0, len(r.configDirs))
	for _, dir := range r.configDirs {
		dirs = append(dirs, filepath.Join(dir, subdir))
	}
	return fileutil.FindYAML(dirs, name)
}

func loadTestDef(file string) (*testDef, error) {
	cm, err := readYAMLFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTestFile, err)
	}
	def := new(testDef)
	if err := decode(cm, def); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTestFile, file, err)
	}
	return def, nil
}

type mergeTransformer struct{}

var _ mergo.Transformers = (*mergeTransformer)(nil)

func (*mergeTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	// Conditions from a mode are added to the test's own.
	if typ == reflect.TypeOf(core.Conditions{}) {
		return func(dst, src reflect.Value) error {
			if !dst.CanSet() || src.Len() == 0 {
				return nil
			}
			merged := core.MergeConditions(dst.Interface().(core.Conditions), src.Interface().(core.Conditions))
			dst.Set(reflect.ValueOf(merged))
			return nil
		}
	}
	return nil
}

// merge overlays src onto dst. Scalars are overridden, variables are merged
// key by key and conditions are unioned.
func merge(dst, src *testDef) error {
	return mergo.Merge(dst, src, mergo.WithOverride,
		mergo.WithTransformers(&mergeTransformer{}))
}

type permutation struct {
	label string
	vars  map[string]string
}

// permutations expands the cartesian product of the permute_on variables.
// Variables not permuted on take their first value.
func permutations(vars map[string][]string, permuteOn []string) ([]permutation, error) {
	base := make(map[string]string, len(vars))
	for key, values := range vars {
		if len(values) > 0 {
			base[key] = values[0]
		} else {
			base[key] = ""
		}
	}

	perms := []permutation{{vars: base}}
	for _, key := range permuteOn {
		values, ok := vars[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPermuteVar, key)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPermuteVar, key)
		}

		next := make([]permutation, 0, len(perms)*len(values))
		for _, p := range perms {
			for _, value := range values {
				vars := make(map[string]string, len(p.vars))
				for k, v := range p.vars {
					vars[k] = v
				}
				vars[key] = value

				label := value
				if p.label != "" {
					label = p.label + "-" + value
				}
				next = append(next, permutation{label: label, vars: vars})
			}
		}
		perms = next
	}
	return perms, nil
}
