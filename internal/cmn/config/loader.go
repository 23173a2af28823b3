package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dagu-org/testseries/internal/build"
	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/spf13/viper"
)

const defaultPollInterval = time.Second

// ConfigLoader reads and merges configuration from various sources.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	appHomeDir string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile returns a ConfigLoaderOption that sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithAppHomeDir overrides the home directory resolution. All default
// paths are placed under dir.
func WithAppHomeDir(dir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.appHomeDir = dir
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load is a shorthand for NewConfigLoader(viper.GetViper(), options...).Load().
func Load(options ...ConfigLoaderOption) (*Config, error) {
	return NewConfigLoader(viper.GetViper(), options...).Load()
}

// Load reads configuration files, applies defaults and environment overrides,
// and returns a validated Config instance.
func (l *ConfigLoader) Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}

	var paths Paths
	if l.appHomeDir != "" {
		home, err := fileutil.ResolvePath(l.appHomeDir)
		if err != nil {
			return nil, err
		}
		paths = setUnifiedPaths(home)
	} else {
		appHomeEnv := strings.ToUpper(build.Slug) + "_HOME"
		paths = ResolvePaths(appHomeEnv, filepath.Join(homeDir, "."+build.Slug), XDGConfig{
			DataHome:   xdg.DataHome,
			ConfigHome: xdg.ConfigHome,
		})
	}

	l.configureViper(paths.ConfigDir)
	l.bindEnvironmentVariables()
	l.setViperDefaultValues(paths)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, err
	}

	cfg.Paths.ConfigFileUsed = l.v.ConfigFileUsed()
	cfg.Warnings = append(cfg.Warnings, l.warnings...)
	return cfg, nil
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := &Config{
		Core: Core{
			Debug:     def.Debug,
			LogFormat: strings.ToLower(def.LogFormat),
		},
	}

	if err := l.loadPathsConfig(cfg, def); err != nil {
		return nil, err
	}
	l.loadSchedulerConfig(cfg, def)
	if def.Launcher != nil {
		cfg.Launcher.Shell = def.Launcher.Shell
		for _, f := range def.Launcher.EnvFiles {
			resolved, err := l.resolvePath("launcher.envFiles", f)
			if err != nil {
				return nil, err
			}
			if resolved != "" {
				cfg.Launcher.EnvFiles = append(cfg.Launcher.EnvFiles, resolved)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) loadPathsConfig(cfg *Config, def Definition) error {
	if def.Paths == nil {
		return nil
	}

	workingDir, err := l.resolvePath("workingDir", def.Paths.WorkingDir)
	if err != nil {
		return err
	}
	cfg.Paths.WorkingDir = workingDir
	cfg.Paths.SeriesDir = filepath.Join(workingDir, "series")
	cfg.Paths.TestRunsDir = filepath.Join(workingDir, "test_runs")
	cfg.Paths.UsersDir = filepath.Join(workingDir, "users")

	logDir, err := l.resolvePath("logDir", def.Paths.LogDir)
	if err != nil {
		return err
	}
	cfg.Paths.LogDir = logDir

	for _, dir := range def.Paths.ConfigDirs {
		resolved, err := l.resolvePath("configDirs", dir)
		if err != nil {
			return err
		}
		if resolved != "" {
			cfg.Paths.ConfigDirs = append(cfg.Paths.ConfigDirs, resolved)
		}
	}
	return nil
}

func (l *ConfigLoader) loadSchedulerConfig(cfg *Config, def Definition) {
	cfg.Scheduler.PollInterval = defaultPollInterval
	if def.Scheduler == nil {
		return
	}
	cfg.Scheduler.Watch = def.Scheduler.Watch
	if d := l.parseDuration("scheduler.pollInterval", def.Scheduler.PollInterval); d > 0 {
		cfg.Scheduler.PollInterval = d
	}
}

// resolvePath resolves a path to an absolute path. Empty paths are returned as-is.
func (l *ConfigLoader) resolvePath(fieldName, pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	resolved, err := fileutil.ResolvePath(pathValue)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s path %q: %w", fieldName, pathValue, err)
	}
	return resolved, nil
}

// parseDuration parses a duration string, returning zero and adding a warning if invalid.
func (l *ConfigLoader) parseDuration(fieldName, value string) time.Duration {
	if value == "" {
		return 0
	}
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %s", fieldName, value))
		return 0
	}
	return duration
}

func (l *ConfigLoader) setViperDefaultValues(paths Paths) {
	l.v.SetDefault("debug", false)
	l.v.SetDefault("logFormat", "text")
	l.v.SetDefault("paths.workingDir", paths.WorkingDir)
	l.v.SetDefault("paths.configDirs", []string{paths.ConfigDir})
	l.v.SetDefault("paths.logDir", paths.LogDir)
	l.v.SetDefault("scheduler.pollInterval", defaultPollInterval.String())
	l.v.SetDefault("scheduler.watch", false)
	l.v.SetDefault("launcher.shell", "")
	l.v.SetDefault("launcher.envFiles", []string{})
}

type envBinding struct {
	key    string
	env    string
	isPath bool
}

var envBindings = []envBinding{
	{key: "debug", env: "DEBUG"},
	{key: "logFormat", env: "LOG_FORMAT"},
	{key: "paths.workingDir", env: "WORKING_DIR", isPath: true},
	{key: "paths.configDirs", env: "CONFIG_DIRS"},
	{key: "paths.logDir", env: "LOG_DIR", isPath: true},
	{key: "scheduler.pollInterval", env: "POLL_INTERVAL"},
	{key: "scheduler.watch", env: "WATCH"},
	{key: "launcher.shell", env: "SHELL"},
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := strings.ToUpper(build.Slug) + "_"

	for _, b := range envBindings {
		fullEnv := prefix + b.env

		if b.isPath {
			if val := os.Getenv(fullEnv); val != "" {
				if abs, err := filepath.Abs(val); err == nil && abs != val {
					_ = os.Setenv(fullEnv, abs)
				}
			}
		}

		_ = l.v.BindEnv(b.key, fullEnv)
	}
}

func (l *ConfigLoader) configureViper(configDir string) {
	if l.configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(build.Slug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	l.v.AutomaticEnv()
}
