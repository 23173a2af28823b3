package config

import (
	"fmt"
	"time"
)

// Config holds the overall configuration for the application.
type Config struct {
	Core      Core
	Paths     PathsConfig
	Scheduler Scheduler
	Launcher  Launcher
	Warnings  []string
}

// Core contains global settings.
type Core struct {
	Debug     bool
	LogFormat string
}

// PathsConfig contains the resolved filesystem layout.
type PathsConfig struct {
	WorkingDir     string
	SeriesDir      string
	TestRunsDir    string
	UsersDir       string
	ConfigDirs     []string
	LogDir         string
	ConfigFileUsed string
}

// Scheduler contains settings for the poll loop.
type Scheduler struct {
	PollInterval time.Duration
	Watch        bool
}

// Launcher contains settings for starting test processes.
type Launcher struct {
	Shell    string
	EnvFiles []string
}

// Validate checks the configuration for values the application cannot run
// with.
func (c *Config) Validate() error {
	if c.Paths.WorkingDir == "" {
		return fmt.Errorf("paths.workingDir must be set")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("invalid scheduler.pollInterval: %s", c.Scheduler.PollInterval)
	}
	switch c.Core.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logFormat: %q", c.Core.LogFormat)
	}
	return nil
}
