package config

// Definition holds the raw configuration as read from the config file and
// environment. Each field maps to a configuration key.
type Definition struct {
	// Debug toggles debug logging.
	Debug bool `mapstructure:"debug"`

	// LogFormat defines the output format for log messages.
	// Available options: "json", "text"
	LogFormat string `mapstructure:"logFormat"`

	// Paths holds filesystem locations used by the application.
	Paths *PathsDef `mapstructure:"paths"`

	// Scheduler holds settings for the series scheduler loop.
	Scheduler *SchedulerDef `mapstructure:"scheduler"`

	// Launcher holds settings for starting test processes.
	Launcher *LauncherDef `mapstructure:"launcher"`
}

// PathsDef represents the path configuration.
type PathsDef struct {
	// WorkingDir is the root holding series, test_runs and users.
	WorkingDir string `mapstructure:"workingDir"`
	// ConfigDirs are searched in order for series, tests and modes.
	ConfigDirs []string `mapstructure:"configDirs"`
	// LogDir holds one log file per series run.
	LogDir string `mapstructure:"logDir"`
}

// SchedulerDef represents the scheduler configuration.
type SchedulerDef struct {
	// PollInterval is a Go duration string, e.g. "1s".
	PollInterval string `mapstructure:"pollInterval"`
	// Watch enables filesystem notifications for completion markers.
	Watch bool `mapstructure:"watch"`
}

// LauncherDef represents the launcher configuration.
type LauncherDef struct {
	// Shell runs commands that contain shell syntax. Empty means direct exec.
	Shell string `mapstructure:"shell"`
	// EnvFiles are dotenv files added to the environment of every test.
	EnvFiles []string `mapstructure:"envFiles"`
}
