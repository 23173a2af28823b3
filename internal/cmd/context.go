package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dagu-org/testseries/internal/cmn/config"
	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/persis/filetestrun"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Context holds the configuration and stores shared by a command.
type Context struct {
	context.Context

	Command      *cobra.Command
	Flags        []commandLineFlag
	Config       *config.Config
	Quiet        bool
	ColorEnabled bool
	Stdout       io.Writer
	TestRunStore *filetestrun.Store
}

// NewContext loads the configuration and sets up the logger for cmd.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := bindFlags(cmd, flags...); err != nil {
		return nil, err
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var loaderOpts []config.ConfigLoaderOption
	if cfgPath := viper.GetString("config"); cfgPath != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(cfgPath))
	}
	cfg, err := config.Load(loaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	colorEnabled := term.IsTerminal(int(os.Stdout.Fd())) // #nosec G115
	color.NoColor = !colorEnabled

	return newContext(ctx, cmd, flags, cfg, quiet, colorEnabled, os.Stdout), nil
}

func newContext(
	ctx context.Context,
	cmd *cobra.Command,
	flags []commandLineFlag,
	cfg *config.Config,
	quiet, colorEnabled bool,
	stdout io.Writer,
) *Context {
	c := &Context{
		Context:      config.WithConfig(ctx, cfg),
		Command:      cmd,
		Flags:        flags,
		Config:       cfg,
		Quiet:        quiet,
		ColorEnabled: colorEnabled,
		Stdout:       stdout,
		TestRunStore: filetestrun.New(cfg.Paths.TestRunsDir),
	}
	c.LogToFile(nil)

	for _, w := range cfg.Warnings {
		logger.Warn(c, w)
	}
	return c
}

// LogToFile replaces the context logger with one that also writes to f.
func (c *Context) LogToFile(f *os.File) {
	var opts []logger.Option
	if c.Config.Core.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if c.Quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if c.Config.Core.LogFormat != "" {
		opts = append(opts, logger.WithFormat(c.Config.Core.LogFormat))
	}
	if f != nil {
		opts = append(opts, logger.WithWriter(f))
	}
	c.Context = logger.WithLogger(c.Context, logger.NewLogger(opts...))
}

// OpenLogFile creates the log file for one execution of a series.
func (c *Context) OpenLogFile(seriesName, execID string) (*os.File, error) {
	dir := filepath.Join(c.Config.Paths.LogDir, fileutil.SafeName(seriesName))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to initialize directory %s: %w", dir, err)
	}

	timestamp := time.Now().Format("20060102.15:04:05.000")
	shortID := execID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return fileutil.OpenOrCreateFile(filepath.Join(dir, fmt.Sprintf("series_%s.%s.log", timestamp, shortID)))
}

// NewCommand wires runFunc into cmd with the common setup and error
// handling.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(cmd *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			fmt.Printf("Initialization error: %v\n", err)
			os.Exit(1)
		}
		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx, "Command failed", tag.Error(err))
			os.Exit(1)
		}
		return nil
	}

	return cmd
}

// genExecID creates an identifier for one execution of a series.
func genExecID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// withSignals returns a context cancelled on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
