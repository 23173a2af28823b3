package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core/spec"
	"github.com/dagu-org/testseries/internal/output"
	"github.com/dagu-org/testseries/internal/persis/fileseries"
	"github.com/dagu-org/testseries/internal/runtime"
	"github.com/dagu-org/testseries/internal/runtime/launcher"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// ErrSeriesFailed is returned when a series ran to completion but not every
// test passed.
var ErrSeriesFailed = errors.New("series did not pass")

// Run creates the command that runs a series.
func Run() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "run [flags] <series name>",
			Short: "Run a test series",
			Long: `Run the tests of a series, launching each test once its prerequisites are done.

Tests that set depends_pass are skipped when a prerequisite did not pass.

Examples:
  testseries run nightly
  testseries run --modes debug,quick nightly
  testseries run --watch nightly
`,
			Args: cobra.ExactArgs(1),
		},
		runFlags,
		runSeries,
	)
}

var runFlags = []commandLineFlag{
	modesFlag,
	watchFlag,
	noLogsFlag,
}

func runSeries(ctx *Context, args []string) error {
	name := args[0]
	cfg := ctx.Config

	s, err := spec.LoadSeries(ctx, cfg.Paths.ConfigDirs, name)
	if err != nil {
		return err
	}
	modes, err := ctx.Command.Flags().GetString("modes")
	if err != nil {
		return fmt.Errorf("failed to get modes flag: %w", err)
	}
	s.Modes = append(s.Modes, splitList(modes)...)

	defs, err := spec.Prepare(ctx, s, spec.NewFileResolver(cfg.Paths.ConfigDirs))
	if err != nil {
		return fmt.Errorf("failed to prepare series %s: %w", name, err)
	}
	graph, err := runtime.NewGraph(defs...)
	if err != nil {
		return fmt.Errorf("invalid series %s: %w", name, err)
	}
	env, err := launcher.LoadEnvFiles(cfg.Launcher.EnvFiles...)
	if err != nil {
		return err
	}

	execID, err := genExecID()
	if err != nil {
		return fmt.Errorf("failed to generate execution id: %w", err)
	}
	logFile, err := ctx.OpenLogFile(name, execID)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	ctx.LogToFile(logFile)

	series, err := fileseries.Create(ctx, cfg.Paths.SeriesDir, cfg.Paths.UsersDir)
	if err != nil {
		return err
	}
	ctx.Context = logger.WithValues(ctx.Context, tag.SeriesName(name))
	if err := series.WriteJSON(fileseries.DependencyFile, graph.Forward()); err != nil {
		logger.Warn(ctx, "Failed to write dependency file", tag.Error(err))
	}
	if err := series.WriteJSON(fileseries.ConfigFile, s); err != nil {
		logger.Warn(ctx, "Failed to write series config", tag.Error(err))
	}
	logger.Info(ctx, "Series plan", tag.Levels(graph.Levels()))
	_, _ = fmt.Fprintf(ctx.Stdout, "Started series %s (%s)\n", series.SeriesID(), name)

	l := launcher.New(ctx.TestRunStore,
		launcher.WithShell(cfg.Launcher.Shell),
		launcher.WithEnv(env...),
	)
	metrics := runtime.NewMetrics()
	opts := []runtime.Option{runtime.WithMetrics(metrics)}
	if cfg.Scheduler.Watch {
		n, err := runtime.NewWatchNotifier(ctx, cfg.Scheduler.PollInterval)
		if err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}
		defer func() { _ = n.Close() }()
		opts = append(opts, runtime.WithNotifier(n))
	}

	sched, err := runtime.NewScheduler(runtime.Config{
		PollInterval: cfg.Scheduler.PollInterval,
		ExecID:       execID,
	}, graph, defs, l, series, ctx.TestRunStore, opts...)
	if err != nil {
		return err
	}

	runCtx, cancel := withSignals(ctx)
	defer cancel()
	res, runErr := sched.Run(runCtx)
	if runErr == nil {
		l.Wait()
	}

	if err := metrics.WriteTextfile(filepath.Join(series.Path(), fileseries.MetricsFile)); err != nil {
		logger.Warn(ctx, "Failed to write metrics", tag.Error(err))
	}

	if res != nil {
		noLogs, _ := ctx.Command.Flags().GetBool("no-logs")
		renderCfg := output.DefaultConfig()
		renderCfg.ColorEnabled = ctx.ColorEnabled
		renderCfg.ShowLogs = !noLogs
		_, _ = fmt.Fprintln(ctx.Stdout, output.NewRenderer(renderCfg).RenderRun(name, res))
		output.RenderSummary(ctx.Stdout, res, ctx.ColorEnabled)
	}

	if runErr != nil {
		return runErr
	}
	if !res.Passed() {
		return fmt.Errorf("%w: %s %v", ErrSeriesFailed, series.SeriesID(), res.Failed())
	}
	return nil
}

func splitList(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
}
