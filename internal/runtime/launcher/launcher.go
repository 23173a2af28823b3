// Package launcher starts test runs as local processes.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dagu-org/testseries/internal/cmn/fileutil"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
	"github.com/dagu-org/testseries/internal/persis/filetestrun"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"mvdan.cc/sh/v3/shell"
)

// Environment variables set for every test process.
const (
	EnvRunID        = "TEST_RUN_ID"
	EnvRunDir       = "TEST_RUN_DIR"
	EnvSeriesID     = "TEST_SERIES_ID"
	EnvTestName     = "TEST_NAME"
	EnvResultsFile  = "TEST_RESULTS_FILE"
	EnvCompleteFile = "TEST_COMPLETE_FILE"
)

var ErrEmptyCommand = errors.New("command is empty")

var _ core.Launcher = (*CommandLauncher)(nil)

// Option configures a CommandLauncher.
type Option func(*CommandLauncher)

// WithShell runs commands through shell -c instead of splitting them into
// arguments.
func WithShell(shell string) Option {
	return func(l *CommandLauncher) {
		l.shell = shell
	}
}

// WithFacts overrides the host facts used to evaluate conditions.
func WithFacts(facts map[string]string) Option {
	return func(l *CommandLauncher) {
		l.facts = facts
	}
}

// WithEnv appends base environment entries to the test processes.
func WithEnv(env ...string) Option {
	return func(l *CommandLauncher) {
		l.env = append(l.env, env...)
	}
}

// CommandLauncher creates a test run per resolved configuration and starts
// its command in the background. When the process exits the launcher
// records the result and then the completion marker, unless the command
// recorded them itself.
type CommandLauncher struct {
	store     *filetestrun.Store
	shell     string
	facts     map[string]string
	factsOnce sync.Once
	env       []string
	wg        sync.WaitGroup
}

// New creates a launcher storing test runs in store.
func New(store *filetestrun.Store, opts ...Option) *CommandLauncher {
	l := &CommandLauncher{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadEnvFiles reads dotenv files into KEY=VALUE entries for WithEnv. Later
// files override earlier ones.
func LoadEnvFiles(files ...string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	vars, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	keys := lo.Keys(vars)
	slices.Sort(keys)
	return lo.Map(keys, func(k string, _ int) string { return k + "=" + vars[k] }), nil
}

// Launch implements core.Launcher. Configurations whose conditions do not
// hold on this host are recorded as complete SKIPPED runs. A command that
// cannot be started is recorded as a complete ERROR run. Only storage
// failures are returned, together with the runs created so far.
func (l *CommandLauncher) Launch(ctx context.Context, req core.LaunchRequest) ([]core.Instance, error) {
	l.factsOnce.Do(func() {
		if l.facts == nil {
			l.facts = HostFacts(ctx)
		}
	})

	instances := make([]core.Instance, 0, len(req.Configs))
	for _, cfg := range req.Configs {
		run, err := l.store.Create(ctx, cfg, req.SeriesID)
		if err != nil {
			return instances, err
		}
		instances = append(instances, run)

		if ok, reason := evalConditions(cfg, l.facts); !ok {
			logger.Info(ctx, "Test run skipped by conditions",
				tag.TestRunID(run.ID()),
				tag.Test(run.Name()),
				tag.Reason(reason),
			)
			if err := finish(run, filetestrun.Results{Result: core.ResultSkipped, Note: reason}); err != nil {
				return instances, err
			}
			continue
		}

		if err := l.start(ctx, run, req.SeriesID); err != nil {
			logger.Error(ctx, "Failed to start test run",
				tag.TestRunID(run.ID()),
				tag.Test(run.Name()),
				tag.Error(err),
			)
			if err := finish(run, filetestrun.Results{Result: core.ResultError, Note: err.Error()}); err != nil {
				return instances, err
			}
		}
	}
	return instances, nil
}

// Wait blocks until every started process has exited and its result has
// been recorded.
func (l *CommandLauncher) Wait() {
	l.wg.Wait()
}

func (l *CommandLauncher) start(ctx context.Context, run *filetestrun.TestRun, seriesID string) error {
	cfg := run.Config()
	env := l.environ(run, seriesID)

	data := map[string]any{
		"name":        cfg.Name,
		"permutation": cfg.Permutation,
		"run_id":      run.ID(),
		"run_dir":     run.Path(),
		"series_id":   seriesID,
	}
	for k, v := range cfg.Variables {
		data[k] = v
	}
	cmdline, err := renderCommand(cfg.Command, data)
	if err != nil {
		return err
	}

	args, err := l.args(cmdline, env)
	if err != nil {
		return err
	}

	logFile, err := fileutil.OpenOrCreateFile(run.File(filetestrun.LogFile))
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	// nolint:gosec
	cmd := exec.Command(args[0], args[1:]...)
	setupCommand(cmd)
	cmd.Dir = run.Path()
	cmd.Env = env
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return fmt.Errorf("failed to start command: %w", err)
	}
	if err := run.SetStatus(core.StateRunning, "Started process "+strconv.Itoa(cmd.Process.Pid)+"."); err != nil {
		logger.Warn(ctx, "Failed to update test run status", tag.TestRunID(run.ID()), tag.Error(err))
	}
	logger.Debug(ctx, "Test run started",
		tag.TestRunID(run.ID()),
		tag.Test(run.Name()),
		tag.Command(cmdline),
		tag.PID(cmd.Process.Pid),
	)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() { _ = logFile.Close() }()
		l.wait(ctx, run, cmd)
	}()
	return nil
}

func (l *CommandLauncher) wait(ctx context.Context, run *filetestrun.TestRun, cmd *exec.Cmd) {
	waitErr := cmd.Wait()
	exitCode := cmd.ProcessState.ExitCode()

	res := filetestrun.Results{Result: core.ResultPass, ExitCode: &exitCode}
	if waitErr != nil {
		res.Result = core.ResultFail
		res.Note = waitErr.Error()
	}

	// The command may have recorded its own outcome.
	if _, err := run.Result(); err == nil {
		res = filetestrun.Results{}
	}
	if err := finish(run, res); err != nil {
		logger.Error(ctx, "Failed to record test run result",
			tag.TestRunID(run.ID()),
			tag.Error(err),
		)
		return
	}
	logger.Debug(ctx, "Test run exited",
		tag.TestRunID(run.ID()),
		tag.String("exit_code", strconv.Itoa(exitCode)),
	)
}

func (l *CommandLauncher) args(cmdline string, env []string) ([]string, error) {
	if l.shell != "" {
		return []string{l.shell, "-c", cmdline}, nil
	}
	vars := envMap(env)
	args, err := shell.Fields(cmdline, func(name string) string { return vars[name] })
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", cmdline, err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	return args, nil
}

func (l *CommandLauncher) environ(run *filetestrun.TestRun, seriesID string) []string {
	env := append(os.Environ(), l.env...)
	for k, v := range run.Config().Variables {
		env = append(env, k+"="+v)
	}
	return append(env,
		EnvRunID+"="+strconv.Itoa(run.ID()),
		EnvRunDir+"="+run.Path(),
		EnvSeriesID+"="+seriesID,
		EnvTestName+"="+run.Name(),
		EnvResultsFile+"="+run.File(filetestrun.ResultsFile),
		EnvCompleteFile+"="+run.File(core.MarkerFile),
	)
}

// finish records res unless it is empty, then marks the run complete. The
// marker is always written last.
func finish(run *filetestrun.TestRun, res filetestrun.Results) error {
	if res.Result != "" {
		if err := run.WriteResults(res); err != nil {
			return err
		}
	}
	if err := run.SetStatus(core.StateComplete, res.Note); err != nil {
		return err
	}
	if run.IsComplete() {
		return nil
	}
	return run.SetComplete()
}

func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
