package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
	"github.com/samber/lo"
)

const defaultPollInterval = time.Second

// Config holds scheduler settings.
type Config struct {
	PollInterval time.Duration
	ExecID       string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNotifier replaces the default fixed interval notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithMetrics records scheduler activity into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// Scheduler launches the definitions of a series once their prerequisites
// are done and tracks them until every definition is finished or skipped.
// All state is owned by the goroutine calling Run.
type Scheduler struct {
	cfg      Config
	graph    *Graph
	states   map[string]*defState
	launcher core.Launcher
	registry core.SeriesRegistry
	store    core.InstanceStore
	notifier Notifier
	metrics  *Metrics
	order    []string
}

type defState struct {
	def        core.TestDefinition
	status     core.DefinitionStatus
	instances  []core.Instance
	completion Completion
	launchErr  error
	started    time.Time
	finished   time.Time
}

// passed reports whether dependents gated on this definition may launch.
func (d *defState) passed() bool {
	return d.status == core.Finished && d.launchErr == nil && d.completion.Passed()
}

// NewScheduler creates a scheduler for defs. Every definition must be a
// node of graph and every node must have a definition.
func NewScheduler(
	cfg Config,
	graph *Graph,
	defs []core.TestDefinition,
	launcher core.Launcher,
	registry core.SeriesRegistry,
	store core.InstanceStore,
	opts ...Option,
) (*Scheduler, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	s := &Scheduler{
		cfg:      cfg,
		graph:    graph,
		states:   make(map[string]*defState, len(defs)),
		launcher: launcher,
		registry: registry,
		store:    store,
	}
	for _, def := range defs {
		if _, ok := graph.To[def.Name]; !ok {
			return nil, fmt.Errorf("%w: %s is not part of the graph", core.ErrTestNotFound, def.Name)
		}
		if _, ok := s.states[def.Name]; ok {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateTest, def.Name)
		}
		s.states[def.Name] = &defState{def: def, status: core.Pending}
	}
	for _, name := range graph.Names() {
		if _, ok := s.states[name]; !ok {
			return nil, fmt.Errorf("%w: no definition for %s", core.ErrTestNotFound, name)
		}
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewTickerNotifier(cfg.PollInterval)
	}
	return s, nil
}

// Run drives the series to completion. It returns when every definition is
// finished or skipped, when a registry or store operation fails, or when
// ctx is done. The returned Result reflects the state reached in all cases.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	ctx = logger.WithValues(ctx,
		tag.Series(s.registry.SeriesID()),
		tag.ExecID(s.cfg.ExecID),
	)
	logger.Info(ctx, "Series scheduling started",
		tag.Count(len(s.states)),
		tag.Interval(s.cfg.PollInterval),
	)

	for _, name := range s.graph.Roots() {
		if err := s.evaluate(ctx, name); err != nil {
			return s.result(started), err
		}
	}

	for s.count(core.Pending) > 0 {
		if err := ctx.Err(); err != nil {
			return s.result(started), err
		}
		s.metrics.poll()
		s.promote(ctx)

		for _, name := range s.pendingNames() {
			if !s.isReady(name) {
				continue
			}
			if err := s.evaluate(ctx, name); err != nil {
				return s.result(started), err
			}
		}
		s.metrics.setCounts(s.counts())

		if s.count(core.Pending) == 0 {
			break
		}
		if err := s.notifier.Wait(ctx); err != nil {
			return s.result(started), err
		}
	}

	logger.Debug(ctx, "All definitions started, waiting for running tests",
		tag.Count(s.count(core.Running)),
	)
	for {
		s.promote(ctx)
		s.metrics.setCounts(s.counts())
		if s.count(core.Running) == 0 {
			break
		}
		if err := s.notifier.Wait(ctx); err != nil {
			return s.result(started), err
		}
	}

	res := s.result(started)
	if unresolved := res.Unresolved(); len(unresolved) > 0 {
		return res, fmt.Errorf("%w: %v", core.ErrUnresolved, unresolved)
	}
	logger.Info(ctx, "Series scheduling finished",
		tag.Duration(res.Finished.Sub(res.Started)),
	)
	return res, nil
}

// isReady reports whether every prerequisite of name is finished or skipped.
func (s *Scheduler) isReady(name string) bool {
	for _, dep := range s.graph.To[name] {
		if !s.states[dep].status.IsTerminal() {
			return false
		}
	}
	return true
}

// evaluate decides whether a ready definition launches or is skipped.
func (s *Scheduler) evaluate(ctx context.Context, name string) error {
	st := s.states[name]
	if st.def.DependsPass {
		failed := lo.Filter(s.graph.To[name], func(dep string, _ int) bool {
			return !s.states[dep].passed()
		})
		if len(failed) > 0 {
			return s.skip(ctx, st, failed)
		}
	}
	return s.launch(ctx, st)
}

func (s *Scheduler) launch(ctx context.Context, st *defState) error {
	name := st.def.Name
	req := core.LaunchRequest{
		Name:     name,
		Modes:    st.def.Modes,
		SeriesID: s.registry.SeriesID(),
		Configs:  st.def.Configs,
	}

	st.started = time.Now()
	s.order = append(s.order, name)
	instances, err := s.launcher.Launch(ctx, req)
	if len(instances) > 0 {
		if regErr := s.registry.AddInstances(ctx, instances...); regErr != nil {
			return fmt.Errorf("failed to register instances of %s: %w", name, regErr)
		}
		st.instances = instances
		s.notifier.Watch(ctx, instances...)
	}

	if err != nil {
		logger.Error(ctx, "Failed to launch test",
			tag.Test(name),
			tag.Error(err),
			tag.Count(len(instances)),
		)
		st.launchErr = err
		s.metrics.launchError()
		if len(instances) > 0 {
			// Started instances still have to complete before dependents run.
			st.status = core.Running
			return nil
		}
		st.status = core.Finished
		st.finished = time.Now()
		return nil
	}

	logger.Info(ctx, "Test launched",
		tag.Test(name),
		tag.Modes(st.def.Modes),
		tag.Count(len(instances)),
	)
	st.status = core.Running
	s.metrics.launch(len(instances))
	return nil
}

func (s *Scheduler) skip(ctx context.Context, st *defState, failed []string) error {
	name := st.def.Name
	seriesID := s.registry.SeriesID()

	cfgs := st.def.NoConditionConfigs()
	instances := make([]core.Instance, 0, len(cfgs))
	for _, cfg := range cfgs {
		inst, err := s.store.CreateSkipped(ctx, cfg, seriesID, core.SkipNote)
		if err != nil {
			return fmt.Errorf("failed to create skip placeholder for %s: %w", name, err)
		}
		instances = append(instances, inst)
	}
	if len(instances) > 0 {
		if err := s.registry.AddInstances(ctx, instances...); err != nil {
			return fmt.Errorf("failed to register skip placeholders of %s: %w", name, err)
		}
	}

	for _, dep := range failed {
		logger.Debug(ctx, "Prerequisite did not pass",
			tag.Test(name),
			tag.Dependency(dep),
			tag.Status(s.states[dep].status.String()),
		)
	}
	logger.Info(ctx, "Test skipped",
		tag.Test(name),
		tag.Reason(fmt.Sprintf("prerequisites did not pass: %v", failed)),
	)
	s.order = append(s.order, name)
	st.instances = instances
	st.completion = CheckCompletion(instances)
	st.status = core.Skipped
	st.started = time.Now()
	st.finished = st.started
	s.metrics.skip(len(instances))
	return nil
}

// promote moves running definitions whose instances are all complete to
// Finished.
func (s *Scheduler) promote(ctx context.Context) {
	for _, name := range s.graph.Names() {
		st := s.states[name]
		if st.status != core.Running {
			continue
		}
		completion := CheckCompletion(st.instances)
		if !completion.Complete {
			continue
		}
		st.completion = completion
		st.status = core.Finished
		st.finished = time.Now()

		passed := completion.Passed() && st.launchErr == nil
		for _, r := range completion.Results {
			if r.Err != nil {
				logger.Warn(ctx, "Failed to read test result",
					tag.Test(name),
					tag.TestRunID(r.ID),
					tag.Error(r.Err),
				)
			}
		}
		logger.Info(ctx, "Test finished",
			tag.Test(name),
			tag.Result(lo.Ternary(passed, core.ResultPass, core.ResultFail)),
		)
		if deps := s.graph.Dependents(name); len(deps) > 0 {
			logger.Debug(ctx, "Dependents may be ready", tag.Test(name), tag.Dependents(deps))
		}
		if st.launchErr == nil {
			s.metrics.finish(passed)
		}
	}
}

func (s *Scheduler) pendingNames() []string {
	return lo.Filter(s.graph.Names(), func(name string, _ int) bool {
		return s.states[name].status == core.Pending
	})
}

func (s *Scheduler) count(status core.DefinitionStatus) int {
	return lo.CountBy(lo.Values(s.states), func(st *defState) bool {
		return st.status == status
	})
}

func (s *Scheduler) counts() map[core.DefinitionStatus]int {
	out := make(map[core.DefinitionStatus]int, 4)
	for _, st := range s.states {
		out[st.status]++
	}
	return out
}

func (s *Scheduler) result(started time.Time) *Result {
	res := &Result{
		SeriesID: s.registry.SeriesID(),
		ExecID:   s.cfg.ExecID,
		Names:    s.graph.Names(),
		Order:    append([]string(nil), s.order...),
		Tests:    make(map[string]*TestResult, len(s.states)),
		Started:  started,
		Finished: time.Now(),
	}
	for name, st := range s.states {
		res.Tests[name] = &TestResult{
			Name:      name,
			Status:    st.status,
			Instances: append([]core.Instance(nil), st.instances...),
			Results:   st.completion.Results,
			LaunchErr: st.launchErr,
			Passed:    st.passed(),
			Started:   st.started,
			Finished:  st.finished,
		}
	}
	return res
}
