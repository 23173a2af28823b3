package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dagu-org/testseries/internal/core"
)

type fakeInstance struct {
	mu       sync.Mutex
	id       int
	name     string
	complete bool
	result   string
	err      error
}

func (f *fakeInstance) ID() int      { return f.id }
func (f *fakeInstance) Name() string { return f.name }
func (f *fakeInstance) Path() string { return fmt.Sprintf("/runs/%07d", f.id) }

func (f *fakeInstance) IsComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete
}

func (f *fakeInstance) Result() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeInstance) finish(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = result
	f.complete = true
}

// behavior controls what the fake launcher does for one definition.
type behavior struct {
	// result recorded on every instance. Empty means PASS.
	result string
	// holdFor is the number of notifier waits before instances complete.
	holdFor int
	err     error
	// partial returns instances together with err.
	partial bool
	// empty launches without producing instances.
	empty bool
}

type launchRecord struct {
	req   core.LaunchRequest
	polls int
	waits int
	state map[string]core.DefinitionStatus
}

// world wires a fake launcher, store, registry and notifier sharing one
// id sequence.
type world struct {
	mu        sync.Mutex
	nextID    int
	behaviors map[string]behavior
	launches  []launchRecord
	held      []heldInstance
	waits     int
	registry  []core.Instance
	skipped   []core.TestConfig
	notes     []string
	regErr    error
	storeErr  error
	pollsFn   func() int
	sched     *Scheduler
	watched   []core.Instance
}

type heldInstance struct {
	inst   *fakeInstance
	result string
	until  int
}

func newWorld() *world {
	return &world{nextID: 1, behaviors: map[string]behavior{}}
}

func (w *world) id() int {
	id := w.nextID
	w.nextID++
	return id
}

func (w *world) Launch(_ context.Context, req core.LaunchRequest) ([]core.Instance, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := launchRecord{req: req, waits: w.waits, state: map[string]core.DefinitionStatus{}}
	if w.pollsFn != nil {
		rec.polls = w.pollsFn()
	}
	if w.sched != nil {
		for name, st := range w.sched.states {
			rec.state[name] = st.status
		}
	}
	w.launches = append(w.launches, rec)

	b := w.behaviors[req.Name]
	if b.err != nil && !b.partial {
		return nil, b.err
	}
	if b.empty {
		return nil, nil
	}
	result := b.result
	if result == "" {
		result = core.ResultPass
	}

	configs := req.Configs
	if len(configs) == 0 {
		configs = []core.TestConfig{{Name: req.Name}}
	}
	var out []core.Instance
	for _, cfg := range configs {
		inst := &fakeInstance{id: w.id(), name: cfg.DisplayName()}
		if b.holdFor > 0 {
			w.held = append(w.held, heldInstance{inst: inst, result: result, until: w.waits + b.holdFor})
		} else {
			inst.finish(result)
		}
		out = append(out, inst)
	}
	return out, b.err
}

func (w *world) SeriesID() string { return "s42" }

func (w *world) AddInstances(_ context.Context, instances ...core.Instance) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.regErr != nil {
		return w.regErr
	}
	w.registry = append(w.registry, instances...)
	return nil
}

func (w *world) CreateSkipped(_ context.Context, cfg core.TestConfig, _ string, note string) (core.Instance, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.storeErr != nil {
		return nil, w.storeErr
	}
	w.skipped = append(w.skipped, cfg)
	w.notes = append(w.notes, note)
	inst := &fakeInstance{id: w.id(), name: cfg.DisplayName()}
	inst.finish(core.ResultSkipped)
	return inst, nil
}

func (w *world) Load(context.Context, string) (core.Instance, error) {
	return nil, errors.New("not supported")
}

// Wait advances the fake clock and completes held instances that are due.
func (w *world) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waits++
	remaining := w.held[:0]
	for _, h := range w.held {
		if w.waits >= h.until {
			h.inst.finish(h.result)
			continue
		}
		remaining = append(remaining, h)
	}
	w.held = remaining
	return nil
}

func (w *world) Watch(_ context.Context, instances ...core.Instance) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watched = append(w.watched, instances...)
}

func (*world) Close() error { return nil }

func (w *world) launched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.launches))
	for _, l := range w.launches {
		names = append(names, l.req.Name)
	}
	return names
}

func (w *world) launch(name string) (launchRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, l := range w.launches {
		if l.req.Name == name {
			return l, true
		}
	}
	return launchRecord{}, false
}

var (
	_ core.Launcher       = (*world)(nil)
	_ core.SeriesRegistry = (*world)(nil)
	_ core.InstanceStore  = (*world)(nil)
	_ Notifier            = (*world)(nil)
)
