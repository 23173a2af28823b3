package runtime

import (
	"time"

	"github.com/dagu-org/testseries/internal/core"
	"github.com/samber/lo"
)

// Result is the state of a series run as seen by the scheduler.
type Result struct {
	SeriesID string
	ExecID   string
	// Names lists the definitions in declaration order.
	Names []string
	// Order lists the definitions in the order they were launched or
	// skipped.
	Order    []string
	Tests    map[string]*TestResult
	Started  time.Time
	Finished time.Time
}

// TestResult is the final state of one definition.
type TestResult struct {
	Name      string
	Status    core.DefinitionStatus
	Instances []core.Instance
	Results   []InstanceResult
	LaunchErr error
	Passed    bool
	Started   time.Time
	Finished  time.Time
}

// Test returns the result of the named definition.
func (r *Result) Test(name string) (*TestResult, bool) {
	t, ok := r.Tests[name]
	return t, ok
}

// Unresolved returns the definitions that are neither finished nor
// skipped.
func (r *Result) Unresolved() []string {
	return lo.Filter(r.Names, func(name string, _ int) bool {
		return !r.Tests[name].Status.IsTerminal()
	})
}

// Failed returns the definitions that did not pass, skipped ones included.
func (r *Result) Failed() []string {
	return lo.Filter(r.Names, func(name string, _ int) bool {
		return !r.Tests[name].Passed
	})
}

// Passed reports whether every definition passed.
func (r *Result) Passed() bool {
	return len(r.Failed()) == 0
}
