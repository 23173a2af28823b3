package runtime

import (
	"github.com/dagu-org/testseries/internal/core"
)

// InstanceResult is the outcome read from one complete instance.
type InstanceResult struct {
	ID     int
	Name   string
	Result string
	Err    error
}

// Passed reports whether the instance recorded PASS.
func (r InstanceResult) Passed() bool {
	return r.Err == nil && r.Result == core.ResultPass
}

// Completion is the state of a set of instances.
type Completion struct {
	Complete bool
	Results  []InstanceResult
}

// Passed reports whether every instance is complete with PASS. An empty
// set passes.
func (c Completion) Passed() bool {
	if !c.Complete {
		return false
	}
	for _, r := range c.Results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// CheckCompletion reports the set as not complete if any instance lacks its
// marker. Otherwise it reads every instance's result. A result that cannot
// be read is recorded on that instance and counts as non-passing.
func CheckCompletion(instances []core.Instance) Completion {
	for _, inst := range instances {
		if !inst.IsComplete() {
			return Completion{}
		}
	}

	results := make([]InstanceResult, 0, len(instances))
	for _, inst := range instances {
		res, err := inst.Result()
		results = append(results, InstanceResult{
			ID:     inst.ID(),
			Name:   inst.Name(),
			Result: res,
			Err:    err,
		})
	}
	return Completion{Complete: true, Results: results}
}
