package core

// DefinitionStatus represents the scheduling phase of a test definition
// within one series run.
type DefinitionStatus int

const (
	Pending DefinitionStatus = iota
	Running
	Finished
	Skipped
)

// String returns the canonical lowercase token used in logs and output.
func (s DefinitionStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s DefinitionStatus) IsTerminal() bool {
	return s == Finished || s == Skipped
}

// Result values written by test runs. Anything other than ResultPass is
// non-passing.
const (
	ResultPass    = "PASS"
	ResultFail    = "FAIL"
	ResultError   = "ERROR"
	ResultSkipped = "SKIPPED"
)

// InstanceState is the coarse state stored in an instance's status file.
type InstanceState string

const (
	StateCreated  InstanceState = "CREATED"
	StateRunning  InstanceState = "RUNNING"
	StateComplete InstanceState = "COMPLETE"
)

// SkipNote is recorded on placeholders synthesized for skipped definitions.
const SkipNote = "Skipping. Previous test did not PASS."
