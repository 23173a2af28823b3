package core

import (
	"context"
)

// MarkerFile is the name of the file whose existence inside an instance
// directory signals that the instance finished running.
const MarkerFile = "RUN_COMPLETE"

// Instance is one concrete runnable unit produced by launching a definition.
type Instance interface {
	// ID is unique among all instances in the working directory.
	ID() int
	// Name is the display name of the resolved configuration.
	Name() string
	// Path is the instance's storage directory.
	Path() string
	// IsComplete reports whether the completion marker is present.
	IsComplete() bool
	// Result reads the recorded outcome. Only meaningful once complete.
	Result() (string, error)
}

// LaunchRequest describes one definition launch.
type LaunchRequest struct {
	Name     string
	Modes    []string
	SeriesID string
	Configs  []TestConfig
}

// Launcher starts the instances of a definition and returns immediately.
// The launched work makes completion observable through the marker.
type Launcher interface {
	Launch(ctx context.Context, req LaunchRequest) ([]Instance, error)
}

// InstanceStore creates and loads instances.
type InstanceStore interface {
	// CreateSkipped records a placeholder that is already complete with
	// result SKIPPED and the given note.
	CreateSkipped(ctx context.Context, cfg TestConfig, seriesID, note string) (Instance, error)
	// Load opens an existing instance directory.
	Load(ctx context.Context, path string) (Instance, error)
}

// SeriesRegistry records series membership.
type SeriesRegistry interface {
	// SeriesID returns the external s-prefixed identifier.
	SeriesID() string
	AddInstances(ctx context.Context, instances ...Instance) error
}

// ConfigResolver loads the resolved configurations of a named test under
// the given modes.
type ConfigResolver interface {
	Resolve(ctx context.Context, name string, modes []string) ([]TestConfig, error)
}
