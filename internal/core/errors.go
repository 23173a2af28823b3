package core

import (
	"errors"
)

// errors on preparing and scheduling a series.
var (
	ErrUnknownDependency = errors.New("dependency refers to an unknown test")
	ErrCycleDetected     = errors.New("cycle detected in test dependencies")
	ErrDuplicateTest     = errors.New("test name must be unique")
	ErrTestNotFound      = errors.New("test config not found")
	ErrSeriesNotFound    = errors.New("series not found")
	ErrInvalidSeriesID   = errors.New("invalid series id")
	ErrLinkFailed        = errors.New("failed to link test run into series")
	ErrUnresolved        = errors.New("series ended with unresolved tests")
	ErrNoResult          = errors.New("test run has no result")
)
