// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
package tag

import (
	"log/slog"
	"time"
)

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Series creates a tag for a series id (s-prefixed).
func Series(id string) slog.Attr {
	return slog.String("series", id)
}

// SeriesName creates a tag for the series configuration name.
func SeriesName(name string) slog.Attr {
	return slog.String("series-name", name)
}

// Test creates a tag for test definition names.
func Test(name string) slog.Attr {
	return slog.String("test", name)
}

// TestRunID creates a tag for a test run (instance) id.
func TestRunID(id int) slog.Attr {
	return slog.Int("test-run-id", id)
}

// ExecID creates a tag for a single scheduler execution.
func ExecID(id string) slog.Attr {
	return slog.String("exec-id", id)
}

// Dependency creates a tag for a prerequisite name.
func Dependency(name string) slog.Attr {
	return slog.String("dependency", name)
}

// Dependents creates a tag for the names waiting on a test.
func Dependents(names []string) slog.Attr {
	return slog.Any("dependents", names)
}

// Levels creates a tag for topological waves of test names.
func Levels(levels [][]string) slog.Attr {
	return slog.Any("levels", levels)
}

// Modes creates a tag for a mode list.
func Modes(modes []string) slog.Attr {
	return slog.Any("modes", modes)
}

// Result creates a tag for a test result value.
func Result(result string) slog.Attr {
	return slog.String("result", result)
}

// Status creates a tag for a lifecycle status.
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Dir creates a tag for directory paths.
func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}

// Path creates a tag for generic paths.
func Path(path string) slog.Attr {
	return slog.String("path", path)
}

// Count creates a tag for counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Interval creates a tag for polling intervals.
func Interval(d time.Duration) slog.Attr {
	return slog.Duration("interval", d)
}

// Duration creates a tag for elapsed durations.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Command creates a tag for a command line.
func Command(cmd string) slog.Attr {
	return slog.String("command", cmd)
}

// PID creates a tag for a process id.
func PID(pid int) slog.Attr {
	return slog.Int("pid", pid)
}

// Reason creates a tag for a human readable reason.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}
