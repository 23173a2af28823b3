// Package logger provides the structured logger used across testseries.
// Records go to the console and, once a series run opens its log file,
// to that file as well.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

type Logger interface {
	Debug(msg string, tags ...any)
	Info(msg string, tags ...any)
	Warn(msg string, tags ...any)
	Error(msg string, tags ...any)
	Infof(format string, v ...any)

	// With returns a logger that adds attrs to every record.
	With(attrs ...any) Logger

	// Write prints msg as is, bypassing levels and formatting.
	Write(msg string)
}

// Option configures NewLogger.
type Option func(*options)

type options struct {
	level   slog.Level
	format  string
	console io.Writer
	file    io.Writer
}

// WithDebug enables debug records.
func WithDebug() Option {
	return func(o *options) { o.level = slog.LevelDebug }
}

// WithFormat selects "text" or "json" records.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithWriter adds a second destination, typically the run's log file.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.file = w }
}

// WithConsole replaces stderr as the console destination.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithQuiet drops the console destination.
func WithQuiet() Option {
	return func(o *options) { o.console = nil }
}

var defaultLogger = NewLogger(WithFormat("text"))

// Default returns the logger used when the context carries none.
func Default() Logger {
	return defaultLogger
}

// NewLogger builds a logger fanning records out to the configured
// destinations.
func NewLogger(opts ...Option) Logger {
	o := &options{level: slog.LevelInfo, console: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	hopts := &slog.HandlerOptions{Level: o.level}

	l := &appLogger{console: o.console}
	var handlers []slog.Handler
	if o.console != nil {
		handlers = append(handlers, newHandler(o.console, o.format, hopts))
	}
	if o.file != nil {
		l.file = &lockedWriter{w: o.file}
		handlers = append(handlers, newHandler(l.file, o.format, hopts))
	}
	l.logger = slog.New(slogmulti.Fanout(handlers...))
	return l
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// lockedWriter serializes writes to the log file so that records and Write
// output never interleave.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

type appLogger struct {
	logger  *slog.Logger
	console io.Writer
	file    *lockedWriter
}

var _ Logger = (*appLogger)(nil)

func (a *appLogger) Debug(msg string, tags ...any) { a.log(slog.LevelDebug, msg, tags) }
func (a *appLogger) Info(msg string, tags ...any)  { a.log(slog.LevelInfo, msg, tags) }
func (a *appLogger) Warn(msg string, tags ...any)  { a.log(slog.LevelWarn, msg, tags) }
func (a *appLogger) Error(msg string, tags ...any) { a.log(slog.LevelError, msg, tags) }

func (a *appLogger) Infof(format string, v ...any) {
	a.log(slog.LevelInfo, fmt.Sprintf(format, v...), nil)
}

func (a *appLogger) log(level slog.Level, msg string, tags []any) {
	a.logger.Log(context.Background(), level, msg, tags...)
}

func (a *appLogger) With(attrs ...any) Logger {
	return &appLogger{
		logger:  a.logger.With(attrs...),
		console: a.console,
		file:    a.file,
	}
}

func (a *appLogger) Write(msg string) {
	line := []byte(msg + "\n")
	if a.console != nil {
		_, _ = a.console.Write(line)
	}
	if a.file != nil {
		_, _ = a.file.Write(line)
	}
}
