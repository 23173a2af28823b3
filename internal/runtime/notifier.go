package runtime

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
	"github.com/fsnotify/fsnotify"
)

// Notifier suspends the scheduler loop until it is worth looking at
// instance state again.
type Notifier interface {
	// Wait blocks until the next check is due or ctx is done.
	Wait(ctx context.Context) error
	// Watch tells the notifier about newly launched instances.
	Watch(ctx context.Context, instances ...core.Instance)
	Close() error
}

var (
	_ Notifier = (*TickerNotifier)(nil)
	_ Notifier = (*WatchNotifier)(nil)
)

// TickerNotifier wakes the loop at a fixed interval.
type TickerNotifier struct {
	interval time.Duration
}

// NewTickerNotifier creates a notifier waking every interval.
func NewTickerNotifier(interval time.Duration) *TickerNotifier {
	return &TickerNotifier{interval: interval}
}

// Wait implements Notifier.
func (n *TickerNotifier) Wait(ctx context.Context) error {
	timer := time.NewTimer(n.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Watch implements Notifier.
func (*TickerNotifier) Watch(context.Context, ...core.Instance) {}

// Close implements Notifier.
func (*TickerNotifier) Close() error { return nil }

// WatchNotifier wakes the loop as soon as a completion marker appears in a
// watched instance directory. The interval still applies as a backup poll
// in case an event is missed.
type WatchNotifier struct {
	watcher  *fsnotify.Watcher
	interval time.Duration
	wake     chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatchNotifier starts an fsnotify watcher.
func NewWatchNotifier(ctx context.Context, interval time.Duration) (*WatchNotifier, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	n := &WatchNotifier{
		watcher:  watcher,
		interval: interval,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	n.wg.Add(1)
	go n.loop(ctx)
	return n, nil
}

func (n *WatchNotifier) loop(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 && filepath.Base(event.Name) == core.MarkerFile {
				logger.Debug(ctx, "Completion marker created", tag.Path(event.Name))
				n.unwatch(ctx, filepath.Dir(event.Name))
				n.signal()
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn(ctx, "File watcher error", tag.Error(err))
		}
	}
}

func (n *WatchNotifier) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Watch implements Notifier.
func (n *WatchNotifier) Watch(ctx context.Context, instances ...core.Instance) {
	for _, inst := range instances {
		if inst.IsComplete() {
			n.signal()
			continue
		}
		if err := n.watcher.Add(inst.Path()); err != nil {
			logger.Warn(ctx, "Failed to watch test run directory",
				tag.Dir(inst.Path()),
				tag.Error(err),
			)
		}
	}
}

// unwatch drops a completed instance directory. Errors are expected when the
// directory is already gone.
func (n *WatchNotifier) unwatch(ctx context.Context, dir string) {
	if err := n.watcher.Remove(dir); err != nil {
		logger.Debug(ctx, "Failed to unwatch test run directory", tag.Dir(dir), tag.Error(err))
	}
}

// Wait implements Notifier.
func (n *WatchNotifier) Wait(ctx context.Context) error {
	timer := time.NewTimer(n.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-n.wake:
		return nil
	case <-timer.C:
		return nil
	}
}

// Close implements Notifier.
func (n *WatchNotifier) Close() error {
	close(n.done)
	err := n.watcher.Close()
	n.wg.Wait()
	return err
}
