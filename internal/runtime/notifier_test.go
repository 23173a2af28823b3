package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dagu-org/testseries/internal/core"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type dirInstance struct {
	fakeInstance
	dir string
}

func (d *dirInstance) Path() string { return d.dir }

func (d *dirInstance) IsComplete() bool {
	_, err := os.Stat(filepath.Join(d.dir, core.MarkerFile))
	return err == nil
}

func TestTickerNotifier(t *testing.T) {
	n := NewTickerNotifier(10 * time.Millisecond)
	require.NoError(t, n.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, NewTickerNotifier(time.Hour).Wait(ctx), context.Canceled)
	require.NoError(t, n.Close())
}

func TestWatchNotifier(t *testing.T) {
	ctx := context.Background()
	n, err := NewWatchNotifier(ctx, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	inst := &dirInstance{dir: t.TempDir()}
	n.Watch(ctx, inst)
	require.Equal(t, []string{inst.dir}, n.watcher.WatchList())

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(inst.dir, core.MarkerFile), nil, 0600)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, n.Wait(waitCtx))
	require.True(t, inst.IsComplete())
	require.Empty(t, n.watcher.WatchList())
}

func TestWatchNotifier_AlreadyComplete(t *testing.T) {
	ctx := context.Background()
	n, err := NewWatchNotifier(ctx, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	inst := &dirInstance{dir: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(inst.dir, core.MarkerFile), nil, 0600))
	n.Watch(ctx, inst)

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, n.Wait(waitCtx))
}

func TestWatchNotifier_BackupInterval(t *testing.T) {
	ctx := context.Background()
	n, err := NewWatchNotifier(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	n.Watch(ctx, &dirInstance{dir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, n.Wait(ctx))
}

func TestMetrics(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.launch(1)
	nilMetrics.finish(true)
	nilMetrics.setCounts(nil)

	w := newWorld()
	w.behaviors["a"] = behavior{result: core.ResultFail}
	s := newTestScheduler(t, w, def("a", false), def("b", true, "a"), def("c", false, "a"))
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, s.metrics.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	require.Contains(t, text, "testseries_tests_launched_total 2")
	require.Contains(t, text, "testseries_tests_skipped_total 1")
	require.Contains(t, text, `testseries_tests_finished_total{outcome="fail"} 1`)
	require.Contains(t, text, `testseries_tests_finished_total{outcome="pass"} 1`)
	require.Contains(t, text, `testseries_definitions{status="skipped"} 1`)
	require.True(t, strings.Contains(text, `testseries_instances_total{kind="launched"} 2`))

	families, err := s.metrics.registry.Gather()
	require.NoError(t, err)
	metricMap := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		metricMap[f.GetName()] = f
	}
	require.Contains(t, metricMap, "testseries_definitions")
	gauges := make(map[string]float64)
	for _, m := range metricMap["testseries_definitions"].GetMetric() {
		gauges[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
	}
	require.Equal(t, map[string]float64{
		"pending":  0,
		"running":  0,
		"finished": 2,
		"skipped":  1,
	}, gauges)
}
