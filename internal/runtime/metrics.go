package runtime

import (
	"github.com/dagu-org/testseries/internal/core"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for one scheduler run.
type Metrics struct {
	registry     *prometheus.Registry
	launched     prometheus.Counter
	skipped      prometheus.Counter
	launchErrors prometheus.Counter
	instances    *prometheus.CounterVec
	finished     *prometheus.CounterVec
	definitions  *prometheus.GaugeVec
	polls        prometheus.Counter
}

// NewMetrics creates and registers scheduler metrics with a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		launched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "testseries_tests_launched_total",
			Help: "Total number of test definitions launched",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "testseries_tests_skipped_total",
			Help: "Total number of test definitions skipped because a prerequisite did not pass",
		}),
		launchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "testseries_launch_errors_total",
			Help: "Total number of launches that failed",
		}),
		instances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "testseries_instances_total",
			Help: "Total number of test runs registered, by kind",
		}, []string{"kind"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "testseries_tests_finished_total",
			Help: "Total number of test definitions finished, by outcome",
		}, []string{"outcome"}),
		definitions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "testseries_definitions",
			Help: "Current number of test definitions per status",
		}, []string{"status"}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "testseries_poll_iterations_total",
			Help: "Total number of scheduler loop iterations",
		}),
	}

	m.registry.MustRegister(
		m.launched,
		m.skipped,
		m.launchErrors,
		m.instances,
		m.finished,
		m.definitions,
		m.polls,
	)
	return m
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) launch(count int) {
	if m == nil {
		return
	}
	m.launched.Inc()
	m.instances.WithLabelValues("launched").Add(float64(count))
}

func (m *Metrics) skip(count int) {
	if m == nil {
		return
	}
	m.skipped.Inc()
	m.instances.WithLabelValues("skipped").Add(float64(count))
}

func (m *Metrics) launchError() {
	if m == nil {
		return
	}
	m.launchErrors.Inc()
	m.finished.WithLabelValues("error").Inc()
}

func (m *Metrics) finish(passed bool) {
	if m == nil {
		return
	}
	if passed {
		m.finished.WithLabelValues("pass").Inc()
	} else {
		m.finished.WithLabelValues("fail").Inc()
	}
}

func (m *Metrics) poll() {
	if m == nil {
		return
	}
	m.polls.Inc()
}

func (m *Metrics) setCounts(counts map[core.DefinitionStatus]int) {
	if m == nil {
		return
	}
	for _, status := range []core.DefinitionStatus{core.Pending, core.Running, core.Finished, core.Skipped} {
		m.definitions.WithLabelValues(status.String()).Set(float64(counts[status]))
	}
}
