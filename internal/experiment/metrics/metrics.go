package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assignment sources.
const (
	SourceCookie = "cookie"
	SourceDrawn  = "drawn"
	SourceForced = "forced"
)

// Metrics provides observability for experiment assignment.
// Tracks how assignments are resolved and how many cookies are written.
type Metrics struct {
	Assignments     *prometheus.CounterVec
	InvalidCookies  *prometheus.CounterVec
	CookiesWritten  prometheus.Counter
	FlushesSkipped  prometheus.Counter
	DeclaredEntries prometheus.Gauge
}

// New creates the experiment metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "optimize_assignments_total",
			Help: "Total number of experiment assignments by experiment and source",
		}, []string{"experiment", "source"}),
		InvalidCookies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "optimize_invalid_cookies_total",
			Help: "Total number of assignment cookies ignored because they were malformed or out of range",
		}, []string{"experiment"}),
		CookiesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "optimize_cookies_written_total",
			Help: "Total number of assignment cookies written to responses",
		}),
		FlushesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "optimize_flushes_skipped_total",
			Help: "Total number of responses whose assignment cookies were not written (bots)",
		}),
		DeclaredEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "optimize_declared_experiments",
			Help: "Number of experiments declared in the registry",
		}),
	}
}

// IncrementAssignment records how an experiment's variation was resolved.
func (m *Metrics) IncrementAssignment(experiment, source string) {
	m.Assignments.WithLabelValues(experiment, source).Inc()
}

// IncrementInvalidCookie records a cookie value that could not be reused.
func (m *Metrics) IncrementInvalidCookie(experiment string) {
	m.InvalidCookies.WithLabelValues(experiment).Inc()
}

// AddCookiesWritten records cookies written by a flush.
func (m *Metrics) AddCookiesWritten(n int) {
	m.CookiesWritten.Add(float64(n))
}

// IncrementFlushSkipped records a response left without assignment cookies.
func (m *Metrics) IncrementFlushSkipped() {
	m.FlushesSkipped.Inc()
}

// SetDeclared records the registry size.
func (m *Metrics) SetDeclared(count int) {
	m.DeclaredEntries.Set(float64(count))
}
