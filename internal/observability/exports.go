package observability

import "github.com/prometheus/client_golang/prometheus"

// Export outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ExportMetrics tracks generated declarations.
type ExportMetrics struct {
	exports *prometheus.CounterVec
	parties prometheus.Gauge
}

// NewExportMetrics registers the declaration metrics on reg. A nil reg
// leaves them unregistered, which suits tests and the CLI.
func NewExportMetrics(reg prometheus.Registerer) *ExportMetrics {
	m := &ExportMetrics{
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelo347_exports_total",
			Help: "Generated declarations by format and outcome.",
		}, []string{"format", "outcome"}),
		parties: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "modelo347_parties_declared",
			Help: "Parties in the most recently built declaration.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.exports, m.parties)
	}
	return m
}

// Export counts one export attempt.
func (m *ExportMetrics) Export(format, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, outcome).Inc()
}

// Parties records the party count of a built declaration.
func (m *ExportMetrics) Parties(n int) {
	if m == nil {
		return
	}
	m.parties.Set(float64(n))
}
