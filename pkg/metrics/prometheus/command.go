package prometheus

import (
	"path/filepath"
	"time"

	"github.com/marmos91/afsctl/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// commandMetrics is the Prometheus implementation of metrics.CommandMetrics.
type commandMetrics struct {
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	commandsInFlight *prometheus.GaugeVec
}

// NewCommandMetrics creates a Prometheus-backed CommandMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewCommandMetrics() metrics.CommandMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopCommandMetrics()
	}

	reg := metrics.GetRegistry()

	return &commandMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "afsctl_commands_total",
				Help: "Total number of external tool invocations by tool and status",
			},
			[]string{"tool", "status"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "afsctl_command_duration_seconds",
				Help: "Duration of external tool invocations in seconds",
				Buckets: []float64{
					0.01, // 10ms
					0.05, // 50ms
					0.1,  // 100ms
					0.5,  // 500ms
					1,    // 1s
					5,    // 5s
					30,   // 30s
					120,  // 2m (vos release on large volumes)
				},
			},
			[]string{"tool"},
		),
		commandsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "afsctl_commands_in_flight",
				Help: "Current number of running external tool invocations",
			},
			[]string{"tool"},
		),
	}
}

func (m *commandMetrics) RecordCommand(tool string, duration time.Duration, exitCode int, err error) {
	tool = filepath.Base(tool)
	m.commandsTotal.WithLabelValues(tool, metrics.CommandStatus(exitCode, err)).Inc()
	m.commandDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (m *commandMetrics) RecordCommandStart(tool string) {
	m.commandsInFlight.WithLabelValues(filepath.Base(tool)).Inc()
}

func (m *commandMetrics) RecordCommandEnd(tool string) {
	m.commandsInFlight.WithLabelValues(filepath.Base(tool)).Dec()
}
