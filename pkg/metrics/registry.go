// Package metrics records how afsctl drives the OpenAFS tools.
//
// Collection is opt-in. Until InitRegistry runs, GetRegistry is nil and the
// prometheus constructors fall back to NewNoopCommandMetrics, so a runner
// chain built without metrics costs nothing.
//
//	metrics.InitRegistry()
//	m := prommetrics.NewCommandMetrics()
//	runner := command.NewInstrumentedRunner(command.ExecRunner{}, m)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the afsctl registry with the Go runtime and process
// collectors attached. Later calls are no-ops.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "afsctl"}),
		)
		registry = reg
	})
}

// GetRegistry returns the afsctl registry, or nil while metrics are off.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
