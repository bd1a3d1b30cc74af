package metrics

import "github.com/prometheus/client_golang/prometheus"

// Option tunes a Manager before its metrics are registered.
type Option func(*Manager)

// WithNames overrides the metric name prefix. Empty parts keep the
// defaults ("cuerank" and "engine").
func WithNames(namespace, subsystem string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets replaces the millisecond latency buckets.
func WithHistogramBuckets(buckets ...float64) Option {
	return func(m *Manager) {
		if len(buckets) != 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithConstLabels adds labels such as the deployment name to every series.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if len(labels) != 0 {
			m.constLabels = labels
		}
	}
}

// WithPrometheusRegistry registers the metrics on reg instead of the
// default registerer.
func WithPrometheusRegistry(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}
