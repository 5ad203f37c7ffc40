package recurrence

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the engine's Prometheus collectors.
type Metrics struct {
	CacheRequests *prometheus.CounterVec
	Occurrences   *prometheus.CounterVec
	Truncations   *prometheus.CounterVec
}

// NewMetrics creates unregistered engine metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "librecur",
				Subsystem: "engine",
				Name:      "cache_requests_total",
				Help:      "Occurrence cache lookups by result (hit or miss)",
			},
			[]string{"operation", "result"},
		),

		Occurrences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "librecur",
				Subsystem: "engine",
				Name:      "occurrences_total",
				Help:      "Total number of occurrences returned",
			},
			[]string{"operation"},
		),

		Truncations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "librecur",
				Subsystem: "engine",
				Name:      "truncations_total",
				Help:      "Queries cut short by the MaxOccurrences limit",
			},
			[]string{"operation"},
		),
	}
}

// Register registers all collectors with reg. When an equal collector is
// already registered, m switches to it so both report to the same series.
// Call Register before handing m to an Engine.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, vec := range []**prometheus.CounterVec{&m.CacheRequests, &m.Occurrences, &m.Truncations} {
		err := reg.Register(*vec)
		if err == nil {
			continue
		}
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return err
		}
		*vec = existing
	}
	return nil
}

func (m *Metrics) cacheResult(operation string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) returned(operation string, n int) {
	if m == nil {
		return
	}
	m.Occurrences.WithLabelValues(operation).Add(float64(n))
}

func (m *Metrics) truncated(operation string) {
	if m == nil {
		return
	}
	m.Truncations.WithLabelValues(operation).Inc()
}
