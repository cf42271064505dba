package providers

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics is the default Metrics Sink, registering document-driven
// gauges and counters on a private Prometheus registry.
type PromMetrics struct {
	reg      *prometheus.Registry
	mu       sync.Mutex
	gauges   map[string]prometheus.Gauge
	counters map[string]prometheus.Counter
}

// NewPromMetrics returns a sink with its own registry.
func NewPromMetrics() *PromMetrics {
	return &PromMetrics{
		reg:      prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
		counters: make(map[string]prometheus.Counter),
	}
}

// Registry exposes the underlying Prometheus registry so hosts can mount it
// on an HTTP handler.
func (m *PromMetrics) Registry() *prometheus.Registry {
	return m.reg
}

// sanitizeMetricName maps arbitrary document keys onto the Prometheus
// naming charset.
func sanitizeMetricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		}
		return '_'
	}, name)
}

// Gauge implements registry.MetricsSink.
func (m *PromMetrics) Gauge(name string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = sanitizeMetricName(name)
	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{Name: name})
		if err := m.reg.Register(g); err != nil {
			return err
		}
		m.gauges[name] = g
	}
	g.Set(value)
	return nil
}

// Inc implements registry.MetricsSink.
func (m *PromMetrics) Inc(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = sanitizeMetricName(name)
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{Name: name + "_total"})
		if err := m.reg.Register(c); err != nil {
			return err
		}
		m.counters[name] = c
	}
	c.Inc()
	return nil
}
