// Package promstat implements musiclake.Statter on Prometheus collectors held
// in a private registry, so a batch run can leave its counters behind as a
// node-exporter textfile.
package promstat

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "musiclake"

// Statter registers a collector the first time a stat name is seen.
type Statter struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewStatter returns a Statter with an empty registry.
func NewStatter() *Statter {
	return &Statter{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the registry holding every collector created so far.
func (s *Statter) Registry() *prometheus.Registry { return s.registry }

// metricName turns "songplays.join_miss" into "songplays_join_miss".
func metricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// Count adds value to the counter musiclake_<name>_total. Prometheus counters
// only go up, so negative values are dropped.
func (s *Statter) Count(name string, value int64, rate float64, tags ...string) {
	if value < 0 {
		return
	}
	s.mu.Lock()
	c, ok := s.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      metricName(name) + "_total",
			Help:      "Total " + name + " counted during the run",
		})
		s.counters[name] = c
		s.registry.MustRegister(c)
	}
	s.mu.Unlock()
	c.Add(float64(value))
}

// Gauge sets the gauge musiclake_<name>.
func (s *Statter) Gauge(name string, value float64, rate float64, tags ...string) {
	s.mu.Lock()
	g, ok := s.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      metricName(name),
			Help:      "Last value of " + name,
		})
		s.gauges[name] = g
		s.registry.MustRegister(g)
	}
	s.mu.Unlock()
	g.Set(value)
}

// Histogram observes value in the histogram musiclake_<name>.
func (s *Statter) Histogram(name string, value float64, rate float64, tags ...string) {
	s.histogram(metricName(name), name, prometheus.DefBuckets).Observe(value)
}

// Set is not supported by Prometheus and does nothing.
func (s *Statter) Set(name string, value string, rate float64, tags ...string) {}

// Timing observes value in the histogram musiclake_<name>_seconds.
func (s *Statter) Timing(name string, value time.Duration, rate float64, tags ...string) {
	s.histogram(metricName(name)+"_seconds", name, prometheus.ExponentialBuckets(0.001, 2, 16)).Observe(value.Seconds())
}

func (s *Statter) histogram(metric, name string, buckets []float64) prometheus.Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histograms[metric]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      metric,
			Help:      "Distribution of " + name,
			Buckets:   buckets,
		})
		s.histograms[metric] = h
		s.registry.MustRegister(h)
	}
	return h
}

// WriteTextfile writes every metric in the registry to path in the text
// exposition format, atomically replacing any previous file.
func (s *Statter) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, s.registry)
	return errors.Wrapf(err, "writing metrics to %s", path)
}
