package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/zoning"
)

// Metrics holds the zoning stage metrics
type Metrics struct {
	// Frame counters
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesFailed    atomic.Uint64
	FramesMalformed atomic.Uint64

	// Detection counters
	Detections     atomic.Uint64
	Unmatched      atomic.Uint64
	MissingHistory atomic.Uint64

	// Latency of the last processed frame
	ProcessLatencyUs atomic.Uint64

	// Monitor clients
	ActiveClients atomic.Uint64

	present *prometheus.GaugeVec
	entered *prometheus.CounterVec
	exited  *prometheus.CounterVec
	rest    *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		present: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zoning_zone_present_objects",
			Help: "Objects inside a zone in the last frame",
		}, []string{"zone", "class"}),
		entered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zoning_zone_entered_total",
			Help: "Objects that entered a zone",
		}, []string{"zone", "class"}),
		exited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zoning_zone_exited_total",
			Help: "Objects that exited a zone",
		}, []string{"zone", "class"}),
		rest: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zoning_rest_objects",
			Help: "Rest bucket entries in the last frame",
		}, []string{"class"}),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counters := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"zoning_frames_read_total", "Frame lines read from the input", &m.FramesRead},
		{"zoning_frames_processed_total", "Frames zoned successfully", &m.FramesProcessed},
		{"zoning_frames_failed_total", "Frames the engine rejected", &m.FramesFailed},
		{"zoning_frames_malformed_total", "Input lines that could not be decoded", &m.FramesMalformed},
		{"zoning_detections_total", "Detections seen", &m.Detections},
		{"zoning_detections_unmatched_total", "Detections with no tracked object", &m.Unmatched},
		{"zoning_detections_missing_history_total", "Detections whose object has fewer than two centroids", &m.MissingHistory},
	}
	for _, c := range counters {
		v := c.v
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "zoning_process_latency_us",
			Help: "Processing latency of the last frame in microseconds",
		},
		func() float64 { return float64(m.ProcessLatencyUs.Load()) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "zoning_monitor_clients",
			Help: "Connected monitor stream clients",
		},
		func() float64 { return float64(m.ActiveClients.Load()) },
	))

	m.registry.MustRegister(m.present, m.entered, m.exited, m.rest)
}

// ObserveFrame records a successfully zoned frame.
func (m *Metrics) ObserveFrame(stats zoning.Stats, counts []zoning.ZoneCount, took time.Duration) {
	m.FramesProcessed.Add(1)
	m.Detections.Add(uint64(stats.Detections))
	m.Unmatched.Add(uint64(stats.Unmatched))
	m.MissingHistory.Add(uint64(stats.MissingHistory))
	m.UpdateProcessLatency(took)

	for _, c := range counts {
		if c.Zone == zoning.KeyRest {
			m.rest.WithLabelValues(c.Class).Set(float64(c.Present))
			continue
		}
		m.present.WithLabelValues(c.Zone, c.Class).Set(float64(c.Present))
		m.entered.WithLabelValues(c.Zone, c.Class).Add(float64(c.Entered))
		m.exited.WithLabelValues(c.Zone, c.Class).Add(float64(c.Exited))
	}
}

// UpdateProcessLatency stores the latest processing latency
func (m *Metrics) UpdateProcessLatency(duration time.Duration) {
	m.ProcessLatencyUs.Store(uint64(duration.Microseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// NewServer returns an HTTP server exposing /metrics on addr.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
