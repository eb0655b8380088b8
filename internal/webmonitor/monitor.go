package webmonitor

import (
	"sync"
	"time"
)

// Monitor keeps the latest zoning events and frame counters for the status
// endpoints. The frame loop writes to it; HTTP handlers read snapshots.
type Monitor struct {
	startTime time.Time
	zones     []string
	classes   []string
	restMode  string
	keep      int

	mu              sync.Mutex
	framesProcessed uint64
	framesFailed    uint64
	lastLatency     time.Duration
	latest          *ZoningEvent
	recent          []ZoningEvent
}

// NewMonitor creates a Monitor describing the configured zones and classes.
// keep bounds the number of recent events retained.
func NewMonitor(zones, classes []string, restMode string, keep int) *Monitor {
	if keep <= 0 {
		keep = DefaultConfig().RecentEvents
	}
	return &Monitor{
		startTime: time.Now(),
		zones:     append([]string(nil), zones...),
		classes:   append([]string(nil), classes...),
		restMode:  restMode,
		keep:      keep,
	}
}

// Update records a processed frame.
func (m *Monitor) Update(event ZoningEvent, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.framesProcessed++
	m.lastLatency = latency
	m.latest = &event
	m.recent = append([]ZoningEvent{event}, m.recent...)
	if len(m.recent) > m.keep {
		m.recent = m.recent[:m.keep]
	}
}

// Fail records a frame the engine rejected.
func (m *Monitor) Fail() {
	m.mu.Lock()
	m.framesFailed++
	m.mu.Unlock()
}

// Latest returns the most recent event.
func (m *Monitor) Latest() (ZoningEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return ZoningEvent{}, false
	}
	return *m.latest, true
}

// Snapshot returns the current stats and the recent events, newest first.
func (m *Monitor) Snapshot() (MonitorStats, []ZoningEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := MonitorStats{
		FramesProcessed: m.framesProcessed,
		FramesFailed:    m.framesFailed,
		LastLatencyMs:   float64(m.lastLatency.Microseconds()) / 1000,
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
		Zones:           append([]string{}, m.zones...),
		Classes:         append([]string{}, m.classes...),
		RestMode:        m.restMode,
	}
	recent := make([]ZoningEvent, len(m.recent))
	copy(recent, m.recent)
	return stats, recent
}
