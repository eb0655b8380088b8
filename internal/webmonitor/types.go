package webmonitor

import (
	"context"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/store"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/zoning"
)

// ZoningEvent is the payload for /api/zoning/latest and /api/zoning/stream.
type ZoningEvent struct {
	FrameNumber uint64
	Timestamp   float64
	Zoning      zoning.Node
	Stats       zoning.Stats
}

// asMap is the shared source of the JSON and protobuf encodings.
func (e ZoningEvent) asMap() map[string]any {
	return map[string]any{
		"frame_number": e.FrameNumber,
		"timestamp":    e.Timestamp,
		"zoning":       e.Zoning.AsMap(),
		"stats": map[string]any{
			"detections":      e.Stats.Detections,
			"unmatched":       e.Stats.Unmatched,
			"missing_history": e.Stats.MissingHistory,
		},
	}
}

// MonitorStats is the payload of /api/status.
type MonitorStats struct {
	FramesProcessed uint64   `json:"frames_processed"`
	FramesFailed    uint64   `json:"frames_failed"`
	LastLatencyMs   float64  `json:"last_latency_ms"`
	UptimeSeconds   float64  `json:"uptime_seconds"`
	StreamClients   int      `json:"stream_clients"`
	Zones           []string `json:"zones"`
	Classes         []string `json:"classes"`
	RestMode        string   `json:"rest_mode"`
}

// HistorySource serves stored zone counts.
type HistorySource interface {
	RecentCounts(ctx context.Context, zone string, limit int) ([]store.CountRow, error)
}
