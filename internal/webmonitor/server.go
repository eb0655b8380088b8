package webmonitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/logger"
)

// Server serves the zoning monitor endpoints.
type Server struct {
	cfg     Config
	monitor *Monitor
	zoning  *EventBroadcaster
	status  *StatusBroadcaster
	history HistorySource
	metrics http.Handler
	// observer is told the zoning stream client count when it changes.
	observer func(clients int)
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables /api/zoning/history.
func WithHistory(h HistorySource) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithClientObserver is told the zoning stream client count when it changes.
func WithClientObserver(f func(clients int)) Option {
	return func(s *Server) { s.observer = f }
}

// NewServer returns a configured monitor server. Call Close to stop its
// background work.
func NewServer(cfg Config, monitor *Monitor, opts ...Option) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:     cfg,
		monitor: monitor,
		status:  NewStatusBroadcaster(monitor, cfg.StatusInterval),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.zoning = NewEventBroadcaster("ZoningBroadcaster", s.observer)
	s.status.Start()
	return s
}

// Publish records a processed frame and streams it to subscribed clients.
func (s *Server) Publish(event ZoningEvent, latency time.Duration) {
	s.monitor.Update(event, latency)
	if s.zoning.ClientCount() == 0 {
		return
	}
	serialized, err := serializeEvent(event.asMap())
	if err != nil {
		logger.Error("ZoningBroadcaster", "Serialize frame %d: %v", event.FrameNumber, err)
		return
	}
	s.zoning.Publish(serialized)
}

// Fail records a frame the engine rejected.
func (s *Server) Fail() { s.monitor.Fail() }

// StreamClients returns the number of zoning stream subscribers.
func (s *Server) StreamClients() int { return s.zoning.ClientCount() }

// Close stops the status loop and disconnects every stream client.
func (s *Server) Close() {
	s.status.Stop()
	s.zoning.Close()
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.HandleFunc("/api/zoning/latest", s.handleLatest)
	mux.HandleFunc("/api/zoning/stream", s.handleZoningStream)
	mux.HandleFunc("/api/zoning/history", s.handleHistory)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, recent := s.monitor.Snapshot()
	stats.StreamClients = s.zoning.ClientCount()
	history := make([]map[string]any, len(recent))
	for i, ev := range recent {
		history[i] = ev.asMap()
	}
	writeJSON(w, map[string]any{
		"monitor":        stats,
		"zoning_history": history,
		"timestamp":      float64(time.Now().UnixNano()) / 1e9,
	})
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.status.Subscribe()
	defer s.status.Unsubscribe(id)
	streamEventsFromChannel(w, r, eventCh, s.cfg.KeepAliveInterval)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	event, ok := s.monitor.Latest()
	if !ok {
		writeJSONWithStatus(w, map[string]any{"error": "no frame processed yet"}, http.StatusNotFound)
		return
	}
	writeJSON(w, event.asMap())
}

func (s *Server) handleZoningStream(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.zoning.Subscribe()
	defer s.zoning.Unsubscribe(id)
	streamEventsFromChannel(w, r, eventCh, s.cfg.KeepAliveInterval)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSONWithStatus(w, map[string]any{"error": "history store is not configured"}, http.StatusNotFound)
		return
	}

	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONWithStatus(w, map[string]any{"error": "invalid limit"}, http.StatusBadRequest)
			return
		}
		limit = min(n, s.cfg.HistoryLimit)
	}

	rows, err := s.history.RecentCounts(r.Context(), r.URL.Query().Get("zone"), limit)
	if err != nil {
		logger.Error("WebMonitor", "History query failed: %v", err)
		writeJSONWithStatus(w, map[string]any{"error": "history query failed"}, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"counts": rows})
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
