package webmonitor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/logger"
)

// SerializedEvent holds pre-serialized data in both formats.
// This avoids redundant serialization when broadcasting to multiple clients.
type SerializedEvent struct {
	JSONData     []byte // Pre-serialized JSON
	ProtobufData []byte // Pre-serialized google.protobuf.Struct, base64 encoded for SSE
}

// serializeEvent encodes payload as JSON and as a protobuf Struct.
func serializeEvent(payload map[string]any) (*SerializedEvent, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	pbStruct, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, fmt.Errorf("protobuf struct: %w", err)
	}
	pbData, err := proto.Marshal(pbStruct)
	if err != nil {
		return nil, fmt.Errorf("protobuf marshal: %w", err)
	}

	return &SerializedEvent{
		JSONData:     jsonData,
		ProtobufData: []byte(base64.StdEncoding.EncodeToString(pbData)),
	}, nil
}

// EventBroadcaster fans pre-serialized events out to SSE clients.
// Slow clients skip events instead of blocking the publisher.
type EventBroadcaster struct {
	name     string
	mu       sync.Mutex
	clients  map[int]chan *SerializedEvent
	nextID   int
	closed   bool
	observer func(clients int)
}

// NewEventBroadcaster creates a broadcaster. observer, if set, is told the
// client count whenever it changes.
func NewEventBroadcaster(name string, observer func(clients int)) *EventBroadcaster {
	return &EventBroadcaster{
		name:     name,
		clients:  make(map[int]chan *SerializedEvent),
		observer: observer,
	}
}

// Subscribe adds a new client and returns a channel for receiving events.
// The channel is closed by Unsubscribe or Close.
func (b *EventBroadcaster) Subscribe() (int, <-chan *SerializedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan *SerializedEvent, 2) // Buffer 2 events to avoid blocking
	if b.closed {
		close(ch)
		return id, ch
	}
	b.clients[id] = ch

	logger.Debug(b.name, "Client #%d subscribed (total clients: %d)", id, len(b.clients))
	b.notifyLocked()
	return id, ch
}

// Unsubscribe removes a client.
func (b *EventBroadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		logger.Debug(b.name, "Client #%d unsubscribed (remaining clients: %d)", id, len(b.clients))
		b.notifyLocked()
	}
}

// ClientCount returns the number of subscribed clients.
func (b *EventBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends event to every client that has room for it.
func (b *EventBroadcaster) Publish(event *SerializedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.clients {
		select {
		case ch <- event:
		default:
			logger.Debug(b.name, "Client #%d is behind, event skipped", id)
		}
	}
}

// Close disconnects every client. Later subscribers get a closed channel.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
	b.notifyLocked()
}

func (b *EventBroadcaster) notifyLocked() {
	if b.observer != nil {
		b.observer(len(b.clients))
	}
}

// StatusBroadcaster periodically publishes monitor status to its clients.
type StatusBroadcaster struct {
	*EventBroadcaster
	monitor  *Monitor
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewStatusBroadcaster creates a broadcaster for status events.
func NewStatusBroadcaster(monitor *Monitor, interval time.Duration) *StatusBroadcaster {
	return &StatusBroadcaster{
		EventBroadcaster: NewEventBroadcaster("StatusBroadcaster", nil),
		monitor:          monitor,
		interval:         interval,
		stop:             make(chan struct{}),
	}
}

// Start begins the status event loop.
func (sb *StatusBroadcaster) Start() {
	go sb.run()
}

// Stop halts the loop and disconnects clients.
func (sb *StatusBroadcaster) Stop() {
	sb.once.Do(func() {
		close(sb.stop)
		sb.Close()
	})
}

func (sb *StatusBroadcaster) run() {
	logger.Debug("StatusBroadcaster", "Starting status event broadcaster (interval=%v)", sb.interval)
	ticker := time.NewTicker(sb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sb.stop:
			return
		case <-ticker.C:
			if sb.ClientCount() == 0 {
				continue
			}
			event, err := serializeEvent(statusPayload(sb.monitor))
			if err != nil {
				logger.Error("StatusBroadcaster", "Serialize status: %v", err)
				continue
			}
			sb.Publish(event)
		}
	}
}

func statusPayload(m *Monitor) map[string]any {
	stats, recent := m.Snapshot()
	history := make([]any, len(recent))
	for i, ev := range recent {
		history[i] = ev.asMap()
	}
	zones := make([]any, len(stats.Zones))
	for i, z := range stats.Zones {
		zones[i] = z
	}
	classes := make([]any, len(stats.Classes))
	for i, c := range stats.Classes {
		classes[i] = c
	}
	return map[string]any{
		"monitor": map[string]any{
			"frames_processed": stats.FramesProcessed,
			"frames_failed":    stats.FramesFailed,
			"last_latency_ms":  stats.LastLatencyMs,
			"uptime_seconds":   stats.UptimeSeconds,
			"zones":            zones,
			"classes":          classes,
			"rest_mode":        stats.RestMode,
		},
		"zoning_history": history,
		"timestamp":      float64(time.Now().UnixNano()) / 1e9,
	}
}
