package webmonitor

import (
	"time"
)

// Config defines the runtime configuration for the web monitor server.
type Config struct {
	Addr              string
	StatusInterval    time.Duration
	KeepAliveInterval time.Duration
	HistoryLimit      int
	// RecentEvents is how many zoning events /api/status reports.
	RecentEvents int
}

// DefaultConfig returns the monitor defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8090",
		StatusInterval:    2 * time.Second,
		KeepAliveInterval: 30 * time.Second,
		HistoryLimit:      100,
		RecentEvents:      8,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.StatusInterval <= 0 {
		c.StatusInterval = def.StatusInterval
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = def.KeepAliveInterval
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.RecentEvents <= 0 {
		c.RecentEvents = def.RecentEvents
	}
	return c
}
