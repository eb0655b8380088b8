package types

import (
	"math"
	"time"
)

// FrameInfo carries the metadata of one frame on the pipeline
type FrameInfo struct {
	Number    uint64    // Sequential frame number
	Timestamp time.Time // Frame capture timestamp
	Width     int       // Frame width
	Height    int       // Frame height
}

// UnixSeconds returns the capture time as fractional Unix seconds, the form
// frame lines use on the wire.
func (f FrameInfo) UnixSeconds() float64 {
	if f.Timestamp.IsZero() {
		return 0
	}
	return float64(f.Timestamp.UnixNano()) / 1e9
}

// TimeFromUnixSeconds converts fractional Unix seconds into a time.
func TimeFromUnixSeconds(s float64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*1e9))
}
