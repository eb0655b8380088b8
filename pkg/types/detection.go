package types

import (
	"fmt"
)

// Point is a 2-D pixel position (x, y).
type Point [2]float64

// X returns the horizontal coordinate.
func (p Point) X() float64 { return p[0] }

// Y returns the vertical coordinate.
func (p Point) Y() float64 { return p[1] }

// Box is an axis-aligned bounding box in (xmin, ymin, xmax, ymax) order.
type Box [4]float64

// Truncate returns the box coordinates truncated toward zero.
func (b Box) Truncate() [4]int {
	return [4]int{int(b[0]), int(b[1]), int(b[2]), int(b[3])}
}

// Centroid returns the centre of the box.
func (b Box) Centroid() Point {
	return Point{(b[0] + b[2]) / 2, (b[1] + b[3]) / 2}
}

// Detection is one object seen in the current frame.
type Detection struct {
	Box        Box
	ClassIndex int
	// TrackID is the tracker identity reported with the detection, if any.
	TrackID *ObjectID
}

// Inference is the detector output for one frame. Boxes, Classes and TrackIDs
// are parallel lists; TrackIDs may be empty or shorter than Boxes.
type Inference struct {
	Boxes    []Box
	Classes  []int
	TrackIDs []*ObjectID
	Extra    map[string]any
}

// Detections zips the parallel lists into detections.
func (inf *Inference) Detections() ([]Detection, error) {
	if len(inf.Boxes) != len(inf.Classes) {
		return nil, fmt.Errorf("inference has %d boxes but %d classes", len(inf.Boxes), len(inf.Classes))
	}
	if len(inf.TrackIDs) > len(inf.Boxes) {
		return nil, fmt.Errorf("inference has %d track ids for %d boxes", len(inf.TrackIDs), len(inf.Boxes))
	}

	dets := make([]Detection, len(inf.Boxes))
	for i, box := range inf.Boxes {
		dets[i] = Detection{Box: box, ClassIndex: inf.Classes[i]}
		if i < len(inf.TrackIDs) {
			dets[i].TrackID = inf.TrackIDs[i]
		}
	}
	return dets, nil
}

// SetExtra stores a value under key, allocating the map on first use.
func (inf *Inference) SetExtra(key string, value any) {
	if inf.Extra == nil {
		inf.Extra = make(map[string]any)
	}
	inf.Extra[key] = value
}

// TrackableObject is the tracker's record of one object. The zoning stage
// only reads it.
type TrackableObject struct {
	ID        ObjectID `json:"id"`
	BBox      Box      `json:"bbox"`
	Centroids []Point  `json:"centroids"`
}

// LastTwoCentroids returns the previous and current centroid. ok is false
// when fewer than two centroids have been recorded.
func (o *TrackableObject) LastTwoCentroids() (prev, cur Point, ok bool) {
	n := len(o.Centroids)
	if n < 2 {
		return Point{}, Point{}, false
	}
	return o.Centroids[n-2], o.Centroids[n-1], true
}

// TrackedObjects is the tracker state shared with the pipeline, keyed by an
// opaque tracker key.
type TrackedObjects map[string]*TrackableObject
