package zoning

import (
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/geometry"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// Transition is an object's movement relative to one zone between the
// previous and the current frame.
type Transition uint8

const (
	Rest Transition = iota
	Entered
	Exited
	Present
)

func (t Transition) String() string {
	switch t {
	case Entered:
		return "ENTERED"
	case Exited:
		return "EXITED"
	case Present:
		return "PRESENT"
	default:
		return "REST"
	}
}

// Inside reports whether the object is in the zone in the current frame.
func (t Transition) Inside() bool {
	return t == Entered || t == Present
}

// Classify compares the object's previous and current centroids against zone.
func Classify(zone geometry.Polygon, obj *types.TrackableObject) (Transition, error) {
	prev, cur, ok := obj.LastTwoCentroids()
	if !ok {
		return Rest, ErrMissingHistory
	}

	wasIn := zone.ContainsPoint(prev)
	isIn := zone.ContainsPoint(cur)
	switch {
	case !wasIn && isIn:
		return Entered, nil
	case wasIn && !isIn:
		return Exited, nil
	case wasIn && isIn:
		return Present, nil
	default:
		return Rest, nil
	}
}
