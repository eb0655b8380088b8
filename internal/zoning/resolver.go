package zoning

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// Resolve finds the tracked object a detection belongs to. A detection that
// carries a tracker identity is resolved by that identity alone. Otherwise
// the object whose integer-truncated box equals the detection's is used; if
// several match, the last one in ascending key order wins.
func Resolve(objects types.TrackedObjects, det types.Detection) (*types.TrackableObject, error) {
	if det.TrackID != nil {
		if obj := byIdentity(objects, *det.TrackID); obj != nil {
			return obj, nil
		}
		return nil, ErrUnmatchedDetection
	}

	want := det.Box.Truncate()
	var match *types.TrackableObject
	for _, key := range sortedKeys(objects) {
		obj := objects[key]
		if obj != nil && obj.BBox.Truncate() == want {
			match = obj
		}
	}
	if match == nil {
		return nil, ErrUnmatchedDetection
	}
	return match, nil
}

func byIdentity(objects types.TrackedObjects, id types.ObjectID) *types.TrackableObject {
	if obj := objects[id.String()]; obj != nil && obj.ID == id {
		return obj
	}
	for _, key := range sortedKeys(objects) {
		if obj := objects[key]; obj != nil && obj.ID == id {
			return obj
		}
	}
	return nil
}

// sortedKeys orders keys numerically when both parse as integers and
// lexically otherwise.
func sortedKeys(objects types.TrackedObjects) []string {
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		ia, errA := strconv.ParseInt(a, 10, 64)
		ib, errB := strconv.ParseInt(b, 10, 64)
		switch {
		case errA == nil && errB == nil:
			return cmp.Compare(ia, ib)
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		default:
			return cmp.Compare(a, b)
		}
	})
	return keys
}
