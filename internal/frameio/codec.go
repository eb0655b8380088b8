// Package frameio reads and writes frame lines: one JSON document per frame
// carrying frame metadata, the detector output and the tracker state.
package frameio

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// ErrMalformed wraps every decoding error.
var ErrMalformed = errors.New("frameio: malformed frame line")

// ZoningPath is where Encode splices the zoning result into a frame line.
const ZoningPath = "inference.extra.zoning"

// Frame is a decoded frame line. Raw aliases the decoded line so fields the
// stage does not understand survive the round trip; the caller must not reuse
// the line buffer while the Frame is in use.
type Frame struct {
	Info      types.FrameInfo
	Inference types.Inference
	Objects   types.TrackedObjects
	Raw       []byte
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Decode parses one frame line.
func Decode(line []byte) (*Frame, error) {
	if !gjson.ValidBytes(line) {
		return nil, malformed("not valid JSON")
	}
	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return nil, malformed("not a JSON object")
	}

	f := &Frame{Raw: line}

	frame := doc.Get("frame")
	f.Info = types.FrameInfo{
		Number:    frame.Get("number").Uint(),
		Timestamp: types.TimeFromUnixSeconds(frame.Get("timestamp").Float()),
		Width:     int(frame.Get("width").Int()),
		Height:    int(frame.Get("height").Int()),
	}

	inf := doc.Get("inference")
	for _, field := range []string{"boxes", "classes", "track_ids"} {
		if v := inf.Get(field); v.Exists() && v.Type != gjson.Null && !v.IsArray() {
			return nil, malformed("inference.%s is not an array", field)
		}
	}

	var err error
	inf.Get("boxes").ForEach(func(_, v gjson.Result) bool {
		var box types.Box
		if box, err = decodeBox(v); err != nil {
			return false
		}
		f.Inference.Boxes = append(f.Inference.Boxes, box)
		return true
	})
	if err != nil {
		return nil, err
	}

	inf.Get("classes").ForEach(func(_, v gjson.Result) bool {
		if v.Type != gjson.Number {
			err = malformed("class %q is not a number", v.Raw)
			return false
		}
		f.Inference.Classes = append(f.Inference.Classes, int(v.Int()))
		return true
	})
	if err != nil {
		return nil, err
	}

	inf.Get("track_ids").ForEach(func(_, v gjson.Result) bool {
		switch v.Type {
		case gjson.Null:
			f.Inference.TrackIDs = append(f.Inference.TrackIDs, nil)
		default:
			var id types.ObjectID
			if id, err = decodeID(v); err != nil {
				return false
			}
			f.Inference.TrackIDs = append(f.Inference.TrackIDs, &id)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	if extra, ok := inf.Get("extra").Value().(map[string]any); ok {
		f.Inference.Extra = extra
	}

	if f.Objects, err = decodeObjects(doc.Get("trackable_objects")); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeObjects(v gjson.Result) (types.TrackedObjects, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return types.TrackedObjects{}, nil
	}
	if !v.IsObject() {
		return nil, malformed("trackable_objects is not an object")
	}

	objects := make(types.TrackedObjects)
	var err error
	v.ForEach(func(key, o gjson.Result) bool {
		if !o.IsObject() {
			err = malformed("trackable object %q is not an object", key.String())
			return false
		}
		obj := &types.TrackableObject{}
		if id := o.Get("id"); id.Exists() && id.Type != gjson.Null {
			if obj.ID, err = decodeID(id); err != nil {
				return false
			}
		} else {
			// Trackers that key by id may omit it from the record.
			obj.ID = keyID(key.String())
		}
		if bbox := o.Get("bbox"); bbox.Exists() {
			if obj.BBox, err = decodeBox(bbox); err != nil {
				return false
			}
		}
		centroids := o.Get("centroids")
		if centroids.Exists() && centroids.Type != gjson.Null && !centroids.IsArray() {
			err = malformed("centroids of %q is not an array", key.String())
			return false
		}
		centroids.ForEach(func(_, c gjson.Result) bool {
			var p types.Point
			if p, err = decodePoint(c); err != nil {
				return false
			}
			obj.Centroids = append(obj.Centroids, p)
			return true
		})
		if err != nil {
			return false
		}
		objects[key.String()] = obj
		return true
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// decodeID reads an integral number or a string identity.
func decodeID(v gjson.Result) (types.ObjectID, error) {
	switch v.Type {
	case gjson.String:
		return types.StringID(v.Str), nil
	case gjson.Number:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return types.ObjectID{}, malformed("object id %s is not an integer", v.Raw)
		}
		return types.IntID(n), nil
	default:
		return types.ObjectID{}, malformed("object id %s is neither an integer nor a string", v.Raw)
	}
}

// keyID derives an identity from a tracker map key: integer keys give
// integer ids, anything else is used as a string id.
func keyID(key string) types.ObjectID {
	if n, err := strconv.ParseInt(key, 10, 64); err == nil {
		return types.IntID(n)
	}
	return types.StringID(key)
}

func decodeBox(v gjson.Result) (types.Box, error) {
	var b types.Box
	arr := v.Array()
	if len(arr) != 4 {
		return b, malformed("box %s does not have 4 coordinates", v.Raw)
	}
	for i, c := range arr {
		if c.Type != gjson.Number {
			return b, malformed("box %s has a non-numeric coordinate", v.Raw)
		}
		b[i] = c.Float()
	}
	return b, nil
}

func decodePoint(v gjson.Result) (types.Point, error) {
	var p types.Point
	arr := v.Array()
	if len(arr) != 2 || arr[0].Type != gjson.Number || arr[1].Type != gjson.Number {
		return p, malformed("centroid %s is not an [x, y] pair", v.Raw)
	}
	p[0], p[1] = arr[0].Float(), arr[1].Float()
	return p, nil
}

// Encode returns the original line with the zoning JSON spliced in at
// ZoningPath. Everything else in the line is preserved.
func Encode(f *Frame, zoningJSON []byte) ([]byte, error) {
	out, err := sjson.SetRawBytes(f.Raw, ZoningPath, zoningJSON)
	if err != nil {
		return nil, fmt.Errorf("frameio: splice zoning result: %w", err)
	}
	return out, nil
}
