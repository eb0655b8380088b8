// Package zoning classifies tracked objects against static polygon zones and
// reports, per zone and per class, which objects are present, which entered,
// which exited and which are outside the zones.
package zoning

import (
	"errors"
	"fmt"

	"golang.org/x/image/draw"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/geometry"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/mask"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// ExtraKey is the inference extra key PostProcess writes the result under.
const ExtraKey = "zoning"

// Engine holds the immutable zoning configuration. It has no per-frame
// state and may be shared between goroutines.
type Engine struct {
	zones       []geometry.Polygon
	removeAreas []geometry.Polygon
	catalog     *ClassCatalog
	restMode    RestMode
	blurSigma   float64
	log         logger.Module
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the log handle. The default logs through the global
// logger under "Zoning".
func WithLogger(m logger.Module) Option {
	return func(e *Engine) { e.log = m }
}

// New validates cfg and builds an Engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	catalog, err := NewClassCatalog(cfg.ClassNames, cfg.FilterClassIDs)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		catalog:   catalog,
		restMode:  cfg.RestMode,
		blurSigma: cfg.BlurSigma,
		log:       logger.For("Zoning"),
	}
	if e.blurSigma == 0 {
		e.blurSigma = mask.DefaultSigma
	}
	for _, z := range cfg.Zones {
		e.zones = append(e.zones, geometry.ZoneToPolygon(z))
	}
	for _, a := range cfg.RemoveAreas {
		e.removeAreas = append(e.removeAreas, geometry.ZoneToPolygon(a))
	}
	for _, opt := range opts {
		opt(e)
	}

	for i, z := range e.zones {
		if z.Degenerate() {
			e.log.Warn("%s encloses no area and will never contain an object", ZoneID(i))
		}
	}
	return e, nil
}

// ZoneIDs returns the output keys of the configured zones in order.
func (e *Engine) ZoneIDs() []string {
	ids := make([]string, len(e.zones))
	for i := range e.zones {
		ids[i] = ZoneID(i)
	}
	return ids
}

// Catalog returns the class catalog.
func (e *Engine) Catalog() *ClassCatalog { return e.catalog }

// RestMode returns the configured rest mode.
func (e *Engine) RestMode() RestMode { return e.restMode }

// PreProcess blurs the remove-areas of frame in place and returns it.
func (e *Engine) PreProcess(frame draw.Image) draw.Image {
	if len(e.removeAreas) == 0 {
		return frame
	}
	n := mask.Apply(frame, e.removeAreas, e.blurSigma)
	e.log.Debug("blurred %d of %d remove areas", n, len(e.removeAreas))
	return frame
}

// Stats counts what happened to a frame's detections.
type Stats struct {
	Detections     int
	Unmatched      int
	MissingHistory int
}

// Result is the outcome of zoning one frame.
type Result struct {
	// Zoning is the summarized tree reported to consumers.
	Zoning Node
	Stats  Stats
}

// PostProcess zones the frame and stores the tree in inf.Extra[ExtraKey].
// On error the inference is left untouched.
func (e *Engine) PostProcess(inf *types.Inference, objects types.TrackedObjects) (Result, error) {
	res, err := e.Zone(inf, objects)
	if err != nil {
		return Result{}, err
	}
	inf.SetExtra(ExtraKey, res.Zoning)
	return res, nil
}

// Zone computes the zoning tree for one frame without modifying its inputs.
func (e *Engine) Zone(inf *types.Inference, objects types.TrackedObjects) (Result, error) {
	dets, err := inf.Detections()
	if err != nil {
		return Result{}, fmt.Errorf("zoning: %w", err)
	}

	stats := Stats{Detections: len(dets)}
	resolved := make([]*types.TrackableObject, len(dets))
	for j, det := range dets {
		obj, err := Resolve(objects, det)
		if err != nil {
			stats.Unmatched++
			e.log.Debug("detection %d box=%v: %v", j, det.Box, err)
			continue
		}
		if _, _, ok := obj.LastTwoCentroids(); !ok {
			stats.MissingHistory++
			e.log.Debug("object %v: %v", obj.ID, ErrMissingHistory)
			continue
		}
		resolved[j] = obj
	}

	raw, err := e.aggregate(dets, resolved)
	if err != nil {
		return Result{}, err
	}
	return Result{Zoning: Summarize(raw), Stats: stats}, nil
}

// aggregate builds the unsummarized tree. resolved[j] is nil for detections
// that are skipped.
func (e *Engine) aggregate(dets []types.Detection, resolved []*types.TrackableObject) (Node, error) {
	names := make([]string, len(dets))
	for j, obj := range resolved {
		if obj == nil || len(e.zones) == 0 {
			continue
		}
		name, ok := e.catalog.Name(dets[j].ClassIndex)
		if !ok {
			return nil, &UnknownClassError{ClassIndex: dets[j].ClassIndex, Detection: j}
		}
		names[j] = name
	}

	out := make(Node, len(e.zones)+1)
	rest := e.catalog.emptyBuckets()
	insideAny := make([]bool, len(dets))

	for i, zone := range e.zones {
		record := e.catalog.emptyBuckets()
		entered := e.catalog.emptyBuckets()
		exited := e.catalog.emptyBuckets()
		zoneRest := e.catalog.emptyBuckets()

		for j, obj := range resolved {
			if obj == nil {
				continue
			}
			tr, err := Classify(zone, obj)
			if err != nil {
				if errors.Is(err, ErrMissingHistory) {
					continue
				}
				return nil, err
			}

			name := names[j]
			switch tr {
			case Entered:
				entered.appendID(name, obj.ID)
				record.appendID(name, obj.ID)
			case Exited:
				exited.appendID(name, obj.ID)
			case Present:
				record.appendID(name, obj.ID)
			case Rest:
				zoneRest.appendID(name, obj.ID)
			}
			if tr.Inside() {
				insideAny[j] = true
			}
		}

		record[KeyEntered] = NodeValue(entered)
		record[KeyExited] = NodeValue(exited)
		out[ZoneID(i)] = NodeValue(record)

		if e.restMode == RestPerZone {
			for _, name := range e.catalog.names {
				for _, id := range zoneRest[name].ids {
					rest.appendID(name, id)
				}
			}
		}
	}

	if e.restMode == RestGlobal && len(e.zones) > 0 {
		for j, obj := range resolved {
			if obj != nil && !insideAny[j] {
				rest.appendID(names[j], obj.ID)
			}
		}
	}

	out[KeyRest] = NodeValue(rest)
	return out, nil
}
