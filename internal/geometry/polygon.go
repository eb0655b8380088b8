// Package geometry converts boxes and configured zones into polygons and
// answers point containment.
//
// Containment is strict: a point lying exactly on an edge or vertex is not
// inside. This matches the convention the zone configuration was authored
// against, where an object standing on the zone line has not entered.
package geometry

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

// Polygon is a ring of vertices. The edge from the last vertex back to the
// first is implicit, so an explicit closing vertex is allowed but not needed.
type Polygon []r2.Vec

// Vec converts a pixel point into a vector.
func Vec(p types.Point) r2.Vec {
	return r2.Vec{X: p[0], Y: p[1]}
}

// ZoneToPolygon builds a polygon from configured zone points. Self
// intersections are not checked.
func ZoneToPolygon(points []types.Point) Polygon {
	poly := make(Polygon, len(points))
	for i, p := range points {
		poly[i] = Vec(p)
	}
	return poly
}

// BoxToPolygon returns the closed rectangle for an (xmin, ymin, xmax, ymax) box.
func BoxToPolygon(b types.Box) Polygon {
	return Polygon{
		{X: b[0], Y: b[1]},
		{X: b[2], Y: b[1]},
		{X: b[2], Y: b[3]},
		{X: b[0], Y: b[3]},
		{X: b[0], Y: b[1]},
	}
}

// Ring returns the vertices without a repeated closing vertex.
func (p Polygon) Ring() Polygon {
	if n := len(p); n > 1 && p[0] == p[n-1] {
		return p[:n-1]
	}
	return p
}

// Degenerate reports whether the polygon encloses no area.
func (p Polygon) Degenerate() bool {
	return len(p.Ring()) < 3 || p.Area() == 0
}

// Area returns the unsigned shoelace area.
func (p Polygon) Area() float64 {
	ring := p.Ring()
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		sum += r2.Cross(a, b)
	}
	return math.Abs(sum) / 2
}

// OnBoundary reports whether pt lies on an edge or vertex.
func (p Polygon) OnBoundary(pt r2.Vec) bool {
	ring := p.Ring()
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		if onSegment(a, b, pt) {
			return true
		}
	}
	return false
}

func onSegment(a, b, pt r2.Vec) bool {
	if r2.Cross(r2.Sub(b, a), r2.Sub(pt, a)) != 0 {
		return false
	}
	return pt.X >= math.Min(a.X, b.X) && pt.X <= math.Max(a.X, b.X) &&
		pt.Y >= math.Min(a.Y, b.Y) && pt.Y <= math.Max(a.Y, b.Y)
}

// Contains reports whether pt lies strictly inside the polygon.
func (p Polygon) Contains(pt r2.Vec) bool {
	if p.Degenerate() || p.OnBoundary(pt) {
		return false
	}

	ring := p.Ring()
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// ContainsPoint is Contains for pixel points.
func (p Polygon) ContainsPoint(pt types.Point) bool {
	return p.Contains(Vec(pt))
}

// Bounds returns the smallest integer rectangle covering the polygon.
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := minX, minY
	for _, v := range p[1:] {
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}
