// Package mask blurs configured remove-areas of a frame before inference.
package mask

import (
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/internal/geometry"
)

// DefaultSigma is the Gaussian blur radius used when none is configured.
// It gives roughly the smoothing of a 30x30 box filter.
const DefaultSigma = 8.0

// Rasterize returns a single-channel mask of size bounds.Size(), opaque
// inside area and transparent outside. The mask origin corresponds to
// bounds.Min. It returns nil for degenerate areas.
func Rasterize(area geometry.Polygon, bounds image.Rectangle) *image.Alpha {
	if area.Degenerate() || bounds.Empty() {
		return nil
	}

	w, h := bounds.Dx(), bounds.Dy()
	ox, oy := float32(bounds.Min.X), float32(bounds.Min.Y)

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	ring := area.Ring()
	z.MoveTo(float32(ring[0].X)-ox, float32(ring[0].Y)-oy)
	for _, v := range ring[1:] {
		z.LineTo(float32(v.X)-ox, float32(v.Y)-oy)
	}
	z.ClosePath()

	m := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(m, m.Bounds(), image.Opaque, image.Point{})
	return m
}

// Apply blurs every area of frame in place. Each area blurs the frame as it
// stands after the previous areas, so overlapping areas accumulate. Pixels
// outside every area are left untouched.
func Apply(frame draw.Image, areas []geometry.Polygon, sigma float64) int {
	b := frame.Bounds()
	applied := 0
	for _, area := range areas {
		m := Rasterize(area, b)
		if m == nil {
			continue
		}
		blurred := imaging.Blur(frame, sigma)
		draw.DrawMask(frame, b, blurred, image.Point{}, m, image.Point{}, draw.Over)
		applied++
	}
	return applied
}
