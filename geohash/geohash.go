// Package geohash gives stable string keys to points of a planar map by
// stretching the map region over the globe and geohashing the result.
package geohash

import (
	"quadnav/quadtree"

	"github.com/mmcloughlin/geohash"
)

// DefaultPrecision is the number of geohash characters used when none is
// configured. 12 characters split each axis into 2^30 steps.
const DefaultPrecision = 12

// Grid encodes points of a region.
type Grid struct {
	region    quadtree.Bounds
	precision uint
}

// New returns a grid over region. A zero precision selects
// DefaultPrecision.
func New(region quadtree.Bounds, precision uint) Grid {
	if precision == 0 || precision > DefaultPrecision {
		precision = DefaultPrecision
	}
	return Grid{
		region:    region,
		precision: precision,
	}
}

// Precision returns the number of characters in the produced hashes.
func (g Grid) Precision() uint {
	return g.precision
}

// Encode returns the geohash of p. Points outside the region are clamped to
// its edge.
func (g Grid) Encode(p quadtree.Point) string {
	lat, lon := g.toGlobe(p)
	return geohash.EncodeWithPrecision(lat, lon, g.precision)
}

func (g Grid) toGlobe(p quadtree.Point) (lat, lon float64) {
	x := clamp((p.X-g.region.MinX)/g.region.Width(), 0, 1)
	y := clamp((p.Y-g.region.MinY)/g.region.Height(), 0, 1)
	return -90 + 180*y, -180 + 360*x
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
