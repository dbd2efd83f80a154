package geohash

import (
	"quadnav/quadtree"
	"testing"

	"github.com/stretchr/testify/require"
)

var region = quadtree.Bounds{MinX: 0, MinY: 0, MaxX: 16, MaxY: 16}

func TestEncodeIsStable(t *testing.T) {
	g := New(region, 8)
	require.Equal(t, uint(8), g.Precision())

	a := g.Encode(quadtree.Point{X: 3.5, Y: 7.5})
	b := g.Encode(quadtree.Point{X: 3.5, Y: 7.5})
	require.Len(t, a, 8)
	require.Equal(t, a, b)
	require.NotEqual(t, a, g.Encode(quadtree.Point{X: 4.5, Y: 7.5}))
}

func TestDefaultPrecision(t *testing.T) {
	g := New(region, 0)
	require.Equal(t, uint(DefaultPrecision), g.Precision())
	require.Len(t, g.Encode(quadtree.Point{X: 8, Y: 8}), DefaultPrecision)

	require.Equal(t, uint(DefaultPrecision), New(region, 40).Precision())
}

func TestEncodeClampsOutsidePoints(t *testing.T) {
	g := New(region, 6)
	require.Equal(t,
		g.Encode(quadtree.Point{X: 0, Y: 0}),
		g.Encode(quadtree.Point{X: -100, Y: -100}),
	)
}
