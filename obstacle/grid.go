// Package obstacle produces the obstacle points a quadtree is filled with.
// Sources are plain point sequences: a uniform Grid of blocked cells, a few
// generated test shapes, or a Field of rectangles rasterized at the tree's
// minimum cell size.
package obstacle

import (
	"iter"
	"quadnav/quadtree"
)

// Source yields obstacle points.
type Source = iter.Seq[quadtree.Point]

// Grid is a uniform 2D map of blocked cells. Cell (x, y) is the x-th column
// and y-th row counted from the bottom left corner.
type Grid struct {
	Width  int
	Height int
	cells  []bool
}

// NewGrid returns a grid with every cell free. Non-positive dimensions are
// raised to 1.
func NewGrid(width, height int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]bool, width*height),
	}
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Set marks a cell as blocked or free. Cells outside the grid are ignored.
func (g *Grid) Set(x, y int, blocked bool) {
	if g.inBounds(x, y) {
		g.cells[y*g.Width+x] = blocked
	}
}

// Blocked reports whether a cell is blocked. Cells outside the grid are
// free.
func (g *Grid) Blocked(x, y int) bool {
	return g.inBounds(x, y) && g.cells[y*g.Width+x]
}

// Count returns the number of blocked cells.
func (g *Grid) Count() int {
	n := 0
	for _, b := range g.cells {
		if b {
			n++
		}
	}
	return n
}

// Points yields the center of every blocked cell, with the grid corner placed
// at origin and cells of the given size.
func (g *Grid) Points(origin quadtree.Point, cell float64) Source {
	return func(yield func(quadtree.Point) bool) {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				if !g.cells[y*g.Width+x] {
					continue
				}

				p := quadtree.Point{
					X: origin.X + (float64(x)+0.5)*cell,
					Y: origin.Y + (float64(y)+0.5)*cell,
				}
				if !yield(p) {
					return
				}
			}
		}
	}
}

// Rects yields the blocked cells as rectangles, merging horizontal runs of
// blocked cells into a single rectangle.
func (g *Grid) Rects(origin quadtree.Point, cell float64) iter.Seq[quadtree.Bounds] {
	return func(yield func(quadtree.Bounds) bool) {
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; {
				if !g.cells[y*g.Width+x] {
					x++
					continue
				}

				start := x
				for x < g.Width && g.cells[y*g.Width+x] {
					x++
				}

				r := quadtree.Bounds{
					MinX: origin.X + float64(start)*cell,
					MinY: origin.Y + float64(y)*cell,
					MaxX: origin.X + float64(x)*cell,
					MaxY: origin.Y + float64(y+1)*cell,
				}
				if !yield(r) {
					return
				}
			}
		}
	}
}
