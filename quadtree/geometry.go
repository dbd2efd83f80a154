package quadtree

import "math"

// Point represents a point in 2D space
type Point struct {
	X, Y float64
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// SquaredDistance returns the squared euclidean distance between two points.
func SquaredDistance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// Distance calculates the Euclidean distance between two points
func Distance(a, b Point) float64 {
	return math.Sqrt(SquaredDistance(a, b))
}

// Bounds represents the boundaries of a region. The minimum edges are
// inclusive and the maximum edges exclusive, so sibling cells never share a
// point.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsAround returns the square of the given side centered on c.
func BoundsAround(c Point, size float64) Bounds {
	half := size / 2
	return Bounds{
		MinX: c.X - half,
		MinY: c.Y - half,
		MaxX: c.X + half,
		MaxY: c.Y + half,
	}
}

// Contains checks if the point is within the bounds
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X < b.MaxX &&
		p.Y >= b.MinY && p.Y < b.MaxY
}

// Intersects reports whether the two bounds overlap with a non-empty area.
func (b Bounds) Intersects(o Bounds) bool {
	return o.MaxX > b.MinX && o.MinX < b.MaxX &&
		o.MaxY > b.MinY && o.MinY < b.MaxY
}

func (b Bounds) Center() Point {
	return Point{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
}

func (b Bounds) Width() float64 {
	return b.MaxX - b.MinX
}

func (b Bounds) Height() float64 {
	return b.MaxY - b.MinY
}
