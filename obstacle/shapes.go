package obstacle

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ErrTypeUnknownShape is returned by Generate for an unknown shape name.
const ErrTypeUnknownShape = "obstacle_unknown_shape"

// Direction orients generated shapes.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// ParseDirection returns the direction named s. The empty string is North.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "north":
		return North, nil
	case "south":
		return South, nil
	case "east":
		return East, nil
	case "west":
		return West, nil
	default:
		return North, errors.New("unknown direction").
			WithType(ErrTypeUnknownShape).
			WithTag("direction", s)
	}
}

// Shape names accepted by Generate.
const (
	ShapeStraight = "straight"
	ShapeOuterU   = "outer_u"
	ShapeInnerU   = "inner_u"
	ShapeWall     = "wall"
)

// Generate builds a size x size grid holding the named shape.
func Generate(shape string, size int, dir Direction) (*Grid, error) {
	switch shape {
	case ShapeStraight:
		return Straight(size), nil

	case ShapeOuterU:
		return OuterU(size, dir), nil

	case ShapeInnerU:
		return InnerU(size, dir), nil

	case ShapeWall:
		return DoorWall(size, dir), nil

	default:
		return nil, errors.New("unknown obstacle shape").
			WithType(ErrTypeUnknownShape).
			WithTag("shape", shape)
	}
}

// Straight blocks a band across the middle columns that runs from just below
// the center to the top edge.
func Straight(size int) *Grid {
	g := NewGrid(size, size)
	c, b := size/2, size/4

	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if x > c-b && x < c+b && y > c-b {
				g.Set(x, y, true)
			}
		}
	}
	return g
}

// OuterU blocks a band through the middle of the grid that reaches the edge
// on the side given by dir.
func OuterU(size int, dir Direction) *Grid {
	g := NewGrid(size, size)
	c, b := size/2, size/4

	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			var blocked bool

			switch {
			case x > c-b && x < c+b && (dir == North || dir == South):
				blocked = (dir == North && y > c-b) || (dir == South && y < c+b)

			case y > c-b && y < c+b && (dir == East || dir == West):
				blocked = (dir == East && x > c-b) || (dir == West && x < c+b)
			}

			g.Set(x, y, blocked)
		}
	}
	return g
}

// InnerU draws a hollow square around the center of the grid, open on the
// side given by dir.
func InnerU(size int, dir Direction) *Grid {
	g := NewGrid(size, size)
	c, b := size/2, size/4
	h := b / 2

	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if x <= c-b || x >= c+b || y <= c-b || y >= c+b {
				continue
			}

			var blocked bool
			switch dir {
			case North:
				blocked = x <= c-h || x >= c+h || y <= c-h || y >= c+h
			case South:
				blocked = x <= c-h || x >= c+h || y <= c-h
			case East:
				blocked = x <= c-h || y <= c-h || y >= c+h
			case West:
				blocked = x >= c+h || y <= c-h || y >= c+h
			}

			g.Set(x, y, blocked)
		}
	}
	return g
}

// Wall blocks column x of a size x size grid, except for the rows in gaps.
func Wall(size, x int, gaps ...int) *Grid {
	g := NewGrid(size, size)
	for y := 0; y < size; y++ {
		g.Set(x, y, true)
	}
	for _, y := range gaps {
		g.Set(x, y, false)
	}
	return g
}

// DoorWall splits the grid in two halves with a wall through the middle. The
// wall has a single free cell a quarter of the way in from the side given by
// dir. North and South walls are columns, East and West walls are rows.
func DoorWall(size int, dir Direction) *Grid {
	c, b := size/2, size/4

	switch dir {
	case South:
		return Wall(size, c, b)
	case East:
		return transpose(Wall(size, c, size-1-b))
	case West:
		return transpose(Wall(size, c, b))
	default:
		return Wall(size, c, size-1-b)
	}
}

func transpose(g *Grid) *Grid {
	t := NewGrid(g.Height, g.Width)
	for x := 0; x < g.Width; x++ {
		for y := 0; y < g.Height; y++ {
			t.Set(y, x, g.Blocked(x, y))
		}
	}
	return t
}
