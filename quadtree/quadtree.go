// Package quadtree implements a point quadtree over a square region that is
// pre-subdivided down to a minimum cell size. The minimum-size cells (leaves)
// are the nodes of the navigation graph: their identity never changes once
// the tree is built, obstacles only change which of them are blocked.
//
// Obstacle points are buffered the classic way: a node holds up to Capacity
// points and only splits its buffer into its children when it overflows.
// Clear resets the buffers and split flags without touching the skeleton, so
// a tree can be refilled every frame.
//
// A Tree is not safe for concurrent mutation. Read-only queries may run
// concurrently as long as no Insert or Clear is in flight.
package quadtree

import (
	"iter"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	NorthWest = iota
	NorthEast
	SouthWest
	SouthEast
)

const (
	// ErrTypeInvalidConfig is the error type returned when a tree cannot be
	// built from the given configuration.
	ErrTypeInvalidConfig = "quadtree_invalid_config"

	// maxDepth bounds the skeleton to 4^12 leaves.
	maxDepth = 12
)

// NodeID addresses a node in the tree arena.
type NodeID int32

// NoNode is returned when a lookup does not resolve to any node.
const NoNode NodeID = -1

// Config describes the region covered by a tree and how finely it is split.
type Config struct {
	Center      Point
	Size        float64
	MinCellSize float64
	Capacity    int
}

// DefaultConfig returns a 16x16 region with its corner at the origin, split
// down to unit cells, holding one point per node.
func DefaultConfig() Config {
	return Config{
		Center:      Point{8, 8},
		Size:        16,
		MinCellSize: 1,
		Capacity:    1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Size <= 0:
		return errors.New("tree size must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("size", c.Size)

	case c.MinCellSize <= 0:
		return errors.New("minimum cell size must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("min_cell_size", c.MinCellSize)

	case c.Capacity < 1:
		return errors.New("node capacity must be at least 1").
			WithType(ErrTypeInvalidConfig).
			WithTag("capacity", c.Capacity)
	}

	if depth := levels(c.Size, c.MinCellSize); depth > maxDepth {
		return errors.New("tree would be too deep").
			WithType(ErrTypeInvalidConfig).
			WithTag("depth", depth).
			WithTag("max_depth", maxDepth)
	}
	return nil
}

// levels returns how many times size is halved before it reaches minSize.
func levels(size, minSize float64) int {
	depth := 0
	for size > minSize {
		size /= 2
		depth++
	}
	return depth
}

type node struct {
	center     Point
	size       float64
	bounds     Bounds
	points     []Point
	subdivided bool
	minimal    bool
	children   [4]NodeID
}

// quadrant returns the child a point is routed to. Points on the center lines
// go east and north.
func (n *node) quadrant(p Point) int {
	if p.X >= n.center.X {
		if p.Y >= n.center.Y {
			return NorthEast
		}
		return SouthEast
	}
	if p.Y >= n.center.Y {
		return NorthWest
	}
	return SouthWest
}

// Tree is a quadtree whose nodes live in a flat arena. The root is node 0 and
// children are referenced by index, nodes never point back to their parent.
type Tree struct {
	cfg    Config
	nodes  []node
	leaves int
	depth  int
}

// New builds the full skeleton of a tree down to cfg.MinCellSize.
func New(cfg Config) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	depth := levels(cfg.Size, cfg.MinCellSize)
	total := 0
	for i, n := 0, 1; i <= depth; i, n = i+1, n*4 {
		total += n
	}

	t := &Tree{
		cfg:   cfg,
		nodes: make([]node, 0, total),
		depth: depth,
	}
	t.build(cfg.Center, BoundsAround(cfg.Center, cfg.Size), cfg.Size)
	return t, nil
}

func (t *Tree) build(center Point, bounds Bounds, size float64) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{
		center:   center,
		size:     size,
		bounds:   bounds,
		children: [4]NodeID{NoNode, NoNode, NoNode, NoNode},
	})

	if size <= t.cfg.MinCellSize {
		t.nodes[id].minimal = true
		t.leaves++
		return id
	}

	// Children are cut at the parent center so siblings tile the parent
	// exactly.
	half := size / 2
	quads := [4]Bounds{
		NorthWest: {MinX: bounds.MinX, MinY: center.Y, MaxX: center.X, MaxY: bounds.MaxY},
		NorthEast: {MinX: center.X, MinY: center.Y, MaxX: bounds.MaxX, MaxY: bounds.MaxY},
		SouthWest: {MinX: bounds.MinX, MinY: bounds.MinY, MaxX: center.X, MaxY: center.Y},
		SouthEast: {MinX: center.X, MinY: bounds.MinY, MaxX: bounds.MaxX, MaxY: center.Y},
	}

	var children [4]NodeID
	for i, b := range quads {
		children[i] = t.build(b.Center(), b, half)
	}

	t.nodes[id].children = children
	t.nodes[id].points = make([]Point, 0, t.cfg.Capacity)
	return id
}

// Config returns the configuration the tree was built with.
func (t *Tree) Config() Config {
	return t.cfg
}

// Bounds returns the region covered by the tree.
func (t *Tree) Bounds() Bounds {
	return t.nodes[0].bounds
}

// Depth returns the number of levels below the root.
func (t *Tree) Depth() int {
	return t.depth
}

// CellSize returns the side length of the minimum-size cells. It is at most
// Config.MinCellSize.
func (t *Tree) CellSize() float64 {
	return t.cfg.Size / float64(int(1)<<t.depth)
}

// NodeCount returns the number of nodes in the arena, leaves included.
func (t *Tree) NodeCount() int {
	return len(t.nodes)
}

// Insert adds a point to the tree.
//
// No bounds checking is done: a point outside the tree is routed to the
// nearest quadrant at every level, callers must keep points inside Bounds.
func (t *Tree) Insert(p Point) {
	t.insert(0, p)
}

// InsertAll inserts every point of seq and returns how many were inserted.
func (t *Tree) InsertAll(seq iter.Seq[Point]) int {
	n := 0
	for p := range seq {
		t.insert(0, p)
		n++
	}
	return n
}

func (t *Tree) insert(id NodeID, p Point) {
	for {
		n := &t.nodes[id]

		switch {
		case n.subdivided:
			id = n.children[n.quadrant(p)]

		case n.minimal || len(n.points) < t.cfg.Capacity:
			n.points = append(n.points, p)
			return

		default:
			t.subdivide(id)
			id = n.children[n.quadrant(p)]
		}
	}
}

// subdivide moves the buffered points of a node into its children and marks
// it as subdivided.
func (t *Tree) subdivide(id NodeID) {
	n := &t.nodes[id]
	n.subdivided = true

	for _, p := range n.points {
		t.insert(n.children[n.quadrant(p)], p)
	}
	n.points = n.points[:0]
}

// Clear removes every point from the tree. The skeleton is kept.
func (t *Tree) Clear() {
	t.clear(0)
}

func (t *Tree) clear(id NodeID) {
	n := &t.nodes[id]
	if n.subdivided {
		n.subdivided = false
		for _, c := range n.children {
			t.clear(c)
		}
	}
	n.points = n.points[:0]
}

// CountAll counts the points stored under the root.
func (t *Tree) CountAll() int {
	return t.countAll(0)
}

func (t *Tree) countAll(id NodeID) int {
	n := &t.nodes[id]
	c := len(n.points)
	if n.subdivided {
		for _, child := range n.children {
			c += t.countAll(child)
		}
	}
	return c
}

// LeafCount returns the number of minimum-size cells. It only depends on the
// configuration.
func (t *Tree) LeafCount() int {
	return t.leaves
}

// PartitionCount returns the number of nodes that currently hold points
// directly, i.e. the leaves of the occupancy-driven subdivision.
func (t *Tree) PartitionCount() int {
	return t.partitionCount(0)
}

func (t *Tree) partitionCount(id NodeID) int {
	n := &t.nodes[id]
	if !n.subdivided {
		return 1
	}

	c := 0
	for _, child := range n.children {
		c += t.partitionCount(child)
	}
	return c
}
