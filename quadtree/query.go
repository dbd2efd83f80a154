package quadtree

import "iter"

// Leaf is a read-only view of a minimum-size cell.
type Leaf struct {
	ID     NodeID
	Center Point
	Size   float64
	Bounds Bounds
}

// IsLeaf reports whether id addresses a minimum-size cell of the tree.
func (t *Tree) IsLeaf(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && t.nodes[id].minimal
}

// Leaf returns the view of the given node. It panics when id is out of
// range.
func (t *Tree) Leaf(id NodeID) Leaf {
	n := &t.nodes[id]
	return Leaf{
		ID:     id,
		Center: n.center,
		Size:   n.size,
		Bounds: n.bounds,
	}
}

// Leaves iterates over every minimum-size cell in arena order.
func (t *Tree) Leaves() iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		for i := range t.nodes {
			if !t.nodes[i].minimal {
				continue
			}
			if !yield(t.Leaf(NodeID(i))) {
				return
			}
		}
	}
}

// Partitions iterates over the nodes that currently hold points directly,
// with the number of points each one holds.
func (t *Tree) Partitions() iter.Seq2[Bounds, int] {
	return func(yield func(Bounds, int) bool) {
		t.partitions(0, yield)
	}
}

func (t *Tree) partitions(id NodeID, yield func(Bounds, int) bool) bool {
	n := &t.nodes[id]
	if !n.subdivided {
		return yield(n.bounds, len(n.points))
	}
	for _, c := range n.children {
		if !t.partitions(c, yield) {
			return false
		}
	}
	return true
}

// Locate returns the minimum-size cell containing p. The second value is
// false when p lies outside the tree.
func (t *Tree) Locate(p Point) (NodeID, bool) {
	leaf, _ := t.locate(p)
	return leaf, leaf != NoNode
}

// locate descends the skeleton to the leaf containing p. It also returns the
// first node on the way that is not subdivided: the points covering the leaf,
// if any, are buffered there.
//
// Children are disjoint, so routing on the center lines finds the same leaf a
// containment test in NW, NE, SW, SE order would.
func (t *Tree) locate(p Point) (leaf, holder NodeID) {
	if !t.nodes[0].bounds.Contains(p) {
		return NoNode, NoNode
	}

	id, holder := NodeID(0), NoNode
	for {
		n := &t.nodes[id]
		if holder == NoNode && !n.subdivided {
			holder = id
		}
		if n.minimal {
			return id, holder
		}
		id = n.children[n.quadrant(p)]
	}
}

func (t *Tree) occupancy(leaf, holder NodeID) int {
	h := &t.nodes[holder]
	if holder == leaf {
		return len(h.points)
	}

	b := t.nodes[leaf].bounds
	c := 0
	for _, p := range h.points {
		if b.Contains(p) {
			c++
		}
	}
	return c
}

// Occupancy returns the number of obstacle points inside a leaf, wherever in
// the tree they are currently buffered.
func (t *Tree) Occupancy(id NodeID) int {
	if !t.IsLeaf(id) {
		return 0
	}

	n := &t.nodes[id]
	if len(n.points) != 0 {
		return len(n.points)
	}

	leaf, holder := t.locate(n.center)
	if leaf != id {
		return 0
	}
	return t.occupancy(leaf, holder)
}

// Blocked reports whether a leaf holds at least one obstacle point.
func (t *Tree) Blocked(id NodeID) bool {
	return t.Occupancy(id) > 0
}

// Neighbours appends the leaves adjacent to id on its left, top, right and
// bottom to out. Probes falling outside the tree are dropped.
func (t *Tree) Neighbours(id NodeID, out []NodeID) []NodeID {
	return t.neighbours(id, out, false)
}

// PassableNeighbours is like Neighbours but leaves out blocked leaves.
func (t *Tree) PassableNeighbours(id NodeID, out []NodeID) []NodeID {
	return t.neighbours(id, out, true)
}

func (t *Tree) neighbours(id NodeID, out []NodeID, passable bool) []NodeID {
	n := &t.nodes[id]

	// Probes land on the center of the adjacent minimum-size cell.
	d := n.size/2 + t.cfg.MinCellSize/2
	probes := [4]Point{
		{n.center.X - d, n.center.Y},
		{n.center.X, n.center.Y + d},
		{n.center.X + d, n.center.Y},
		{n.center.X, n.center.Y - d},
	}

	for _, p := range probes {
		leaf, holder := t.locate(p)
		if leaf == NoNode || leaf == id {
			continue
		}
		if passable && t.occupancy(leaf, holder) > 0 {
			continue
		}
		out = append(out, leaf)
	}
	return out
}

// QueryRange returns the points within the given range.
func (t *Tree) QueryRange(r Bounds) []Point {
	var res []Point
	t.queryRange(0, r, &res)
	return res
}

func (t *Tree) queryRange(id NodeID, r Bounds, res *[]Point) {
	n := &t.nodes[id]
	if !n.bounds.Intersects(r) {
		return
	}

	if n.subdivided {
		for _, c := range n.children {
			t.queryRange(c, r, res)
		}
		return
	}

	for _, p := range n.points {
		if r.Contains(p) {
			*res = append(*res, p)
		}
	}
}

// QueryCollision reports whether a point other than p lies closer to p than
// the width of r. r is the bounding box of the object standing at p and
// prunes the search.
func (t *Tree) QueryCollision(r Bounds, p Point) bool {
	return t.queryCollision(0, r, p)
}

func (t *Tree) queryCollision(id NodeID, r Bounds, p Point) bool {
	n := &t.nodes[id]
	if !n.bounds.Intersects(r) {
		return false
	}

	if n.subdivided {
		for _, c := range n.children {
			if t.queryCollision(c, r, p) {
				return true
			}
		}
		return false
	}

	radius := r.Width()
	for _, q := range n.points {
		if q == p {
			continue
		}
		if Distance(p, q) < radius {
			return true
		}
	}
	return false
}

// QueryPoint reports whether p has been inserted in the tree.
func (t *Tree) QueryPoint(p Point) bool {
	return t.queryPoint(0, p)
}

func (t *Tree) queryPoint(id NodeID, p Point) bool {
	n := &t.nodes[id]
	for _, q := range n.points {
		if q == p {
			return true
		}
	}

	if n.subdivided {
		for _, c := range n.children {
			if t.queryPoint(c, p) {
				return true
			}
		}
	}
	return false
}
