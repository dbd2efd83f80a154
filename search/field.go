package search

import (
	"context"
	"math"
	"quadnav/quadtree"
	"quadnav/queue"
)

// Field is a flow field: for every leaf that can reach the goal, the next
// leaf to step to. Agents sharing a destination look their leaf up instead
// of running their own search.
type Field struct {
	Goal         quadtree.NodeID
	Expanded     int
	Predecessors Predecessors
	Costs        map[quadtree.NodeID]float64
}

// Len returns the number of leaves covered by the field, goal included.
func (f *Field) Len() int {
	return len(f.Predecessors)
}

// Reachable reports whether the goal can be reached from a leaf.
func (f *Field) Reachable(id quadtree.NodeID) bool {
	_, ok := f.Predecessors[id]
	return ok
}

// Next returns the leaf to move to from id. The goal maps to itself.
func (f *Field) Next(id quadtree.NodeID) (quadtree.NodeID, bool) {
	next, ok := f.Predecessors[id]
	return next, ok
}

// Path returns the leaves from id to the goal, both included.
func (f *Field) Path(from quadtree.NodeID) ([]quadtree.NodeID, bool) {
	return Walk(f.Predecessors, from)
}

// Direction returns the unit vector from the center of a leaf toward the
// center of its next leaf. It is the zero vector on the goal.
func (f *Field) Direction(tree *quadtree.Tree, from quadtree.NodeID) (quadtree.Point, bool) {
	next, ok := f.Predecessors[from]
	if !ok {
		return quadtree.Point{}, false
	}
	if next == from {
		return quadtree.Point{}, true
	}

	v := tree.Leaf(next).Center.Sub(tree.Leaf(from).Center)
	l := math.Hypot(v.X, v.Y)
	return quadtree.Point{X: v.X / l, Y: v.Y / l}, true
}

// BuildField expands every leaf reachable from goal, cheapest first, and
// records through which leaf each one was reached.
//
// Step costs are the same squared center distances FindPath uses. There is
// no target to steer toward, so priorities are plain costs and each leaf is
// settled exactly once with the lowest cost found.
func BuildField(ctx context.Context, tree *quadtree.Tree, goal quadtree.NodeID, opts ...Option) (*Field, error) {
	o := newOptions(opts)

	if err := checkEndpoint(tree, goal, "goal"); err != nil {
		return nil, err
	}

	openSet := queue.New[quadtree.NodeID](tree.LeafCount())
	costs := map[quadtree.NodeID]float64{goal: 0}
	pred := Predecessors{goal: goal}
	closed := make(map[quadtree.NodeID]struct{}, tree.LeafCount())
	openSet.Push(goal, 0)

	var neighbours []quadtree.NodeID
	expanded := 0

	for openSet.Len() > 0 {
		if err := o.interrupted(ctx, expanded); err != nil {
			return nil, err
		}

		current, cost, _ := openSet.Pop()
		closed[current] = struct{}{}
		expanded++

		center := tree.Leaf(current).Center
		neighbours = tree.PassableNeighbours(current, neighbours[:0])

		for _, n := range neighbours {
			if _, done := closed[n]; done {
				continue
			}

			c := cost + stepCost(center, tree.Leaf(n).Center)
			if known, ok := costs[n]; ok && c >= known {
				continue
			}

			costs[n] = c
			pred[n] = current
			openSet.Push(n, c)
		}
	}

	return &Field{
		Goal:         goal,
		Expanded:     expanded,
		Predecessors: pred,
		Costs:        costs,
	}, nil
}
