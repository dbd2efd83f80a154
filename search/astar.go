package search

import (
	"context"
	"quadnav/quadtree"
	"quadnav/queue"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Result is the outcome of a successful FindPath.
type Result struct {
	Start        quadtree.NodeID
	Goal         quadtree.NodeID
	Cost         float64
	Expanded     int
	Predecessors Predecessors
}

// Path returns the leaves from start to goal, both included.
func (r *Result) Path() []quadtree.NodeID {
	chain, ok := Walk(r.Predecessors, r.Goal)
	if !ok {
		return nil
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// FindPath searches a route from start to goal.
//
// Leaves are expanded by lowest cost-so-far plus the weighted squared
// distance to the goal. The search stops as soon as the goal is the cheapest
// open leaf. It fails with ErrTypeUnreachable when the open set runs dry, and
// with ErrTypeAborted when ctx is done or the expansion budget is spent
// before that.
func FindPath(ctx context.Context, tree *quadtree.Tree, start, goal quadtree.NodeID, opts ...Option) (*Result, error) {
	o := newOptions(opts)

	if err := checkEndpoint(tree, start, "start"); err != nil {
		return nil, err
	}
	if err := checkEndpoint(tree, goal, "goal"); err != nil {
		return nil, err
	}

	goalCenter := tree.Leaf(goal).Center
	openSet := queue.New[quadtree.NodeID](tree.LeafCount())
	costs := map[quadtree.NodeID]float64{start: 0}
	pred := Predecessors{start: start}
	openSet.Push(start, 0)

	var neighbours []quadtree.NodeID
	expanded := 0

	for openSet.Len() > 0 {
		if head, _, _ := openSet.Peek(); head == goal {
			return &Result{
				Start:        start,
				Goal:         goal,
				Cost:         costs[goal],
				Expanded:     expanded,
				Predecessors: pred,
			}, nil
		}

		if err := o.interrupted(ctx, expanded); err != nil {
			return nil, err
		}

		current, _, _ := openSet.Pop()
		expanded++

		center := tree.Leaf(current).Center
		neighbours = tree.PassableNeighbours(current, neighbours[:0])

		for _, n := range neighbours {
			nc := tree.Leaf(n).Center
			cost := costs[current] + stepCost(center, nc)

			if known, ok := costs[n]; ok && cost >= known {
				continue
			}

			costs[n] = cost
			pred[n] = current
			openSet.Push(n, cost+o.heuristicWeight*heuristic(nc, goalCenter))
		}
	}

	return nil, errors.New("goal is not reachable from start").
		WithType(ErrTypeUnreachable).
		WithTag("start", start).
		WithTag("goal", goal).
		WithTag("expanded", expanded)
}
