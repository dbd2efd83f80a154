// Package search runs best-first searches over the passable leaves of a
// quadtree. Leaves are graph nodes and adjacency comes from
// quadtree.Tree.PassableNeighbours, no edge list is ever stored.
//
// Both searches accumulate the squared distance between leaf centers as path
// cost. This keeps square roots out of the hot loop at the price of
// admissibility: FindPath returns a plausible cheap path, not a guaranteed
// euclidean shortest one.
//
// Searches only read the tree and keep their open set and cost tables on the
// side, so several searches may share a tree as long as nothing mutates it
// meanwhile.
package search

import (
	"context"
	"quadnav/quadtree"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeUnreachable = "search_unreachable"
	ErrTypeAborted     = "search_aborted"
	ErrTypeInvalidLeaf = "search_invalid_leaf"
)

// DefaultHeuristicWeight biases FindPath toward the goal.
const DefaultHeuristicWeight = 10

// IsAborted reports whether err was returned because a search ran out of
// time or expansion budget.
func IsAborted(err error) bool {
	return errors.IsType(err, ErrTypeAborted)
}

// IsUnreachable reports whether err was returned because no passable route
// exists between the searched leaves.
func IsUnreachable(err error) bool {
	return errors.IsType(err, ErrTypeUnreachable)
}

// Option configures a search.
type Option func(*options)

type options struct {
	heuristicWeight float64
	maxExpansions   int
}

// WithHeuristicWeight sets the weight of the distance-to-goal term of
// FindPath priorities. It has no effect on BuildField.
func WithHeuristicWeight(w float64) Option {
	return func(o *options) {
		o.heuristicWeight = w
	}
}

// WithMaxExpansions aborts a search after n leaves have been expanded. Zero
// means no limit.
func WithMaxExpansions(n int) Option {
	return func(o *options) {
		o.maxExpansions = n
	}
}

func newOptions(opts []Option) options {
	o := options{
		heuristicWeight: DefaultHeuristicWeight,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// interrupted returns an aborted error when ctx is done or the expansion
// budget is spent.
func (o options) interrupted(ctx context.Context, expanded int) error {
	select {
	case <-ctx.Done():
		return errors.New("search aborted").
			WithType(ErrTypeAborted).
			WithTag("expanded", expanded).
			Wrap(ctx.Err())
	default:
	}

	if o.maxExpansions > 0 && expanded >= o.maxExpansions {
		return errors.New("search aborted").
			WithType(ErrTypeAborted).
			WithTag("expanded", expanded).
			WithTag("max_expansions", o.maxExpansions)
	}
	return nil
}

// Predecessors maps a visited leaf to the leaf it was reached from. The
// search origin maps to itself.
type Predecessors map[quadtree.NodeID]quadtree.NodeID

// Walk follows predecessors from a leaf back to the search origin and returns
// the visited leaves, from first. It returns false when from was never
// visited or the chain does not end on a self-mapped leaf.
func Walk(pred Predecessors, from quadtree.NodeID) ([]quadtree.NodeID, bool) {
	if _, ok := pred[from]; !ok {
		return nil, false
	}

	chain := []quadtree.NodeID{from}
	for cur := from; len(chain) <= len(pred); {
		next, ok := pred[cur]
		if !ok {
			return nil, false
		}
		if next == cur {
			return chain, true
		}
		chain = append(chain, next)
		cur = next
	}
	return nil, false
}

// stepCost is the cost of moving between two adjacent leaf centers.
func stepCost(a, b quadtree.Point) float64 {
	return quadtree.SquaredDistance(a, b)
}

// heuristic estimates the remaining cost from a leaf center to the goal.
func heuristic(a, goal quadtree.Point) float64 {
	return quadtree.SquaredDistance(a, goal)
}

func checkEndpoint(tree *quadtree.Tree, id quadtree.NodeID, role string) error {
	if !tree.IsLeaf(id) {
		return errors.New("node is not a leaf of the tree").
			WithType(ErrTypeInvalidLeaf).
			WithTag("role", role).
			WithTag("node", id)
	}

	if tree.Blocked(id) {
		return errors.New("leaf is blocked").
			WithType(ErrTypeUnreachable).
			WithTag("role", role).
			WithTag("node", id)
	}
	return nil
}
