package search

import (
	"context"
	"quadnav/quadtree"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) *quadtree.Tree {
	tree, err := quadtree.New(quadtree.DefaultConfig())
	require.NoError(t, err)
	return tree
}

func leafAt(t *testing.T, tree *quadtree.Tree, x, y float64) quadtree.NodeID {
	id, ok := tree.Locate(quadtree.Point{X: x, Y: y})
	require.True(t, ok)
	return id
}

// wall fills column 8 of a 16x16 tree, except for the rows in gaps.
func wall(tree *quadtree.Tree, gaps ...int) {
	for y := 0; y < 16; y++ {
		gap := false
		for _, g := range gaps {
			gap = gap || g == y
		}
		if !gap {
			tree.Insert(quadtree.Point{X: 8.5, Y: float64(y) + 0.5})
		}
	}
}

// reachable collects the leaves reachable from id with a breadth-first
// traversal of the passable adjacency.
func reachable(tree *quadtree.Tree, from quadtree.NodeID) map[quadtree.NodeID]int {
	depth := map[quadtree.NodeID]int{from: 0}
	frontier := []quadtree.NodeID{from}

	var neighbours []quadtree.NodeID
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]

		neighbours = tree.PassableNeighbours(cur, neighbours[:0])
		for _, n := range neighbours {
			if _, ok := depth[n]; ok {
				continue
			}
			depth[n] = depth[cur] + 1
			frontier = append(frontier, n)
		}
	}
	return depth
}

func requireValidPath(t *testing.T, tree *quadtree.Tree, path []quadtree.NodeID, start, goal quadtree.NodeID) {
	require.NotEmpty(t, path)
	require.LessOrEqual(t, len(path), tree.LeafCount())
	require.Equal(t, start, path[0])
	require.Equal(t, goal, path[len(path)-1])

	seen := make(map[quadtree.NodeID]bool)
	for i, id := range path {
		require.False(t, seen[id], "leaf %d repeated", id)
		seen[id] = true
		require.False(t, tree.Blocked(id))

		if i > 0 {
			prev := tree.Leaf(path[i-1])
			cur := tree.Leaf(id)
			require.Equal(t, 1.0, quadtree.SquaredDistance(prev.Center, cur.Center))
		}
	}
}

func TestFindPathThroughGap(t *testing.T) {
	tree := newTree(t)
	wall(tree, 3)

	start := leafAt(t, tree, 0, 0)
	goal := leafAt(t, tree, 15, 15)

	res, err := FindPath(context.Background(), tree, start, goal)
	require.NoError(t, err)
	require.Equal(t, start, res.Start)
	require.Equal(t, goal, res.Goal)
	require.Positive(t, res.Expanded)

	path := res.Path()
	requireValidPath(t, tree, path, start, goal)
	require.Contains(t, path, leafAt(t, tree, 8, 3))
	require.GreaterOrEqual(t, res.Cost, float64(len(path)-1))

	for id := range res.Predecessors {
		require.False(t, tree.Blocked(id))
	}
}

func TestFindPathSolidWallIsUnreachable(t *testing.T) {
	tree := newTree(t)
	wall(tree)

	_, err := FindPath(context.Background(), tree, leafAt(t, tree, 0, 0), leafAt(t, tree, 15, 15))
	require.Error(t, err)
	require.True(t, IsUnreachable(err))
	require.False(t, IsAborted(err))
}

func TestFindPathOpenField(t *testing.T) {
	tree := newTree(t)

	tests := []struct {
		name     string
		from, to quadtree.Point
	}{
		{"diagonal", quadtree.Point{X: 0.5, Y: 0.5}, quadtree.Point{X: 15.5, Y: 15.5}},
		{"reverse diagonal", quadtree.Point{X: 15.5, Y: 0.5}, quadtree.Point{X: 0.5, Y: 15.5}},
		{"neighbours", quadtree.Point{X: 4.5, Y: 4.5}, quadtree.Point{X: 5.5, Y: 4.5}},
		{"straight line", quadtree.Point{X: 2.5, Y: 7.5}, quadtree.Point{X: 13.5, Y: 7.5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			start := leafAt(t, tree, test.from.X, test.from.Y)
			goal := leafAt(t, tree, test.to.X, test.to.Y)

			res, err := FindPath(context.Background(), tree, start, goal)
			require.NoError(t, err)
			requireValidPath(t, tree, res.Path(), start, goal)
		})
	}
}

func TestFindPathStartIsGoal(t *testing.T) {
	tree := newTree(t)
	id := leafAt(t, tree, 4, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	res, err := FindPath(ctx, tree, id, id)
	require.NoError(t, err)
	require.Zero(t, res.Cost)
	require.Zero(t, res.Expanded)
	require.Equal(t, []quadtree.NodeID{id}, res.Path())
}

func TestFindPathZeroDeadlineAborts(t *testing.T) {
	tree := newTree(t)

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	res, err := FindPath(ctx, tree, leafAt(t, tree, 0, 0), leafAt(t, tree, 1, 0))
	require.Nil(t, res)
	require.True(t, IsAborted(err))
	require.False(t, IsUnreachable(err))
}

func TestFindPathExpansionBudget(t *testing.T) {
	tree := newTree(t)
	wall(tree)

	_, err := FindPath(context.Background(), tree,
		leafAt(t, tree, 0, 0),
		leafAt(t, tree, 15, 15),
		WithMaxExpansions(10),
	)
	require.True(t, IsAborted(err))
}

func TestFindPathCancelledContext(t *testing.T) {
	tree := newTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindPath(ctx, tree, leafAt(t, tree, 0, 0), leafAt(t, tree, 15, 15))
	require.True(t, IsAborted(err))
}

func TestFindPathInvalidEndpoints(t *testing.T) {
	tree := newTree(t)
	leaf := leafAt(t, tree, 0, 0)

	_, err := FindPath(context.Background(), tree, quadtree.NoNode, leaf)
	require.True(t, errors.IsType(err, ErrTypeInvalidLeaf))

	// The root is a node but not a leaf.
	_, err = FindPath(context.Background(), tree, leaf, 0)
	require.True(t, errors.IsType(err, ErrTypeInvalidLeaf))
}

func TestFindPathBlockedEndpoints(t *testing.T) {
	tree := newTree(t)
	tree.Insert(quadtree.Point{X: 3.5, Y: 3.5})

	blocked := leafAt(t, tree, 3.5, 3.5)
	free := leafAt(t, tree, 0.5, 0.5)

	_, err := FindPath(context.Background(), tree, free, blocked)
	require.True(t, IsUnreachable(err))

	_, err = FindPath(context.Background(), tree, blocked, free)
	require.True(t, IsUnreachable(err))
}

func TestFindPathWeightsStillFindRoute(t *testing.T) {
	tree := newTree(t)
	wall(tree, 12)

	start := leafAt(t, tree, 2, 2)
	goal := leafAt(t, tree, 14, 2)

	for _, w := range []float64{0, 1, DefaultHeuristicWeight, 1000} {
		res, err := FindPath(context.Background(), tree, start, goal, WithHeuristicWeight(w))
		require.NoError(t, err)
		path := res.Path()
		requireValidPath(t, tree, path, start, goal)
		require.Contains(t, path, leafAt(t, tree, 8, 12))
	}
}

func TestFindPathWithinDeadline(t *testing.T) {
	tree := newTree(t)
	wall(tree, 3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := FindPath(ctx, tree, leafAt(t, tree, 0, 0), leafAt(t, tree, 15, 15))
	require.NoError(t, err)
}

func TestWalk(t *testing.T) {
	pred := Predecessors{1: 1, 2: 1, 3: 2}

	chain, ok := Walk(pred, 3)
	require.True(t, ok)
	require.Equal(t, []quadtree.NodeID{3, 2, 1}, chain)

	_, ok = Walk(pred, 4)
	require.False(t, ok)

	cyclic := Predecessors{1: 2, 2: 1}
	_, ok = Walk(cyclic, 1)
	require.False(t, ok)

	dangling := Predecessors{2: 5}
	_, ok = Walk(dangling, 2)
	require.False(t, ok)
}
