package navigation

import (
	"quadnav/quadtree"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnap(t *testing.T) {
	tests := []struct {
		name    string
		blocked []quadtree.Point
		point   quadtree.Point
		retries int
		want    quadtree.Point
		found   bool
	}{
		{
			name:    "passable leaf",
			point:   quadtree.Point{X: 3.5, Y: 3.5},
			retries: 1,
			want:    quadtree.Point{X: 3.5, Y: 3.5},
			found:   true,
		},
		{
			name:    "nearest neighbour",
			blocked: []quadtree.Point{{X: 3.5, Y: 3.5}, {X: 2.5, Y: 3.5}, {X: 3.5, Y: 2.5}, {X: 4.5, Y: 3.5}},
			point:   quadtree.Point{X: 3.6, Y: 3.9},
			retries: 1,
			want:    quadtree.Point{X: 3.5, Y: 4.5},
			found:   true,
		},
		{
			name: "widening square",
			blocked: []quadtree.Point{
				{X: 6.5, Y: 6.5}, {X: 7.5, Y: 6.5}, {X: 8.5, Y: 6.5},
				{X: 6.5, Y: 7.5}, {X: 7.5, Y: 7.5}, {X: 8.5, Y: 7.5},
				{X: 6.5, Y: 8.5}, {X: 7.5, Y: 8.5}, {X: 8.5, Y: 8.5},
			},
			point:   quadtree.Point{X: 7.5, Y: 7.9},
			retries: 2,
			want:    quadtree.Point{X: 7.5, Y: 9.5},
			found:   true,
		},
		{
			name: "retries exhausted",
			blocked: []quadtree.Point{
				{X: 6.5, Y: 6.5}, {X: 7.5, Y: 6.5}, {X: 8.5, Y: 6.5},
				{X: 6.5, Y: 7.5}, {X: 7.5, Y: 7.5}, {X: 8.5, Y: 7.5},
				{X: 6.5, Y: 8.5}, {X: 7.5, Y: 8.5}, {X: 8.5, Y: 8.5},
			},
			point:   quadtree.Point{X: 7.5, Y: 7.5},
			retries: 1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree, err := quadtree.New(quadtree.DefaultConfig())
			require.NoError(t, err)
			for _, p := range test.blocked {
				tree.Insert(p)
			}

			id, ok := snap(tree, test.point, test.retries)
			require.Equal(t, test.found, ok)
			if !test.found {
				require.Equal(t, quadtree.NoNode, id)
				return
			}
			require.Equal(t, test.want, tree.Leaf(id).Center)
			require.False(t, tree.Blocked(id))
		})
	}
}
