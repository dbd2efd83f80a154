package navigation

import (
	"math"
	"quadnav/quadtree"
)

// snap returns the passable leaf whose center is nearest to p. The search
// looks at the leaves inside a square around p whose half side starts at one
// cell and doubles on each of the given retries.
func snap(tree *quadtree.Tree, p quadtree.Point, retries int) (quadtree.NodeID, bool) {
	cell := tree.CellSize()
	steps := 1

	for i := 0; i < retries; i++ {
		best := quadtree.NoNode
		bestDist := math.Inf(1)

		for dy := -steps; dy <= steps; dy++ {
			for dx := -steps; dx <= steps; dx++ {
				q := quadtree.Point{
					X: p.X + float64(dx)*cell,
					Y: p.Y + float64(dy)*cell,
				}

				id, ok := tree.Locate(q)
				if !ok || tree.Blocked(id) {
					continue
				}

				d := quadtree.SquaredDistance(p, tree.Leaf(id).Center)
				if d < bestDist || (d == bestDist && id < best) {
					best, bestDist = id, d
				}
			}
		}

		if best != quadtree.NoNode {
			return best, true
		}
		steps *= 2
	}
	return quadtree.NoNode, false
}
