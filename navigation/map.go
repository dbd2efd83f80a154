package navigation

import (
	"quadnav/geohash"
	"quadnav/models"
	"quadnav/obstacle"
	"quadnav/quadtree"
	"quadnav/search"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// maxLocalFields bounds the flow fields kept in memory per map.
const maxLocalFields = 64

// navMap is a loaded map: its tree filled with the rasterized obstacles and
// the flow fields built for its current version.
//
// mu guards the tree. Searches hold the read lock for their whole run and
// rebuilds take the write lock, so a tree never changes under a search.
type navMap struct {
	mu        sync.RWMutex
	meta      models.Map
	tree      *quadtree.Tree
	obstacles *obstacle.Field
	cells     geohash.Grid

	fieldsMu sync.Mutex
	fields   map[quadtree.NodeID]*search.Field
}

func newNavMap(meta models.Map, precision uint) (*navMap, error) {
	tree, err := quadtree.New(meta.TreeConfig())
	if err != nil {
		return nil, err
	}

	return &navMap{
		meta:      meta,
		tree:      tree,
		obstacles: obstacle.NewField(),
		cells:     geohash.New(tree.Bounds(), precision),
		fields:    make(map[quadtree.NodeID]*search.Field),
	}, nil
}

// rebuild refills the tree from scratch with the given obstacles. The caller
// must hold the write lock.
func (m *navMap) rebuild(meta models.Map, obstacles []models.Obstacle) {
	field := obstacle.NewField()
	for _, o := range obstacles {
		if _, err := field.Add(o.ID, o.Bounds()); err != nil {
			logs.Warn(errors.New("skipping invalid obstacle").
				WithTag("map_id", meta.ID).
				Wrap(err))
		}
	}

	m.tree.Clear()
	points := m.tree.InsertAll(field.Rasterize(m.tree.Bounds(), m.tree.CellSize()))

	m.meta = meta
	m.obstacles = field

	m.fieldsMu.Lock()
	m.fields = make(map[quadtree.NodeID]*search.Field)
	m.fieldsMu.Unlock()

	treeRebuilds.Inc()
	logs.WithTag("map_id", meta.ID).
		WithTag("version", meta.Version).
		WithTag("obstacles", field.Len()).
		WithTag("points", points).
		Debug("map tree rebuilt")
}

func (m *navMap) localField(goal quadtree.NodeID) (*search.Field, bool) {
	m.fieldsMu.Lock()
	defer m.fieldsMu.Unlock()

	f, ok := m.fields[goal]
	return f, ok
}

func (m *navMap) storeField(f *search.Field) {
	m.fieldsMu.Lock()
	defer m.fieldsMu.Unlock()

	if len(m.fields) >= maxLocalFields {
		for goal := range m.fields {
			delete(m.fields, goal)
			break
		}
	}
	m.fields[f.Goal] = f
}

func (m *navMap) leafInfo(id quadtree.NodeID) models.LeafInfo {
	leaf := m.tree.Leaf(id)
	return models.LeafInfo{
		ID:        int32(id),
		Cell:      m.cells.Encode(leaf.Center),
		Center:    models.FromPoint(leaf.Center),
		Size:      leaf.Size,
		Blocked:   m.tree.Blocked(id),
		Occupancy: m.tree.Occupancy(id),
	}
}

func (m *navMap) describe() models.MapResponse {
	blocked := 0
	for leaf := range m.tree.Leaves() {
		if m.tree.Blocked(leaf.ID) {
			blocked++
		}
	}

	return models.MapResponse{
		Map:        m.meta,
		Depth:      m.tree.Depth(),
		CellSize:   m.tree.CellSize(),
		Leaves:     m.tree.LeafCount(),
		Blocked:    blocked,
		Partitions: m.tree.PartitionCount(),
		Points:     m.tree.CountAll(),
		Obstacles:  m.obstacles.Len(),
	}
}
