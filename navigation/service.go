// Package navigation serves route and flow field queries over stored maps.
//
// A map is loaded once from its MapStore, its obstacles rasterized into a
// quadtree at the minimum cell size, and kept in memory. Writes go to the
// store first and then rebuild the in-memory tree with Clear and a full
// reinsert. Flow fields are memoized per map version and goal leaf, locally
// and optionally in a shared FieldCache.
package navigation

import (
	"context"
	"fmt"
	"math"
	"quadnav/geohash"
	"quadnav/models"
	"quadnav/obstacle"
	"quadnav/quadtree"
	"quadnav/search"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/sync/singleflight"
)

const (
	ErrTypeMapNotFound     = models.ErrTypeMapNotFound
	ErrTypeOutOfBounds     = "navigation_out_of_bounds"
	ErrTypeInvalidObstacle = "navigation_invalid_obstacle"
	ErrTypeInvalidMap      = "navigation_invalid_map"
)

// maxShapeCells bounds the side, in cells, of maps seeded with a generated
// shape.
const maxShapeCells = 256

// MapStore persists maps and their obstacles. Writes bump the map version
// and return the new one. CreateMap stores the map and its seed obstacles
// atomically.
type MapStore interface {
	CreateMap(ctx context.Context, m models.Map, seed []models.Rect) error
	GetMap(ctx context.Context, id string) (models.Map, error)
	ListObstacles(ctx context.Context, mapID string) ([]models.Obstacle, error)
	AddObstacles(ctx context.Context, mapID string, rects []models.Rect) (int64, error)
	ClearObstacles(ctx context.Context, mapID string) (int64, error)
}

// FieldCache shares flow fields between service instances.
type FieldCache interface {
	Get(ctx context.Context, key string) (*models.FlowField, bool, error)
	Set(ctx context.Context, key string, field *models.FlowField) error
}

// Options configures a Service.
type Options struct {
	// TreeDefaults fills the dimensions a CreateMap request leaves out.
	TreeDefaults quadtree.Config

	// Timeout bounds every search. Zero leaves searches bounded by the
	// request context only.
	Timeout         time.Duration
	HeuristicWeight float64
	MaxExpansions   int

	// SnapRetries is how many times the snapping square doubles before
	// giving up.
	SnapRetries      int
	GeohashPrecision uint
}

func DefaultOptions() Options {
	return Options{
		TreeDefaults:     quadtree.DefaultConfig(),
		Timeout:          100 * time.Millisecond,
		HeuristicWeight:  search.DefaultHeuristicWeight,
		SnapRetries:      4,
		GeohashPrecision: geohash.DefaultPrecision,
	}
}

type Service struct {
	store MapStore
	cache FieldCache
	opts  Options

	mu   sync.Mutex
	maps map[string]*navMap

	loads  singleflight.Group
	builds singleflight.Group
}

// NewService returns a service reading maps from store. cache may be nil.
func NewService(store MapStore, cache FieldCache, opts Options) *Service {
	return &Service{
		store: store,
		cache: cache,
		opts:  opts,
		maps:  make(map[string]*navMap),
	}
}

func mapNotFound(id string) error {
	return errors.New("map not found").
		WithType(ErrTypeMapNotFound).
		WithTag("map_id", id)
}

func outOfBounds(m *navMap, p models.Vec2, role string) error {
	b := m.tree.Bounds()
	return errors.New("point is outside the map").
		WithType(ErrTypeOutOfBounds).
		WithTag("map_id", m.meta.ID).
		WithTag("role", role).
		WithTag("x", p.X).
		WithTag("y", p.Y).
		WithTag("bounds", fmt.Sprintf("[%g,%g)x[%g,%g)", b.MinX, b.MaxX, b.MinY, b.MaxY))
}

// load returns the in-memory map, loading it from the store on first use.
// Concurrent loads of the same map share a single store round trip, which is
// not cancelled with the context of the request that started it.
func (s *Service) load(ctx context.Context, id string) (*navMap, error) {
	s.mu.Lock()
	m, ok := s.maps[id]
	s.mu.Unlock()
	if ok {
		return m, nil
	}

	lctx := context.WithoutCancel(ctx)

	v, err, _ := s.loads.Do(id, func() (any, error) {
		s.mu.Lock()
		m, ok := s.maps[id]
		s.mu.Unlock()
		if ok {
			return m, nil
		}

		meta, err := s.store.GetMap(lctx, id)
		if err != nil {
			return nil, err
		}

		obstacles, err := s.store.ListObstacles(lctx, id)
		if err != nil {
			return nil, err
		}

		m, err = newNavMap(meta, s.opts.GeohashPrecision)
		if err != nil {
			return nil, errors.New("stored map is invalid").
				WithType(ErrTypeInvalidMap).
				WithTag("map_id", id).
				Wrap(err)
		}
		m.rebuild(meta, obstacles)

		s.mu.Lock()
		s.maps[id] = m
		loadedMaps.Set(float64(len(s.maps)))
		s.mu.Unlock()

		logs.WithTag("map_id", id).
			WithTag("version", meta.Version).
			WithTag("leaves", m.tree.LeafCount()).
			Info("map loaded")
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*navMap), nil
}

// reload refreshes a loaded map from the store after a write. The write is
// already committed, so the reload outlives a cancelled request. The caller
// must hold the map write lock.
func (s *Service) reload(ctx context.Context, m *navMap) error {
	ctx = context.WithoutCancel(ctx)

	meta, err := s.store.GetMap(ctx, m.meta.ID)
	if err != nil {
		return err
	}

	obstacles, err := s.store.ListObstacles(ctx, m.meta.ID)
	if err != nil {
		return err
	}

	m.rebuild(meta, obstacles)
	return nil
}

// Forget drops a map from memory. The next request reloads it from the
// store.
func (s *Service) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.maps, id)
	loadedMaps.Set(float64(len(s.maps)))
}

func (s *Service) treeConfig(req models.CreateMapRequest) quadtree.Config {
	cfg := s.opts.TreeDefaults
	if req.Size > 0 {
		cfg.Size = req.Size
		cfg.Center = quadtree.Point{X: req.Size / 2, Y: req.Size / 2}
	}
	if req.Center != nil {
		cfg.Center = req.Center.Point()
	}
	if req.MinCellSize > 0 {
		cfg.MinCellSize = req.MinCellSize
	}
	if req.Capacity > 0 {
		cfg.Capacity = req.Capacity
	}
	return cfg
}

// CreateMap stores a new map, optionally seeded with a generated obstacle
// shape, and loads it.
func (s *Service) CreateMap(ctx context.Context, req models.CreateMapRequest) (models.MapResponse, error) {
	cfg := s.treeConfig(req)
	if err := cfg.Validate(); err != nil {
		return models.MapResponse{}, errors.New("invalid map dimensions").
			WithType(ErrTypeInvalidMap).
			Wrap(err)
	}

	meta := models.NewMap(req.Name, cfg)
	m, err := newNavMap(meta, s.opts.GeohashPrecision)
	if err != nil {
		return models.MapResponse{}, errors.New("invalid map dimensions").
			WithType(ErrTypeInvalidMap).
			Wrap(err)
	}

	var seed []models.Rect
	if req.Shape != "" {
		if seed, err = shapeRects(m.tree, req.Shape, req.Direction); err != nil {
			return models.MapResponse{}, err
		}
	}

	if err := s.store.CreateMap(ctx, meta, seed); err != nil {
		return models.MapResponse{}, err
	}

	// The map is only registered once its tree matches the store. On failure
	// the next request loads it from the store instead.
	if err := s.reload(ctx, m); err != nil {
		return models.MapResponse{}, errors.New("loading created map failed").
			WithTag("map_id", meta.ID).
			Wrap(err)
	}

	s.mu.Lock()
	s.maps[meta.ID] = m
	loadedMaps.Set(float64(len(s.maps)))
	s.mu.Unlock()

	logs.WithTag("map_id", meta.ID).
		WithTag("name", meta.Name).
		WithTag("size", meta.Size).
		WithTag("shape", req.Shape).
		Info("map created")

	return m.describe(), nil
}

// shapeRects generates a named shape covering the whole tree and returns its
// blocked cells as rectangles.
func shapeRects(tree *quadtree.Tree, shape, direction string) ([]models.Rect, error) {
	dir, err := obstacle.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	cells := int(math.Round(tree.Bounds().Width() / tree.CellSize()))
	if cells > maxShapeCells {
		return nil, errors.New("map is too large for a generated shape").
			WithType(ErrTypeInvalidObstacle).
			WithTag("cells", cells).
			WithTag("max_cells", maxShapeCells)
	}

	grid, err := obstacle.Generate(shape, cells, dir)
	if err != nil {
		return nil, err
	}

	b := tree.Bounds()
	var rects []models.Rect
	for r := range grid.Rects(quadtree.Point{X: b.MinX, Y: b.MinY}, tree.CellSize()) {
		rects = append(rects, models.FromBounds(r))
	}
	return rects, nil
}

func (s *Service) GetMap(ctx context.Context, id string) (models.MapResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return models.MapResponse{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.describe(), nil
}

// obstacleRects validates a request and turns it into rectangles. Points
// become the bounds of the leaf containing them.
func obstacleRects(m *navMap, req models.AddObstaclesRequest) ([]models.Rect, error) {
	bounds := m.tree.Bounds()
	rects := make([]models.Rect, 0, len(req.Points)+len(req.Rects))

	for _, p := range req.Points {
		id, ok := m.tree.Locate(p.Point())
		if !ok {
			return nil, outOfBounds(m, p, "obstacle")
		}
		rects = append(rects, models.FromBounds(m.tree.Leaf(id).Bounds))
	}

	for i, r := range req.Rects {
		b := r.Bounds()
		if !(b.MinX < b.MaxX) || !(b.MinY < b.MaxY) || !b.Intersects(bounds) {
			return nil, errors.New("obstacle rectangle is empty or outside the map").
				WithType(ErrTypeInvalidObstacle).
				WithTag("map_id", m.meta.ID).
				WithTag("index", i)
		}
		rects = append(rects, r)
	}

	if len(rects) == 0 {
		return nil, errors.New("no obstacles given").
			WithType(ErrTypeInvalidObstacle).
			WithTag("map_id", m.meta.ID)
	}
	return rects, nil
}

// AddObstacles stores new obstacles and rebuilds the map tree. Searches in
// flight finish on the previous tree before the rebuild starts.
func (s *Service) AddObstacles(ctx context.Context, id string, req models.AddObstaclesRequest) (models.ObstaclesResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return models.ObstaclesResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rects, err := obstacleRects(m, req)
	if err != nil {
		return models.ObstaclesResponse{}, err
	}

	if _, err := s.store.AddObstacles(ctx, id, rects); err != nil {
		return models.ObstaclesResponse{}, err
	}
	if err := s.reload(ctx, m); err != nil {
		s.Forget(id)
		return models.ObstaclesResponse{}, errors.New("reloading map failed").
			WithTag("map_id", id).
			Wrap(err)
	}

	logs.WithTag("map_id", id).
		WithTag("added", len(rects)).
		WithTag("version", m.meta.Version).
		Info("obstacles added")

	return models.ObstaclesResponse{
		MapID:     id,
		Version:   m.meta.Version,
		Added:     len(rects),
		Obstacles: m.obstacles.Len(),
	}, nil
}

// ClearObstacles removes every obstacle of a map.
func (s *Service) ClearObstacles(ctx context.Context, id string) (models.ObstaclesResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return models.ObstaclesResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := s.store.ClearObstacles(ctx, id); err != nil {
		return models.ObstaclesResponse{}, err
	}
	if err := s.reload(ctx, m); err != nil {
		s.Forget(id)
		return models.ObstaclesResponse{}, errors.New("reloading map failed").
			WithTag("map_id", id).
			Wrap(err)
	}

	logs.WithTag("map_id", id).
		WithTag("version", m.meta.Version).
		Info("obstacles cleared")

	return models.ObstaclesResponse{
		MapID:     id,
		Version:   m.meta.Version,
		Obstacles: m.obstacles.Len(),
	}, nil
}

// Obstacles returns the obstacles of a map overlapping area, or all of them
// when area is nil.
func (s *Service) Obstacles(ctx context.Context, id string, area *quadtree.Bounds) ([]models.Obstacle, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rects := m.obstacles.Rects()
	if area != nil {
		rects = m.obstacles.Intersecting(*area)
	}

	obstacles := make([]models.Obstacle, 0, len(rects))
	for _, r := range rects {
		obstacles = append(obstacles, models.Obstacle{
			ID:    r.ID,
			MapID: id,
			Rect:  models.FromBounds(r.Area),
		})
	}
	return obstacles, nil
}

// Locate returns the leaf containing p, and whether p lies inside an
// obstacle rather than only in a blocked leaf.
func (s *Service) Locate(ctx context.Context, id string, p models.Vec2) (models.LeafInfo, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return models.LeafInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	leaf, err := s.resolve(m, p, false, "point")
	if err != nil {
		return models.LeafInfo{}, err
	}

	info := m.leafInfo(leaf)
	info.InObstacle = m.obstacles.Contains(p.Point())
	return info, nil
}

// resolve maps a point to its leaf. With snapping on, a blocked leaf is
// replaced by the nearest passable one when there is one close enough. The
// caller must hold the map read lock.
func (s *Service) resolve(m *navMap, p models.Vec2, snapBlocked bool, role string) (quadtree.NodeID, error) {
	id, ok := m.tree.Locate(p.Point())
	if !ok {
		return quadtree.NoNode, outOfBounds(m, p, role)
	}

	if snapBlocked && m.tree.Blocked(id) {
		if free, ok := snap(m.tree, p.Point(), s.opts.SnapRetries); ok {
			return free, nil
		}
	}
	return id, nil
}

func (s *Service) searchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(ctx, s.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Service) searchOptions(weight *float64) []search.Option {
	w := s.opts.HeuristicWeight
	if weight != nil {
		w = *weight
	}

	return []search.Option{
		search.WithHeuristicWeight(w),
		search.WithMaxExpansions(s.opts.MaxExpansions),
	}
}

// FindPath searches a route between two points of a map.
func (s *Service) FindPath(ctx context.Context, id string, req models.PathRequest) (models.PathResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return models.PathResponse{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	start, err := s.resolve(m, req.From, req.Snap, "from")
	if err != nil {
		return models.PathResponse{}, err
	}
	goal, err := s.resolve(m, req.To, req.Snap, "to")
	if err != nil {
		return models.PathResponse{}, err
	}

	sctx, cancel := s.searchContext(ctx)
	defer cancel()

	begin := time.Now()
	res, err := search.FindPath(sctx, m.tree, start, goal, s.searchOptions(req.HeuristicWeight)...)
	expanded := 0
	if res != nil {
		expanded = res.Expanded
	}
	instrumentSearch(kindPath, begin, expanded, err)

	if err != nil {
		if search.IsAborted(err) {
			logs.WithTag("map_id", id).
				WithTag("start", start).
				WithTag("goal", goal).
				Error(err)
		}
		return models.PathResponse{}, err
	}

	path := res.Path()
	leaves := make([]models.LeafInfo, 0, len(path))
	waypoints := make([]models.Vec2, 0, len(path))
	for _, leaf := range path {
		info := m.leafInfo(leaf)
		leaves = append(leaves, info)
		waypoints = append(waypoints, info.Center)
	}

	return models.PathResponse{
		MapID:     id,
		Version:   m.meta.Version,
		Cost:      res.Cost,
		Expanded:  res.Expanded,
		Leaves:    leaves,
		Waypoints: waypoints,
	}, nil
}

// FlowField returns the flow field toward a goal point.
func (s *Service) FlowField(ctx context.Context, id string, req models.FlowFieldRequest) (models.FlowFieldResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return models.FlowFieldResponse{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	goal, err := s.resolve(m, req.Goal, req.Snap, "goal")
	if err != nil {
		return models.FlowFieldResponse{}, err
	}

	field, cached, err := s.field(ctx, m, goal)
	if err != nil {
		return models.FlowFieldResponse{}, err
	}

	cells := make([]models.FlowCell, 0, field.Len())
	for leaf := range m.tree.Leaves() {
		next, ok := field.Next(leaf.ID)
		if !ok {
			continue
		}

		dir, _ := field.Direction(m.tree, leaf.ID)
		cells = append(cells, models.FlowCell{
			Leaf:      int32(leaf.ID),
			Next:      int32(next),
			Center:    models.FromPoint(leaf.Center),
			Direction: models.FromPoint(dir),
			Cost:      field.Costs[leaf.ID],
		})
	}

	return models.FlowFieldResponse{
		MapID:    id,
		Version:  m.meta.Version,
		Goal:     m.leafInfo(goal),
		Expanded: field.Expanded,
		Cached:   cached,
		Cells:    cells,
	}, nil
}

// NextStep returns where to move from a point to get closer to a goal,
// reading the flow field of the goal.
func (s *Service) NextStep(ctx context.Context, id string, req models.NextStepRequest) (models.NextStepResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return models.NextStepResponse{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	goal, err := s.resolve(m, req.Goal, req.Snap, "goal")
	if err != nil {
		return models.NextStepResponse{}, err
	}
	from, err := s.resolve(m, req.From, req.Snap, "from")
	if err != nil {
		return models.NextStepResponse{}, err
	}

	field, _, err := s.field(ctx, m, goal)
	if err != nil {
		return models.NextStepResponse{}, err
	}

	next, ok := field.Next(from)
	if !ok {
		return models.NextStepResponse{}, errors.New("goal can not be reached from this point").
			WithType(search.ErrTypeUnreachable).
			WithTag("map_id", id).
			WithTag("from", from).
			WithTag("goal", goal)
	}

	dir, _ := field.Direction(m.tree, from)
	return models.NextStepResponse{
		From:      m.leafInfo(from),
		Next:      m.leafInfo(next),
		Direction: models.FromPoint(dir),
		Cost:      field.Costs[from],
	}, nil
}

func (s *Service) fieldKey(m *navMap, goal quadtree.NodeID) string {
	return fmt.Sprintf("flowfield:%s:v%d:%s:%d",
		m.meta.ID,
		m.meta.Version,
		m.cells.Encode(m.tree.Leaf(goal).Center),
		goal,
	)
}

type builtField struct {
	field  *search.Field
	cached bool
}

// field returns the flow field toward goal for the current map version,
// looking in memory, then in the shared cache, and building it last.
// Concurrent requests for the same field wait for a single build. The build
// is bounded by the service timeout and expansion budget rather than by the
// context of whichever request started it. The caller must hold the map read
// lock.
func (s *Service) field(ctx context.Context, m *navMap, goal quadtree.NodeID) (*search.Field, bool, error) {
	if f, ok := m.localField(goal); ok {
		instrumentCacheLookup(levelLocal, true)
		return f, true, nil
	}
	instrumentCacheLookup(levelLocal, false)

	key := s.fieldKey(m, goal)
	bctx := context.WithoutCancel(ctx)

	v, err, _ := s.builds.Do(key, func() (any, error) {
		if f, ok := s.cachedField(bctx, m, key, goal); ok {
			return builtField{field: f, cached: true}, nil
		}

		sctx, cancel := s.searchContext(bctx)
		defer cancel()

		begin := time.Now()
		f, err := search.BuildField(sctx, m.tree, goal, search.WithMaxExpansions(s.opts.MaxExpansions))
		expanded := 0
		if f != nil {
			expanded = f.Expanded
		}
		instrumentSearch(kindFlowField, begin, expanded, err)

		if err != nil {
			if search.IsAborted(err) {
				logs.WithTag("map_id", m.meta.ID).
					WithTag("goal", goal).
					Error(err)
			}
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.Set(bctx, key, toModel(m.meta, f)); err != nil {
				logs.Warn(errors.New("caching flow field failed").
					WithTag("map_id", m.meta.ID).
					Wrap(err))
			}
		}
		return builtField{field: f}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(builtField)
	m.storeField(res.field)
	return res.field, res.cached, nil
}

func (s *Service) cachedField(ctx context.Context, m *navMap, key string, goal quadtree.NodeID) (*search.Field, bool) {
	if s.cache == nil {
		return nil, false
	}

	ff, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logs.Warn(errors.New("reading cached flow field failed").
			WithTag("map_id", m.meta.ID).
			Wrap(err))
	}

	hit := ok && ff.Version == m.meta.Version && quadtree.NodeID(ff.Goal) == goal
	instrumentCacheLookup(levelRedis, hit)
	if !hit {
		return nil, false
	}
	return fromModel(ff), true
}

func toModel(meta models.Map, f *search.Field) *models.FlowField {
	entries := make([]models.FlowEntry, 0, f.Len())
	for leaf, next := range f.Predecessors {
		entries = append(entries, models.FlowEntry{
			Leaf: int32(leaf),
			Next: int32(next),
			Cost: f.Costs[leaf],
		})
	}

	return &models.FlowField{
		MapID:    meta.ID,
		Version:  meta.Version,
		Goal:     int32(f.Goal),
		Expanded: f.Expanded,
		Entries:  entries,
	}
}

func fromModel(ff *models.FlowField) *search.Field {
	f := &search.Field{
		Goal:         quadtree.NodeID(ff.Goal),
		Expanded:     ff.Expanded,
		Predecessors: make(search.Predecessors, len(ff.Entries)),
		Costs:        make(map[quadtree.NodeID]float64, len(ff.Entries)),
	}

	for _, e := range ff.Entries {
		f.Predecessors[quadtree.NodeID(e.Leaf)] = quadtree.NodeID(e.Next)
		f.Costs[quadtree.NodeID(e.Leaf)] = e.Cost
	}
	return f
}
