package models

import (
	"quadnav/quadtree"
	"time"

	"github.com/google/uuid"
)

// Map is a navigable region. Its obstacles are stored separately and the
// version is bumped every time they change.
type Map struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Center      Vec2      `json:"center"`
	Size        float64   `json:"size"`
	MinCellSize float64   `json:"min_cell_size"`
	Capacity    int       `json:"capacity"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMap returns a map with a fresh identifier covering the region described
// by cfg.
func NewMap(name string, cfg quadtree.Config) Map {
	now := time.Now().UTC()
	return Map{
		ID:          uuid.New().String(),
		Name:        name,
		Center:      FromPoint(cfg.Center),
		Size:        cfg.Size,
		MinCellSize: cfg.MinCellSize,
		Capacity:    cfg.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TreeConfig returns the quadtree configuration of the map.
func (m Map) TreeConfig() quadtree.Config {
	return quadtree.Config{
		Center:      m.Center.Point(),
		Size:        m.Size,
		MinCellSize: m.MinCellSize,
		Capacity:    m.Capacity,
	}
}

// Obstacle is a rectangle of a map that can not be walked through.
type Obstacle struct {
	ID    int64  `json:"id"`
	MapID string `json:"map_id"`
	Rect
}

// Vec2 is a point or vector in map coordinates.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func FromPoint(p quadtree.Point) Vec2 {
	return Vec2{X: p.X, Y: p.Y}
}

func (v Vec2) Point() quadtree.Point {
	return quadtree.Point{X: v.X, Y: v.Y}
}

// Rect is an axis-aligned rectangle, min inclusive and max exclusive.
type Rect struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

func FromBounds(b quadtree.Bounds) Rect {
	return Rect{
		Min: Vec2{X: b.MinX, Y: b.MinY},
		Max: Vec2{X: b.MaxX, Y: b.MaxY},
	}
}

func (r Rect) Bounds() quadtree.Bounds {
	return quadtree.Bounds{
		MinX: r.Min.X,
		MinY: r.Min.Y,
		MaxX: r.Max.X,
		MaxY: r.Max.Y,
	}
}
