package models

// CreateMapRequest describes a new map. Zero values fall back to the
// configured tree defaults. Shape optionally seeds the map with a generated
// obstacle layout.
type CreateMapRequest struct {
	Name        string  `json:"name"`
	Center      *Vec2   `json:"center,omitempty"`
	Size        float64 `json:"size,omitempty"`
	MinCellSize float64 `json:"min_cell_size,omitempty"`
	Capacity    int     `json:"capacity,omitempty"`
	Shape       string  `json:"shape,omitempty"`
	Direction   string  `json:"direction,omitempty"`
}

// AddObstaclesRequest adds obstacles to a map. Points block the cell that
// contains them.
type AddObstaclesRequest struct {
	Points []Vec2 `json:"points,omitempty"`
	Rects  []Rect `json:"rects,omitempty"`
}

type ObstaclesResponse struct {
	MapID     string `json:"map_id"`
	Version   int64  `json:"version"`
	Added     int    `json:"added,omitempty"`
	Obstacles int    `json:"obstacles"`
}

// MapResponse is a map with statistics about its tree.
type MapResponse struct {
	Map
	Depth      int     `json:"depth"`
	CellSize   float64 `json:"cell_size"`
	Leaves     int     `json:"leaves"`
	Blocked    int     `json:"blocked"`
	Partitions int     `json:"partitions"`
	Points     int     `json:"points"`
	Obstacles  int     `json:"obstacles"`
}

// LeafInfo describes a minimum-size cell of a map.
type LeafInfo struct {
	ID        int32   `json:"id"`
	Cell      string  `json:"cell"`
	Center    Vec2    `json:"center"`
	Size      float64 `json:"size"`
	Blocked   bool    `json:"blocked"`
	Occupancy int     `json:"occupancy"`

	// InObstacle is set by point lookups when the point itself lies inside
	// a stored obstacle rectangle.
	InObstacle bool `json:"in_obstacle,omitempty"`
}

// PathRequest asks for a route between two points. With Snap set, blocked
// endpoints are moved to the nearest free cell.
type PathRequest struct {
	From            Vec2     `json:"from"`
	To              Vec2     `json:"to"`
	Snap            bool     `json:"snap,omitempty"`
	HeuristicWeight *float64 `json:"heuristic_weight,omitempty"`
}

type PathResponse struct {
	MapID     string     `json:"map_id"`
	Version   int64      `json:"version"`
	Cost      float64    `json:"cost"`
	Expanded  int        `json:"expanded"`
	Leaves    []LeafInfo `json:"leaves"`
	Waypoints []Vec2     `json:"waypoints"`
}

type FlowFieldRequest struct {
	Goal Vec2 `json:"goal"`
	Snap bool `json:"snap,omitempty"`
}

// FlowCell is the flow field entry of one leaf.
type FlowCell struct {
	Leaf      int32   `json:"leaf"`
	Next      int32   `json:"next"`
	Center    Vec2    `json:"center"`
	Direction Vec2    `json:"direction"`
	Cost      float64 `json:"cost"`
}

type FlowFieldResponse struct {
	MapID    string     `json:"map_id"`
	Version  int64      `json:"version"`
	Goal     LeafInfo   `json:"goal"`
	Expanded int        `json:"expanded"`
	Cached   bool       `json:"cached"`
	Cells    []FlowCell `json:"cells"`
}

// NextStepRequest asks which way to move from a point to reach a goal.
type NextStepRequest struct {
	From Vec2 `json:"from"`
	Goal Vec2 `json:"goal"`
	Snap bool `json:"snap,omitempty"`
}

type NextStepResponse struct {
	From      LeafInfo `json:"from"`
	Next      LeafInfo `json:"next"`
	Direction Vec2     `json:"direction"`
	Cost      float64  `json:"cost"`
}

// FlowField is the storable form of a flow field: for every leaf that can
// reach the goal, the leaf to step to and the accumulated cost.
type FlowField struct {
	MapID    string      `json:"map_id"`
	Version  int64       `json:"version"`
	Goal     int32       `json:"goal"`
	Expanded int         `json:"expanded"`
	Entries  []FlowEntry `json:"entries"`
}

type FlowEntry struct {
	Leaf int32   `json:"leaf"`
	Next int32   `json:"next"`
	Cost float64 `json:"cost"`
}
