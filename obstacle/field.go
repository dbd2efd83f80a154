package obstacle

import (
	"math"
	"quadnav/quadtree"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/dhconnelly/rtreego"
)

const (
	// ErrTypeInvalidRect is returned when a rectangle has no area or inverted
	// corners.
	ErrTypeInvalidRect = "obstacle_invalid_rect"

	// Cell rectangles are shrunk by this much before querying the R-tree so
	// that shapes only touching a cell edge do not block it.
	edgeTolerance = 1e-9
)

// Rect is a rectangular obstacle stored in a Field.
type Rect struct {
	ID   int64
	Area quadtree.Bounds

	rect rtreego.Rect
}

// Bounds implements the rtreego.Spatial interface.
func (r *Rect) Bounds() rtreego.Rect {
	return r.rect
}

// Field is a set of rectangular obstacles indexed by an R-tree.
type Field struct {
	rtree *rtreego.Rtree
	rects []*Rect
}

// NewField returns an empty field.
func NewField() *Field {
	return &Field{
		rtree: rtreego.NewTree(2, 25, 50),
	}
}

func toRect(b quadtree.Bounds) (rtreego.Rect, error) {
	if !(b.MinX < b.MaxX) || !(b.MinY < b.MaxY) {
		return rtreego.Rect{}, errors.New("rectangle has no area").
			WithType(ErrTypeInvalidRect).
			WithTag("min_x", b.MinX).
			WithTag("min_y", b.MinY).
			WithTag("max_x", b.MaxX).
			WithTag("max_y", b.MaxY)
	}

	r, err := rtreego.NewRect(
		rtreego.Point{b.MinX, b.MinY},
		[]float64{b.Width(), b.Height()},
	)
	if err != nil {
		return rtreego.Rect{}, errors.New("creating rectangle failed").
			WithType(ErrTypeInvalidRect).
			Wrap(err)
	}
	return r, nil
}

// Add stores a rectangle covering area.
func (f *Field) Add(id int64, area quadtree.Bounds) (*Rect, error) {
	rect, err := toRect(area)
	if err != nil {
		return nil, errors.New("adding obstacle failed").
			WithType(ErrTypeInvalidRect).
			WithTag("id", id).
			Wrap(err)
	}

	r := &Rect{
		ID:   id,
		Area: area,
		rect: rect,
	}
	f.rtree.Insert(r)
	f.rects = append(f.rects, r)
	return r, nil
}

// Len returns the number of stored rectangles.
func (f *Field) Len() int {
	return f.rtree.Size()
}

// Rects returns the stored rectangles in insertion order.
func (f *Field) Rects() []*Rect {
	return f.rects
}

// Intersecting returns the rectangles overlapping area. Rectangles only
// touching its edge are left out.
func (f *Field) Intersecting(area quadtree.Bounds) []*Rect {
	query := quadtree.Bounds{
		MinX: area.MinX + edgeTolerance,
		MinY: area.MinY + edgeTolerance,
		MaxX: area.MaxX - edgeTolerance,
		MaxY: area.MaxY - edgeTolerance,
	}
	rect, err := toRect(query)
	if err != nil {
		return nil
	}

	found := f.rtree.SearchIntersect(rect)
	rects := make([]*Rect, 0, len(found))
	for _, s := range found {
		rects = append(rects, s.(*Rect))
	}
	return rects
}

// Contains reports whether p lies inside any rectangle.
func (f *Field) Contains(p quadtree.Point) bool {
	found := f.rtree.SearchIntersect(rtreego.Point{p.X, p.Y}.ToRect(edgeTolerance))
	for _, s := range found {
		if s.(*Rect).Area.Contains(p) {
			return true
		}
	}
	return false
}

// Rasterize overlays region with square cells of the given size, anchored at
// its bottom left corner, and yields the center of every cell that overlaps a
// rectangle. Each center is yielded once.
func (f *Field) Rasterize(region quadtree.Bounds, cell float64) Source {
	return func(yield func(quadtree.Point) bool) {
		if cell <= 0 || f.Len() == 0 {
			return
		}

		cols := int(math.Ceil(region.Width() / cell))
		rows := int(math.Ceil(region.Height() / cell))
		seen := make(map[[2]int]struct{})

		for _, r := range f.rects {
			x0, x1 := cellSpan(r.Area.MinX, r.Area.MaxX, region.MinX, cell, cols)
			y0, y1 := cellSpan(r.Area.MinY, r.Area.MaxY, region.MinY, cell, rows)

			for y := y0; y <= y1; y++ {
				for x := x0; x <= x1; x++ {
					key := [2]int{x, y}
					if _, ok := seen[key]; ok {
						continue
					}
					seen[key] = struct{}{}

					p := quadtree.Point{
						X: region.MinX + (float64(x)+0.5)*cell,
						Y: region.MinY + (float64(y)+0.5)*cell,
					}
					if !yield(p) {
						return
					}
				}
			}
		}
	}
}

// cellSpan returns the first and last cell index along one axis overlapped
// by [lo, hi). The span is empty (first > last) when the interval falls
// outside the n cells.
func cellSpan(lo, hi, origin, cell float64, n int) (int, int) {
	first := int(math.Floor((lo - origin) / cell))
	last := int(math.Ceil((hi-origin)/cell)) - 1
	if last < first {
		last = first
	}

	if first < 0 {
		first = 0
	}
	if last > n-1 {
		last = n - 1
	}
	return first, last
}
