package geo

import "math"

// Polygon is a closed polygon defined by its vertices in order.
type Polygon struct {
	Vertices []Point
}

// NewPolygon creates a polygon from a list of vertices.
func NewPolygon(pts ...Point) Polygon {
	return Polygon{Vertices: pts}
}

// OrientedRect builds a rectangle centered at center with the long axis
// pointing at angle radians. Used for vehicle body shapes.
func OrientedRect(center Point, length, width, angle float64) Polygon {
	hl, hw := length/2, width/2
	corners := []Point{
		{-hl, -hw},
		{hl, -hw},
		{hl, hw},
		{-hl, hw},
	}
	pts := make([]Point, len(corners))
	for i, c := range corners {
		pts[i] = c.Rotate(angle).Add(center)
	}
	return Polygon{Vertices: pts}
}

// Len returns the number of vertices.
func (p Polygon) Len() int {
	return len(p.Vertices)
}

// IsEmpty returns true if the polygon has fewer than 3 vertices.
func (p Polygon) IsEmpty() bool {
	return len(p.Vertices) < 3
}

// Edge returns the i-th edge as (start, end). Wraps around.
func (p Polygon) Edge(i int) (Point, Point) {
	n := len(p.Vertices)
	return p.Vertices[i%n], p.Vertices[(i+1)%n]
}

// Translate returns the polygon moved by the given offset.
func (p Polygon) Translate(offset Point) Polygon {
	pts := make([]Point, len(p.Vertices))
	for i, v := range p.Vertices {
		pts[i] = v.Add(offset)
	}
	return Polygon{Vertices: pts}
}

// Centroid returns the average of the vertices.
func (p Polygon) Centroid() Point {
	n := len(p.Vertices)
	if n == 0 {
		return Point{}
	}
	sum := Point{}
	for _, v := range p.Vertices {
		sum = sum.Add(v)
	}
	return sum.Scale(1.0 / float64(n))
}

// BoundingBox returns the axis-aligned bounding box as (min, max).
func (p Polygon) BoundingBox() (Point, Point) {
	if len(p.Vertices) == 0 {
		return Point{}, Point{}
	}
	minP := p.Vertices[0]
	maxP := p.Vertices[0]
	for _, v := range p.Vertices[1:] {
		if v.X < minP.X {
			minP.X = v.X
		}
		if v.Y < minP.Y {
			minP.Y = v.Y
		}
		if v.X > maxP.X {
			maxP.X = v.X
		}
		if v.Y > maxP.Y {
			maxP.Y = v.Y
		}
	}
	return minP, maxP
}

// Contains returns true if the point is inside the polygon using ray casting.
func (p Polygon) Contains(pt Point) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi := p.Vertices[i]
		vj := p.Vertices[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// IntersectSegment returns the intersection of segment a→b with any edge of
// the polygon that is nearest to a, and whether an intersection exists.
func (p Polygon) IntersectSegment(a, b Point) (Point, bool) {
	best := Point{}
	bestDist := math.MaxFloat64
	found := false
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		e1, e2 := p.Edge(i)
		if pt, ok := SegmentIntersection(a, b, e1, e2); ok {
			if d := a.Distance(pt); d < bestDist {
				bestDist = d
				best = pt
				found = true
			}
		}
	}
	return best, found
}

// SegmentIntersection returns the intersection point of segments p1→p2 and
// p3→p4, and whether the segments actually cross.
func SegmentIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if math.Abs(d) < 1e-12 {
		return Point{}, false
	}
	t := ((p1.X-p3.X)*(p3.Y-p4.Y) - (p1.Y-p3.Y)*(p3.X-p4.X)) / d
	u := -((p1.X-p2.X)*(p1.Y-p3.Y) - (p1.Y-p2.Y)*(p1.X-p3.X)) / d
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return Point{
		X: p1.X + t*(p2.X-p1.X),
		Y: p1.Y + t*(p2.Y-p1.Y),
	}, true
}

// BoundingBoxesOverlap reports whether two axis-aligned boxes overlap.
func BoundingBoxesOverlap(min1, max1, min2, max2 Point) bool {
	return min1.X <= max2.X && max1.X >= min2.X &&
		min1.Y <= max2.Y && max1.Y >= min2.Y
}
