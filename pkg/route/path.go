package route

import (
	"math"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/roadnet"
)

// straightThreshold is the largest heading change still treated as a
// straight segment, in radians.
const straightThreshold = 0.12

// Path is a drivable spline: an ordered sequence of arc-length
// parameterized curve segments with a scalar travel parameter. Segment i
// runs from node i to node i+1 of the node sequence.
type Path struct {
	Segments []geo.Curve
	Nodes    []roadnet.Connection

	Current   int     // index of the segment being driven
	Parameter float64 // distance traveled along the current segment
	Finished  bool
}

// BuildPath converts a node sequence into curve segments. Straight lanes
// become lines, deadend reversals become u-turns, and turns become
// quadratic blends whose sharpness depends on whether the turn happens
// inside an intersection. Degenerate segments are dropped silently.
func BuildPath(nodes []roadnet.Connection) *Path {
	p := &Path{}
	if len(nodes) < 2 {
		p.Finished = true
		return p
	}

	kept := []roadnet.Connection{nodes[0]}
	for i := 0; i+1 < len(nodes); i++ {
		seg, ok := buildSegment(nodes[i], nodes[i+1])
		if !ok {
			continue
		}
		p.Segments = append(p.Segments, seg)
		kept = append(kept, nodes[i+1])
	}
	p.Nodes = kept
	if len(p.Segments) == 0 {
		p.Finished = true
	}
	return p
}

func buildSegment(a, b roadnet.Connection) (geo.Curve, bool) {
	if a.Position.Distance(b.Position) < 1e-6 {
		return geo.Curve{}, false
	}

	if a.Kind == roadnet.DeadendEntry {
		return geo.NewUTurn(a.Position, b.Position, a.Direction.Vector()), true
	}

	turn := geo.AngleDiff(a.Direction.Angle(), b.Direction.Angle())
	if turn < straightThreshold {
		return geo.NewLine(a.Position, b.Position), true
	}

	control, ok := rayIntersection(a.Position, a.Direction.Vector(), b.Position, b.Direction.Vector())
	if !ok {
		return geo.NewLine(a.Position, b.Position), true
	}
	// Turns spanning more than a tile happen outside the junction box and
	// get a gentler blend.
	if a.Position.Distance(b.Position) > grid.TileSize*1.5 {
		control = control.Lerp(geo.MidPoint(a.Position, b.Position), 0.5)
	}
	return geo.NewQuadratic(a.Position, control, b.Position), true
}

// rayIntersection intersects the ray from a along da with the line through
// b along db. Returns false for near-parallel rays.
func rayIntersection(a, da, b, db geo.Point) (geo.Point, bool) {
	denom := da.Cross(db)
	if math.Abs(denom) < 1e-9 {
		return geo.Point{}, false
	}
	t := b.Sub(a).Cross(db) / denom
	if t < 0 {
		return geo.Point{}, false
	}
	return a.Add(da.Scale(t)), true
}

// Length returns the total arc length of the path.
func (p *Path) Length() float64 {
	total := 0.0
	for _, s := range p.Segments {
		total += s.Length()
	}
	return total
}

// Remaining returns the arc length left to drive.
func (p *Path) Remaining() float64 {
	if p.Finished || p.Current >= len(p.Segments) {
		return 0
	}
	rem := p.Segments[p.Current].Length() - p.Parameter
	for i := p.Current + 1; i < len(p.Segments); i++ {
		rem += p.Segments[i].Length()
	}
	return rem
}

// Sample returns the position and unit tangent at the current parameter.
func (p *Path) Sample() (geo.Point, geo.Point, bool) {
	if p.Current >= len(p.Segments) {
		return geo.Point{}, geo.Point{}, false
	}
	seg := p.Segments[p.Current]
	return seg.PointAt(p.Parameter), seg.TangentAt(p.Parameter), true
}

// SampleAhead returns the position and tangent at the given distance ahead
// of the current parameter, carrying overflow across segment boundaries.
// Distances past the end clamp to the final point.
func (p *Path) SampleAhead(distance float64) (geo.Point, geo.Point, bool) {
	if p.Current >= len(p.Segments) {
		return geo.Point{}, geo.Point{}, false
	}
	idx := p.Current
	s := p.Parameter + distance
	for idx < len(p.Segments) && s > p.Segments[idx].Length() {
		s -= p.Segments[idx].Length()
		idx++
	}
	if idx >= len(p.Segments) {
		last := p.Segments[len(p.Segments)-1]
		return last.PointAt(last.Length()), last.TangentAt(last.Length()), true
	}
	return p.Segments[idx].PointAt(s), p.Segments[idx].TangentAt(s), true
}

// Advance moves the travel parameter forward by the given distance,
// crossing segment boundaries and setting Finished at the end.
func (p *Path) Advance(distance float64) {
	if p.Finished {
		return
	}
	p.Parameter += distance
	for p.Current < len(p.Segments) && p.Parameter >= p.Segments[p.Current].Length() {
		p.Parameter -= p.Segments[p.Current].Length()
		p.Current++
	}
	if p.Current >= len(p.Segments) {
		p.Current = len(p.Segments)
		p.Parameter = 0
		p.Finished = true
	}
}

// NextNode returns the node the current segment is heading toward.
func (p *Path) NextNode() (roadnet.Connection, bool) {
	i := p.Current + 1
	if p.Finished || i >= len(p.Nodes) {
		return roadnet.Connection{}, false
	}
	return p.Nodes[i], true
}

// DistanceToNextNode returns the remaining arc length on the current
// segment.
func (p *Path) DistanceToNextNode() float64 {
	if p.Finished || p.Current >= len(p.Segments) {
		return 0
	}
	return p.Segments[p.Current].Length() - p.Parameter
}

// EndNode returns the final node of the path.
func (p *Path) EndNode() (roadnet.Connection, bool) {
	if len(p.Nodes) == 0 {
		return roadnet.Connection{}, false
	}
	return p.Nodes[len(p.Nodes)-1], true
}
