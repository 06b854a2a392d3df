package geo

import "math"

// CurveKind identifies the shape of a curve segment.
type CurveKind int

const (
	CurveLine CurveKind = iota
	CurveQuadratic
	CurveUTurn
)

// arcSamples is the resolution used to build the arc-length table for curved
// segments. Error stays well under 5cm for tile-scale curves.
const arcSamples = 32

// Curve is an arc-length parameterized curve segment. The parameter passed
// to PointAt and TangentAt is distance traveled in meters from the start,
// which makes constant-speed traversal a simple parameter increment.
type Curve struct {
	Kind    CurveKind
	Start   Point
	Control Point
	End     Point

	pts []Point   // sampled points, uniform in curve parameter t
	cum []float64 // cumulative arc length at each sample
}

// NewLine creates a straight segment from a to b.
func NewLine(a, b Point) Curve {
	c := Curve{Kind: CurveLine, Start: a, End: b}
	c.buildTable([]Point{a, b})
	return c
}

// NewQuadratic creates a quadratic Bezier segment from a to b with the given
// control point.
func NewQuadratic(a, control, b Point) Curve {
	c := Curve{Kind: CurveQuadratic, Start: a, Control: control, End: b}
	pts := make([]Point, arcSamples+1)
	for i := 0; i <= arcSamples; i++ {
		t := float64(i) / arcSamples
		pts[i] = quadraticPoint(a, control, b, t)
	}
	c.buildTable(pts)
	return c
}

// NewUTurn creates a half-circle arc from a to b bulging toward dir. Used
// for deadend reversals where entry and exit run in opposite directions.
func NewUTurn(a, b, dir Point) Curve {
	center := MidPoint(a, b)
	radius := a.Distance(b) / 2
	if radius < 1e-9 {
		// Degenerate arc collapses to a point.
		c := Curve{Kind: CurveUTurn, Start: a, End: b}
		c.buildTable([]Point{a, b})
		return c
	}

	startAngle := center.AngleTo(a)
	d := dir.Normalize()

	// Pick the sweep direction whose arc midpoint lies toward dir.
	midCCW := center.Add(FromAngle(startAngle + math.Pi/2).Scale(radius))
	sweep := math.Pi
	if midCCW.Sub(center).Dot(d) < 0 {
		sweep = -math.Pi
	}

	pts := make([]Point, arcSamples+1)
	for i := 0; i <= arcSamples; i++ {
		t := float64(i) / arcSamples
		pts[i] = center.Add(FromAngle(startAngle + sweep*t).Scale(radius))
	}
	c := Curve{Kind: CurveUTurn, Start: a, End: b}
	c.buildTable(pts)
	return c
}

func (c *Curve) buildTable(pts []Point) {
	c.pts = pts
	c.cum = make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		c.cum[i] = c.cum[i-1] + pts[i-1].Distance(pts[i])
	}
}

// Length returns the approximate arc length of the curve.
func (c Curve) Length() float64 {
	if len(c.cum) == 0 {
		return 0
	}
	return c.cum[len(c.cum)-1]
}

// PointAt returns the position at arc length s from the start. Values
// outside [0, Length] clamp to the endpoints.
func (c Curve) PointAt(s float64) Point {
	n := len(c.pts)
	if n == 0 {
		return Point{}
	}
	if n == 1 || s <= 0 {
		return c.pts[0]
	}
	total := c.cum[n-1]
	if s >= total {
		return c.pts[n-1]
	}
	i := c.segmentIndex(s)
	span := c.cum[i+1] - c.cum[i]
	if span < 1e-12 {
		return c.pts[i]
	}
	frac := (s - c.cum[i]) / span
	return c.pts[i].Lerp(c.pts[i+1], frac)
}

// TangentAt returns the unit tangent at arc length s.
func (c Curve) TangentAt(s float64) Point {
	n := len(c.pts)
	if n < 2 {
		return Point{}
	}
	if s < 0 {
		s = 0
	}
	if s >= c.cum[n-1] {
		return c.pts[n-1].Sub(c.pts[n-2]).Normalize()
	}
	i := c.segmentIndex(s)
	return c.pts[i+1].Sub(c.pts[i]).Normalize()
}

// segmentIndex finds the sample interval containing arc length s.
func (c Curve) segmentIndex(s float64) int {
	lo, hi := 0, len(c.cum)-1
	for lo < hi-1 {
		mid := (lo + hi) / 2
		if c.cum[mid] <= s {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func quadraticPoint(a, control, b Point, t float64) Point {
	u := 1 - t
	return a.Scale(u * u).
		Add(control.Scale(2 * u * t)).
		Add(b.Scale(t * t))
}
