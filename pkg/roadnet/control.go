package roadnet

import (
	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
)

// ControlKind identifies the traffic control device on a node.
type ControlKind int

const (
	NoControl ControlKind = iota
	YieldControl
	SignalControl
)

func (k ControlKind) String() string {
	switch k {
	case YieldControl:
		return "yield"
	case SignalControl:
		return "signal"
	default:
		return "none"
	}
}

// TrafficControl is the device guarding a node. Yield carries the area in
// which crossing traffic must be checked; Signal references a traffic light
// owned by the world.
type TrafficControl struct {
	Kind           ControlKind
	TrafficLightID int
	CheckArea      geo.Polygon
}

// yieldCheckArea builds the triangular area a yielding car scans for
// crossing traffic: from the node position into the intersection ahead,
// spanning the full road width.
func yieldCheckArea(pos geo.Point, dir grid.Direction) geo.Polygon {
	forward := dir.Vector()
	side := forward.Perp()
	depth := grid.TileSize * 1.5
	halfSpan := grid.TileSize

	tip := pos
	farLeft := pos.Add(forward.Scale(depth)).Add(side.Scale(-halfSpan))
	farRight := pos.Add(forward.Scale(depth)).Add(side.Scale(halfSpan))
	return geo.NewPolygon(tip, farLeft, farRight)
}
