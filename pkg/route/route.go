package route

import "github.com/gridtown/trafficsim/pkg/roadnet"

// Kind discriminates the route union.
type Kind int

const (
	KindUnrouted Kind = iota
	KindRouted
	KindArriving
)

// ArrivalKind distinguishes what the final approach spline leads to.
type ArrivalKind int

const (
	ArriveAtLot ArrivalKind = iota
	ArriveAtNode
)

// Route is a car's navigation state: nothing, an on-network path between
// two connections, or a final arrival spline toward a destination off the
// lane graph.
type Route struct {
	Kind    Kind
	Start   roadnet.Connection
	End     roadnet.Connection
	Arrival ArrivalKind
	Path    *Path
}

// Unrouted returns the empty route.
func Unrouted() Route {
	return Route{Kind: KindUnrouted}
}

// NewRouted wraps a path between two network nodes.
func NewRouted(start, end roadnet.Connection, p *Path) Route {
	return Route{Kind: KindRouted, Start: start, End: end, Path: p}
}

// NewArriving wraps a final approach spline.
func NewArriving(kind ArrivalKind, p *Path) Route {
	return Route{Kind: KindArriving, Arrival: kind, Path: p}
}

// HasPath reports whether the route carries an unfinished drivable path.
func (r Route) HasPath() bool {
	return r.Kind != KindUnrouted && r.Path != nil && !r.Path.Finished
}

// IsArriving reports whether the car is on its final approach.
func (r Route) IsArriving() bool {
	return r.Kind == KindArriving
}

// IsWaitingForRoute reports whether the route has been consumed and a new
// one must be issued: either unrouted or a finished path.
func (r Route) IsWaitingForRoute() bool {
	if r.Kind == KindUnrouted {
		return true
	}
	return r.Path == nil || r.Path.Finished
}
