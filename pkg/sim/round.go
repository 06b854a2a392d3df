package sim

import (
	"math"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/roadnet"
)

// DecisionKind is the outcome of a round of rule checks.
type DecisionKind int

const (
	// DecideAccelerate is the no-rule-matched default: speed up toward
	// max if there is a path to follow, otherwise coast to a stop.
	DecideAccelerate DecisionKind = iota
	// DecideReactToCollision is an emergency brake: an obstacle is inside
	// the front-bumper boundary.
	DecideReactToCollision
	// DecideAvoidCollision brakes to stop within Distance.
	DecideAvoidCollision
	// DecideStopAtTrafficControl brakes for a red light or a yield
	// conflict, stopping within Distance.
	DecideStopAtTrafficControl
	// DecideSlowDown caps speed at half maximum while approaching an
	// uncontested yield.
	DecideSlowDown
	// DecideStopAtParking brakes to stop at the end of a parking spline.
	DecideStopAtParking
	// DecideHoldParked pins a parked car at zero velocity.
	DecideHoldParked
)

func (k DecisionKind) String() string {
	switch k {
	case DecideReactToCollision:
		return "react-to-collision"
	case DecideAvoidCollision:
		return "avoid-collision"
	case DecideStopAtTrafficControl:
		return "stop-at-traffic-control"
	case DecideSlowDown:
		return "slow-down"
	case DecideStopAtParking:
		return "stop-at-parking"
	case DecideHoldParked:
		return "hold-parked"
	default:
		return "accelerate"
	}
}

// Decision is what steering acts on. Distance is the room left to come to
// a stop, meaningful for the braking kinds.
type Decision struct {
	Kind     DecisionKind
	Distance float64
}

const (
	// collisionRayLength is the maximum forward ray cast against other
	// cars' shapes.
	collisionRayLength = 16.0
	// reactDistance is the front-bumper boundary: an intersection closer
	// than this triggers the emergency reaction.
	reactDistance = CarLength/2 + 0.1
	// signalReactDistance is how far out a red or yellow light is obeyed.
	signalReactDistance = 32.0
	// yieldStopDistance and yieldSlowDistance govern the two yield
	// bands: stop when crossing traffic conflicts close in, otherwise
	// approach at half speed.
	yieldStopDistance = 5.0
	yieldSlowDistance = 16.0
	// parkingStopRadius is the deceleration window at the end of a
	// parking spline; inside parkingCreepRadius the car crawls.
	parkingStopRadius  = 10.0
	parkingCreepRadius = 3.0
	// headingAlignment suppresses collision checks between near-parallel
	// cars when the one ahead is already pulling away.
	headingAlignment = 0.15
	// lateralLookahead is how many seconds of another car's travel the
	// field-of-view check projects.
	lateralLookahead = 2.5
)

// round evaluates the steering rules for one car against its neighbors.
// Rules run in strict priority order and the first match wins.
type round struct {
	car    *Car
	others []*Car
	lights map[int]*roadnet.TrafficLight
}

func (r round) run() Decision {
	if d, ok := r.checkForwardCollision(); ok {
		return d
	}
	if d, ok := r.checkParking(); ok {
		return d
	}
	if d, ok := r.checkTrafficControl(); ok {
		return d
	}
	if d, ok := r.checkPathCollision(); ok {
		return d
	}
	return Decision{Kind: DecideAccelerate}
}

// checkForwardCollision casts a ray ahead of the car against neighbor
// shapes. The ray shortens while the car is turning away from its heading,
// so a curving car does not brake for traffic it is steering around.
func (r round) checkForwardCollision() (Decision, bool) {
	car := r.car
	forward := geo.FromAngle(car.Orientation)

	rayLength := collisionRayLength
	if car.Route.HasPath() {
		if _, tangent, ok := car.Route.Path.SampleAhead(collisionRayLength / 2); ok {
			turn := geo.AngleDiff(car.Orientation, tangent.Angle())
			factor := math.Cos(turn)
			if factor < 0.25 {
				factor = 0.25
			}
			rayLength *= factor
		}
	}
	rayEnd := car.Position.Add(forward.Scale(rayLength))

	nearest := math.Inf(1)
	for _, other := range r.others {
		if r.alignedAndFaster(other) {
			continue
		}
		hit, ok := other.Shape().IntersectSegment(car.Position, rayEnd)
		if !ok {
			continue
		}
		if d := car.Position.Distance(hit); d < nearest {
			nearest = d
		}
	}
	if math.IsInf(nearest, 1) {
		return Decision{}, false
	}
	if nearest <= reactDistance {
		return Decision{Kind: DecideReactToCollision}, true
	}
	return Decision{Kind: DecideAvoidCollision, Distance: nearest - reactDistance}, true
}

func (r round) checkParking() (Decision, bool) {
	switch r.car.State {
	case CarParked:
		return Decision{Kind: DecideHoldParked}, true
	case CarParking:
		if r.car.Route.HasPath() {
			rem := r.car.Route.Path.Remaining()
			if rem <= parkingStopRadius {
				return Decision{Kind: DecideStopAtParking, Distance: rem}, true
			}
		}
	}
	return Decision{}, false
}

func (r round) checkTrafficControl() (Decision, bool) {
	car := r.car
	if !car.Route.HasPath() {
		return Decision{}, false
	}
	next, ok := car.Route.Path.NextNode()
	if !ok {
		return Decision{}, false
	}
	dist := car.Route.Path.DistanceToNextNode()

	switch next.Control.Kind {
	case roadnet.SignalControl:
		light, ok := r.lights[next.Control.TrafficLightID]
		if !ok {
			return Decision{}, false
		}
		if light.ShouldStop() && dist <= signalReactDistance {
			return Decision{Kind: DecideStopAtTrafficControl, Distance: stopShort(dist)}, true
		}

	case roadnet.YieldControl:
		if dist > yieldSlowDistance {
			return Decision{}, false
		}
		if r.yieldConflict(next.Control.CheckArea) && dist <= yieldStopDistance {
			return Decision{Kind: DecideStopAtTrafficControl, Distance: stopShort(dist)}, true
		}
		return Decision{Kind: DecideSlowDown}, true
	}
	return Decision{}, false
}

// yieldConflict reports whether any moving neighbor is inside, or about to
// enter, the yield check area.
func (r round) yieldConflict(area geo.Polygon) bool {
	if area.IsEmpty() {
		return false
	}
	for _, other := range r.others {
		if other.IsStationary() {
			continue
		}
		if area.Contains(other.Position) {
			return true
		}
		travel := geo.FromAngle(other.Orientation).Scale(other.Velocity * lateralLookahead)
		if _, ok := area.IntersectSegment(other.Position, other.Position.Add(travel)); ok {
			return true
		}
	}
	return false
}

// checkPathCollision scans a field-of-view wedge to the right-front for
// crossing traffic that would reach the meeting point first.
func (r round) checkPathCollision() (Decision, bool) {
	car := r.car
	forward := geo.FromAngle(car.Orientation)
	right := forward.Perp()

	fov := geo.NewPolygon(
		car.Position,
		car.Position.Add(forward.Scale(collisionRayLength)).Add(right.Scale(2)),
		car.Position.Add(forward.Scale(collisionRayLength*0.6)).Add(right.Scale(collisionRayLength*0.6)),
	)

	for _, other := range r.others {
		if other.IsStationary() {
			continue
		}
		if r.alignedAndFaster(other) {
			continue
		}
		travel := geo.FromAngle(other.Orientation).Scale(other.Velocity * lateralLookahead)
		hit, ok := fov.IntersectSegment(other.Position, other.Position.Add(travel))
		if !ok {
			if !fov.Contains(other.Position) {
				continue
			}
			hit = other.Position
		}
		timeOther := other.Position.Distance(hit) / other.Velocity
		selfSpeed := car.Velocity
		if selfSpeed < 1 {
			selfSpeed = 1
		}
		timeSelf := car.Position.Distance(hit) / selfSpeed
		if timeOther < timeSelf {
			d := car.Position.Distance(hit) - reactDistance
			if d < 0 {
				d = 0
			}
			return Decision{Kind: DecideAvoidCollision, Distance: d}, true
		}
	}
	return Decision{}, false
}

// alignedAndFaster reports whether the other car is nearly parallel, ahead,
// and pulling away. Braking for such a car only causes stutter.
func (r round) alignedAndFaster(other *Car) bool {
	if geo.AngleDiff(r.car.Orientation, other.Orientation) > headingAlignment {
		return false
	}
	ahead := other.Position.Sub(r.car.Position).Dot(geo.FromAngle(r.car.Orientation)) > 0
	return ahead && other.Velocity > r.car.Velocity
}

// stopShort leaves the front bumper clear of the stop line.
func stopShort(dist float64) float64 {
	d := dist - CarLength/2
	if d < 0 {
		return 0
	}
	return d
}
