package sim

import (
	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/roadnet"
	"github.com/gridtown/trafficsim/pkg/route"
)

// CarState is the car lifecycle state machine.
type CarState int

const (
	CarParked CarState = iota
	CarUnparking
	CarDriving
	CarWaitingForParkingSpot
	CarParking
	CarDespawning
	CarInactive
)

func (s CarState) String() string {
	switch s {
	case CarParked:
		return "parked"
	case CarUnparking:
		return "unparking"
	case CarDriving:
		return "driving"
	case CarWaitingForParkingSpot:
		return "waiting-for-parking-spot"
	case CarParking:
		return "parking"
	case CarDespawning:
		return "despawning"
	case CarInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// CarEvent is emitted by a state transition and consumed by the event
// layer to drive lot locking and respawn scheduling.
type CarEvent int

const (
	NoCarEvent CarEvent = iota
	ParkingComplete
	UnparkingComplete
	DespawnComplete
)

func (e CarEvent) String() string {
	switch e {
	case ParkingComplete:
		return "parking-complete"
	case UnparkingComplete:
		return "unparking-complete"
	case DespawnComplete:
		return "despawn-complete"
	default:
		return "none"
	}
}

// unparkingArrivalRadius is how close a car must get to its route's start
// node before it counts as merged onto the road.
const unparkingArrivalRadius = 4.5

// stationaryVelocity is the speed below which a car counts as stopped.
const stationaryVelocity = 0.05

// fsmContext is everything a transition guard may look at. Guards are pure
// so they can be tested without a world.
type fsmContext struct {
	route    route.Route
	position geo.Point
	velocity float64
	despawn  bool
}

// nextCarState evaluates the guarded transitions for a state in priority
// order and returns the first that fires. A forced despawn interrupts any
// state except the terminal ones.
func nextCarState(s CarState, ctx fsmContext) (CarState, bool) {
	if ctx.despawn && s != CarDespawning && s != CarInactive {
		return CarDespawning, true
	}

	switch s {
	case CarParked:
		if ctx.route.HasPath() {
			return CarUnparking, true
		}

	case CarUnparking:
		if ctx.route.Kind == route.KindUnrouted {
			return CarDespawning, true
		}
		if ctx.route.HasPath() &&
			ctx.position.Distance(ctx.route.Start.Position) <= unparkingArrivalRadius {
			return CarDriving, true
		}

	case CarDriving:
		// Reaching a lot driveway wins over the despawn fallback: a car
		// with a destination keeps pursuing it.
		if ctx.route.Kind == route.KindRouted && ctx.route.Path != nil &&
			ctx.route.Path.Finished && routeEndsAtLot(ctx.route) {
			return CarWaitingForParkingSpot, true
		}
		if ctx.route.Kind == route.KindUnrouted {
			return CarDespawning, true
		}

	case CarWaitingForParkingSpot:
		if ctx.route.IsArriving() {
			return CarParking, true
		}
		if ctx.route.Kind == route.KindUnrouted {
			return CarDespawning, true
		}

	case CarParking:
		if ctx.route.IsWaitingForRoute() {
			return CarParked, true
		}

	case CarDespawning:
		if ctx.route.Kind == route.KindUnrouted || ctx.velocity < stationaryVelocity {
			return CarInactive, true
		}

	case CarInactive:
		// Re-entry happens through spawn logic, not tick evaluation.
	}
	return s, false
}

func routeEndsAtLot(r route.Route) bool {
	return r.End.Kind == roadnet.LotEntry
}

// transitionEvents returns the events a completed transition emits.
func transitionEvents(from, to CarState) CarEvent {
	switch {
	case to == CarParked && from == CarParking:
		return ParkingComplete
	case to == CarDriving && from == CarUnparking:
		return UnparkingComplete
	case to == CarInactive:
		return DespawnComplete
	default:
		return NoCarEvent
	}
}
