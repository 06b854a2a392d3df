package sim

import (
	"math/rand/v2"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/route"
)

// CarID identifies a car in the world. Lots and events hold ids, never
// pointers, so nothing owns a car but the world.
type CarID int

// NoCar is the absent car id.
const NoCar CarID = -1

// NoLot marks a car with no home lot.
const NoLot = -1

const (
	// CarLength and CarWidth define a car's collision rectangle in
	// meters.
	CarLength = 4.6
	CarWidth  = 2.3
)

var carMakes = []string{
	"sedan-red", "sedan-blue", "hatch-green", "hatch-yellow",
	"wagon-white", "van-gray", "pickup-brown", "coupe-black",
}

// Car is a simulated vehicle. Kinematic fields are in world meters,
// radians, and seconds.
type Car struct {
	ID           CarID
	Make         string
	State        CarState
	Position     geo.Point
	Orientation  float64
	Velocity     float64
	Rotation     float64
	Acceleration float64
	Route        route.Route
	HomeLotID    int
	Reservation  *ParkingReservation

	despawnRequested bool
	routeRequested   bool
}

func newCar(id CarID, rng *rand.Rand) *Car {
	return &Car{
		ID:        id,
		Make:      carMakes[rng.IntN(len(carMakes))],
		State:     CarInactive,
		Route:     route.Unrouted(),
		HomeLotID: NoLot,
	}
}

// Shape returns the car's collision rectangle at its current pose.
func (c *Car) Shape() geo.Polygon {
	return geo.OrientedRect(c.Position, CarLength, CarWidth, c.Orientation)
}

// IsActive reports whether the car participates in the tick loop.
func (c *Car) IsActive() bool {
	return c.State != CarInactive
}

// IsStationary reports whether the car counts as stopped.
func (c *Car) IsStationary() bool {
	return c.Velocity < stationaryVelocity
}

// IsResident reports whether the car has a home lot to respawn from.
func (c *Car) IsResident() bool {
	return c.HomeLotID != NoLot
}

// ForceDespawn interrupts whatever the car is doing. This is the only
// preemption mechanism: the route is dropped and the FSM falls through to
// Despawning on the next evaluation.
func (c *Car) ForceDespawn() {
	c.despawnRequested = true
	c.Route = route.Unrouted()
}

func (c *Car) fsmContext() fsmContext {
	return fsmContext{
		route:    c.Route,
		position: c.Position,
		velocity: c.Velocity,
		despawn:  c.despawnRequested,
	}
}
