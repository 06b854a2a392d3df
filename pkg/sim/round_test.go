package sim

import (
	"testing"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/roadnet"
	"github.com/gridtown/trafficsim/pkg/route"
)

// carAhead places a stopped car so the forward ray hits its tail edge at
// exactly the given distance from the subject car's center.
func carAhead(hitDistance float64) *Car {
	return &Car{
		ID:          2,
		State:       CarDriving,
		Position:    geo.Pt(hitDistance+CarLength/2, 0),
		Orientation: 0,
	}
}

func drivingCar() *Car {
	return &Car{
		ID:          1,
		State:       CarDriving,
		Position:    geo.Pt(0, 0),
		Orientation: 0,
		Velocity:    8,
	}
}

func TestForwardCollisionReactBoundary(t *testing.T) {
	car := drivingCar()

	// Exactly at the front-bumper boundary: emergency reaction.
	r := round{car: car, others: []*Car{carAhead(reactDistance)}}
	if d := r.run(); d.Kind != DecideReactToCollision {
		t.Errorf("hit at boundary: got %v, want react-to-collision", d.Kind)
	}

	// A hair past the boundary: controlled braking instead.
	r = round{car: car, others: []*Car{carAhead(reactDistance + 0.01)}}
	d := r.run()
	if d.Kind != DecideAvoidCollision {
		t.Errorf("hit past boundary: got %v, want avoid-collision", d.Kind)
	}
	if d.Distance <= 0 || d.Distance > 0.02 {
		t.Errorf("stopping room = %f, want just past zero", d.Distance)
	}
}

func TestForwardCollisionIgnoresClearRoad(t *testing.T) {
	car := drivingCar()
	r := round{car: car, others: []*Car{carAhead(collisionRayLength + CarLength)}}
	if d := r.run(); d.Kind != DecideAccelerate {
		t.Errorf("car beyond ray length: got %v, want accelerate", d.Kind)
	}
}

func TestForwardCollisionSuppressedForAlignedFasterCar(t *testing.T) {
	car := drivingCar()
	ahead := carAhead(8)
	ahead.Velocity = car.Velocity + 3

	r := round{car: car, others: []*Car{ahead}}
	if d := r.run(); d.Kind != DecideAccelerate {
		t.Errorf("car pulling away ahead: got %v, want accelerate", d.Kind)
	}

	// Same geometry but the car ahead is stopped: the check applies.
	ahead.Velocity = 0
	if d := r.run(); d.Kind == DecideAccelerate {
		t.Error("stopped car ahead must not be suppressed")
	}
}

func TestParkedCarHoldsStill(t *testing.T) {
	car := drivingCar()
	car.State = CarParked
	r := round{car: car}
	if d := r.run(); d.Kind != DecideHoldParked {
		t.Errorf("parked car decision = %v, want hold-parked", d.Kind)
	}
}

func TestParkingCarStopsAtSplineEnd(t *testing.T) {
	car := drivingCar()
	car.State = CarParking
	car.Route = route.NewArriving(route.ArriveAtLot, &route.Path{
		Segments: []geo.Curve{geo.NewLine(geo.Pt(0, 0), geo.Pt(8, 0))},
	})

	r := round{car: car}
	d := r.run()
	if d.Kind != DecideStopAtParking {
		t.Fatalf("parking car decision = %v, want stop-at-parking", d.Kind)
	}
	if d.Distance < 7.9 || d.Distance > 8.1 {
		t.Errorf("stop distance = %f, want remaining spline length", d.Distance)
	}
}

func TestRedSignalStopsApproachingCar(t *testing.T) {
	light := roadnet.NewTrafficLight(1, geo.Pt(20, 0), grid.Up) // vertical facing starts red
	if !light.ShouldStop() {
		t.Fatal("vertical-facing light should start red")
	}

	signalNode := roadnet.Connection{
		ID:       5,
		Position: geo.Pt(20, 0),
		Control:  roadnet.TrafficControl{Kind: roadnet.SignalControl, TrafficLightID: 1},
	}
	car := drivingCar()
	car.Route = route.Route{
		Kind: route.KindRouted,
		Path: &route.Path{
			Segments: []geo.Curve{geo.NewLine(geo.Pt(0, 0), geo.Pt(20, 0))},
			Nodes:    []roadnet.Connection{{ID: 4}, signalNode},
		},
	}

	r := round{car: car, lights: map[int]*roadnet.TrafficLight{1: light}}
	d := r.run()
	if d.Kind != DecideStopAtTrafficControl {
		t.Fatalf("red light ahead: got %v, want stop-at-traffic-control", d.Kind)
	}
	if d.Distance >= 20 {
		t.Errorf("stop distance %f should leave the bumper short of the node", d.Distance)
	}

	// A green light in the horizontal axis lets the same approach pass.
	green := roadnet.NewTrafficLight(1, geo.Pt(20, 0), grid.Right)
	r = round{car: car, lights: map[int]*roadnet.TrafficLight{1: green}}
	if d := r.run(); d.Kind != DecideAccelerate {
		t.Errorf("green light ahead: got %v, want accelerate", d.Kind)
	}
}

func TestYieldSlowsWithoutConflict(t *testing.T) {
	yieldNode := roadnet.Connection{
		ID:       5,
		Position: geo.Pt(10, 0),
		Control: roadnet.TrafficControl{
			Kind:      roadnet.YieldControl,
			CheckArea: geo.NewPolygon(geo.Pt(10, 0), geo.Pt(40, -16), geo.Pt(40, 16)),
		},
	}
	car := drivingCar()
	car.Route = route.Route{
		Kind: route.KindRouted,
		Path: &route.Path{
			Segments: []geo.Curve{geo.NewLine(geo.Pt(0, 0), geo.Pt(10, 0))},
			Nodes:    []roadnet.Connection{{ID: 4}, yieldNode},
		},
	}

	r := round{car: car}
	if d := r.run(); d.Kind != DecideSlowDown {
		t.Errorf("uncontested yield: got %v, want slow-down", d.Kind)
	}

	// Crossing traffic inside the check area close to the node: stop.
	car.Route.Path.Advance(6) // 4m from the node
	crossing := &Car{
		ID:          3,
		State:       CarDriving,
		Position:    geo.Pt(25, -4),
		Orientation: grid.Down.Angle(),
		Velocity:    8,
	}
	r = round{car: car, others: []*Car{crossing}}
	if d := r.run(); d.Kind != DecideStopAtTrafficControl {
		t.Errorf("contested yield: got %v, want stop-at-traffic-control", d.Kind)
	}
}

func TestLateralCrossingTrafficBrakes(t *testing.T) {
	car := drivingCar()
	car.Velocity = 2

	// A fast car crossing from the right-front, heading up-screen toward
	// the subject's path.
	crossing := &Car{
		ID:          3,
		State:       CarDriving,
		Position:    geo.Pt(9, 8),
		Orientation: grid.Up.Angle(),
		Velocity:    10,
	}
	r := round{car: car, others: []*Car{crossing}}
	if d := r.run(); d.Kind != DecideAvoidCollision {
		t.Errorf("crossing traffic reaching first: got %v, want avoid-collision", d.Kind)
	}

	// Same car but stationary: no projected conflict.
	crossing.Velocity = 0
	crossing.Position = geo.Pt(9, 14) // outside the forward ray
	if d := r.run(); d.Kind != DecideAccelerate {
		t.Errorf("stationary distant car triggered %v, want accelerate", d.Kind)
	}
}
