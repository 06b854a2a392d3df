package sim

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/roadnet"
	"github.com/gridtown/trafficsim/pkg/route"
)

var (
	ErrUnknownLot   = errors.New("unknown lot")
	ErrUnknownCar   = errors.New("unknown car")
	errNoSpawnPoint = errors.New("no spawn point on network")
)

const (
	// firstTripDelaySeconds is how long a freshly spawned resident sits
	// parked before its first trip.
	firstTripMinSeconds = 2.0
	firstTripMaxSeconds = 10.0
	// nextTrip delays a parked resident between trips.
	nextTripMinSeconds = 5.0
	nextTripMaxSeconds = 30.0
	// respawn delays a despawned resident before it reappears at home.
	respawnMinSeconds = 3.0
	respawnMaxSeconds = 10.0
	// patrolHops is how many random lanes a test car strings together.
	patrolHops = 10
)

// SpawnResident materializes a resident car parked in its home lot. The
// spot claim goes through the normal two-phase lock so a spawn cannot race
// an arriving car for the same spot.
func (w *World) SpawnResident(lotID int) (*Car, error) {
	l, ok := w.lots[lotID]
	if !ok {
		return nil, ErrUnknownLot
	}

	id := w.allocCarID()
	car := newCar(id, w.RNG)
	car.HomeLotID = lotID

	spotID, err := l.PrepareParking(id, l.SpotEligibility(car))
	if err != nil {
		l.ReleaseParkingLock(id)
		w.nextCarID-- // nothing was spawned
		return nil, fmt.Errorf("spawn resident in lot %d: %w", lotID, err)
	}
	l.ReserveSpot(spotID, id)
	l.ReleaseParkingLock(id)

	spot, _ := l.Spot(spotID)
	car.State = CarParked
	car.Position = spot.Position
	car.Orientation = l.ParkingSpotExitDirection.Angle()
	car.Reservation = &ParkingReservation{LotID: lotID, SpotID: spotID}
	w.addCar(car)

	w.Schedule(Event{Kind: EventCreateRouteFromParkingSpot, Car: id, LotID: lotID},
		w.randomTicks(firstTripMinSeconds, firstTripMaxSeconds))
	w.log.Debug("resident spawned", "car", id, "lot", lotID, "spot", spotID)
	return car, nil
}

// SpawnTestCar materializes a homeless car at a random road node with a
// patrol route. Test cars never park; they roam until despawned.
func (w *World) SpawnTestCar() (*Car, error) {
	candidates := lo.Filter(w.Graph.Nodes(), func(n roadnet.Connection, _ int) bool {
		return n.Kind == roadnet.LaneConnector || n.Kind == roadnet.DeadendExit
	})
	if len(candidates) == 0 {
		return nil, errNoSpawnPoint
	}
	start := candidates[w.RNG.IntN(len(candidates))]

	r, err := route.RandomFromNode(w.Graph, w.RNG, start, patrolHops)
	if err != nil {
		return nil, fmt.Errorf("spawn test car: %w", err)
	}

	id := w.allocCarID()
	car := newCar(id, w.RNG)
	car.State = CarDriving
	car.Position = start.Position
	car.Orientation = start.Direction.Angle()
	car.Route = r
	w.addCar(car)
	w.log.Debug("test car spawned", "car", id, "node", start.ID)
	return car, nil
}

// createRouteFromParkingSpot gives a parked car its next trip: a spline
// out of the spot onto the lot's exit node, then a network route to a
// destination lot (or a patrol if no other lot exists). The lot lock is
// held from here until the car merges onto the road.
func (w *World) createRouteFromParkingSpot(carID CarID) error {
	car, ok := w.cars[carID]
	if !ok {
		return ErrUnknownCar
	}
	if car.State != CarParked || car.Reservation == nil {
		return nil // stale event, car moved on
	}
	l, ok := w.lots[car.Reservation.LotID]
	if !ok {
		car.ForceDespawn()
		return nil
	}

	if !l.AcquireParkingLock(carID) {
		return ErrLotLocked
	}

	exitNode, ok := w.lotNode(l.ID, roadnet.LotExit)
	if !ok {
		l.ReleaseParkingLock(carID)
		car.ForceDespawn()
		return nil
	}

	dest, ok := w.pickDestination(car, l.ID)
	var r route.Route
	if ok {
		netRoute, err := route.FromStartAndEndNodes(w.Graph, exitNode, dest)
		if err != nil {
			l.ReleaseParkingLock(carID)
			return fmt.Errorf("route from lot %d: %w", l.ID, err)
		}
		r = netRoute
	} else {
		patrol, err := route.RandomFromNode(w.Graph, w.RNG, exitNode, patrolHops)
		if err != nil {
			l.ReleaseParkingLock(carID)
			return fmt.Errorf("patrol from lot %d: %w", l.ID, err)
		}
		r = patrol
	}

	spot, _ := l.Spot(car.Reservation.SpotID)
	car.Route = prependDriveway(r, spot.PathToExit, spot.Position, l.ParkingSpotExitDirection.Angle())
	return nil
}

// pickDestination chooses the entry node of a random lot other than the
// one the car is leaving. Reports false when no other lot exists.
func (w *World) pickDestination(car *Car, leavingLotID int) (roadnet.Connection, bool) {
	others := lo.Filter(w.lotOrder, func(id int, _ int) bool {
		return id != leavingLotID
	})
	if len(others) == 0 {
		return roadnet.Connection{}, false
	}
	lotID := others[w.RNG.IntN(len(others))]
	return w.lotNode(lotID, roadnet.LotEntry)
}

// prependDriveway splices a spot's exit spline in front of a network
// route, so the car drives out of the spot and merges at the route's start
// node without teleporting.
func prependDriveway(r route.Route, driveway geo.Curve, spotPos geo.Point, heading float64) route.Route {
	if r.Path == nil {
		return r
	}
	spotNode := roadnet.Connection{
		ID:       -1,
		Position: spotPos,
		Pair:     -1,
	}
	p := &route.Path{
		Segments: append([]geo.Curve{driveway}, r.Path.Segments...),
		Nodes:    append([]roadnet.Connection{spotNode}, r.Path.Nodes...),
	}
	r.Path = p
	return r
}

// createRouteFromNode gives a driving car whose route ran out a fresh
// patrol from the nearest node.
func (w *World) createRouteFromNode(carID CarID) error {
	car, ok := w.cars[carID]
	if !ok {
		return ErrUnknownCar
	}
	car.routeRequested = false
	if car.State != CarDriving {
		return nil
	}
	start, ok := w.Graph.NodeAt(car.Position)
	if !ok {
		start, ok = w.Graph.NearestNode(car.Position, func(n roadnet.Connection) bool {
			return n.Kind != roadnet.LotEntry && n.Kind != roadnet.LotExit
		})
		if !ok {
			car.ForceDespawn()
			return nil
		}
	}
	r, err := route.RandomFromNode(w.Graph, w.RNG, start, patrolHops)
	if err != nil {
		car.ForceDespawn()
		return nil
	}
	car.Route = r
	return nil
}

// beginCarParking runs the arrival protocol for a car sitting at a lot's
// entry: take the lock, claim a spot, and hand the car its arrival spline.
// Lock contention is returned as an error so the event queue retries.
func (w *World) beginCarParking(carID CarID, lotID int) error {
	car, ok := w.cars[carID]
	if !ok {
		return ErrUnknownCar
	}
	if car.State != CarWaitingForParkingSpot {
		return nil
	}
	l, ok := w.lots[lotID]
	if !ok {
		car.ForceDespawn()
		return nil
	}

	spotID, err := l.PrepareParking(carID, l.SpotEligibility(car))
	if err != nil {
		if errors.Is(err, ErrNoFreeSpot) {
			l.ReleaseParkingLock(carID)
		}
		return fmt.Errorf("park in lot %d: %w", lotID, err)
	}
	l.ReserveSpot(spotID, carID)
	car.Reservation = &ParkingReservation{LotID: lotID, SpotID: spotID}

	entryNode, ok := w.lotNode(lotID, roadnet.LotEntry)
	if !ok {
		l.UnreserveSpot(spotID)
		l.ReleaseParkingLock(carID)
		car.Reservation = nil
		car.ForceDespawn()
		return nil
	}
	spot, _ := l.Spot(spotID)
	spotNode := roadnet.Connection{ID: -1, Position: spot.Position, Pair: -1}
	p := &route.Path{
		Segments: []geo.Curve{spot.PathFromEntry},
		Nodes:    []roadnet.Connection{entryNode, spotNode},
	}
	car.Route = route.NewArriving(route.ArriveAtLot, p)
	return nil
}
