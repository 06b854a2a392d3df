package sim

import (
	"github.com/gridtown/trafficsim/pkg/roadnet"
	"github.com/gridtown/trafficsim/pkg/route"
)

// retryDelaySeconds spaces out re-attempts of failed events. Non-zero so a
// contended lock never busy-loops the queue.
const retryDelaySeconds = 0.5

// Step advances the world one tick: lights, then per-car rules, steering,
// kinematics and FSM in stable insertion order, then the due events. A car
// processed earlier in a tick sees the world as mutated by the cars before
// it; that ordering is part of the deterministic contract.
func (w *World) Step() {
	w.Tick++

	for _, tl := range w.Lights {
		tl.Advance(w.Dt)
	}

	cars := w.Cars()
	w.index.rebuild(cars)

	for _, car := range cars {
		if !car.IsActive() {
			continue
		}
		w.stepCar(car)
	}

	w.drainEvents()
}

func (w *World) stepCar(car *Car) {
	neighborIDs := w.index.nearby(car.Position, neighborRadius, car.ID, w.Car)
	others := make([]*Car, 0, len(neighborIDs))
	for _, id := range neighborIDs {
		if o, ok := w.cars[id]; ok && o.IsActive() {
			others = append(others, o)
		}
	}

	decision := round{car: car, others: others, lights: w.lightsByID}.run()
	accel := accelerationFor(decision, car)
	integrate(car, accel, w.Dt)

	prev := car.State
	next, changed := nextCarState(prev, car.fsmContext())
	if changed {
		car.State = next
		if next == CarDespawning {
			car.despawnRequested = false
		}
		if ev := transitionEvents(prev, next); ev != NoCarEvent {
			w.Schedule(Event{Kind: EventCarStateChange, Car: car.ID, CarEvent: ev}, 0)
		}
	}

	w.afterCarStep(car)
}

// afterCarStep issues the follow-up events a car's situation calls for:
// the parking protocol when it reaches a lot driveway, or a fresh patrol
// when a roaming car runs out of route.
func (w *World) afterCarStep(car *Car) {
	if car.routeRequested {
		return
	}
	switch car.State {
	case CarWaitingForParkingSpot:
		if car.Route.Kind == route.KindRouted && car.Route.End.Kind == roadnet.LotEntry {
			car.routeRequested = true
			w.Schedule(Event{
				Kind:  EventBeginCarParking,
				Car:   car.ID,
				LotID: car.Route.End.LotID,
			}, 0)
		}
	case CarDriving:
		if car.Route.Kind == route.KindRouted && car.Route.Path != nil &&
			car.Route.Path.Finished && !routeEndsAtLot(car.Route) {
			car.routeRequested = true
			w.Schedule(Event{Kind: EventCreateRouteFromNode, Car: car.ID}, 0)
		}
	}
}

// drainEvents pops every event due this tick and dispatches it. A handler
// error re-enqueues the event with a delay; once the retry budget is spent
// the event is abandoned and its car, if any, is despawned.
func (w *World) drainEvents() {
	for {
		e, ok := w.Events.PopDue(w.Tick)
		if !ok {
			return
		}
		if err := w.dispatch(e); err != nil {
			if !w.Events.Retry(e, w.Tick, w.secondsToTicks(retryDelaySeconds)) {
				w.abandonEvent(e, err)
			}
		}
	}
}

func (w *World) dispatch(e Event) error {
	switch e.Kind {
	case EventSpawnResident:
		_, err := w.SpawnResident(e.LotID)
		return err
	case EventSpawnTestCar:
		_, err := w.SpawnTestCar()
		return err
	case EventCreateRouteFromParkingSpot:
		return w.createRouteFromParkingSpot(e.Car)
	case EventCreateRouteFromNode:
		return w.createRouteFromNode(e.Car)
	case EventBeginCarParking:
		return w.beginCarParking(e.Car, e.LotID)
	case EventCarStateChange:
		return w.handleCarStateChange(e)
	case EventRerouteCars:
		w.revalidateRoutes()
		return nil
	default:
		return nil
	}
}

func (w *World) abandonEvent(e Event, err error) {
	w.log.Warn("event abandoned", "kind", e.Kind, "car", e.Car, "lot", e.LotID, "err", err)
	switch e.Kind {
	case EventBeginCarParking, EventCreateRouteFromParkingSpot, EventCreateRouteFromNode:
		if car, ok := w.cars[e.Car]; ok {
			car.routeRequested = false
			car.ForceDespawn()
		}
	}
}

// handleCarStateChange is the side-effect half of the car FSM: lock and
// reservation bookkeeping plus the scheduling that keeps the population
// alive.
func (w *World) handleCarStateChange(e Event) error {
	car, ok := w.cars[e.Car]
	if !ok {
		return nil
	}

	switch e.CarEvent {
	case ParkingComplete:
		car.routeRequested = false
		if car.Reservation != nil {
			if l, ok := w.lots[car.Reservation.LotID]; ok {
				l.ReleaseParkingLock(car.ID)
			}
		}
		// Schedule the next trip out of this spot.
		if car.Reservation != nil {
			w.Schedule(Event{
				Kind:  EventCreateRouteFromParkingSpot,
				Car:   car.ID,
				LotID: car.Reservation.LotID,
			}, w.randomTicks(nextTripMinSeconds, nextTripMaxSeconds))
		}

	case UnparkingComplete:
		if car.Reservation != nil {
			if l, ok := w.lots[car.Reservation.LotID]; ok {
				l.UnreserveSpot(car.Reservation.SpotID)
				l.ReleaseParkingLock(car.ID)
			}
			car.Reservation = nil
		}

	case DespawnComplete:
		w.releaseCarClaims(car)
		resident := car.IsResident()
		homeLot := car.HomeLotID
		w.removeCar(car.ID)
		w.log.Debug("car despawned", "car", car.ID)
		if resident {
			w.Schedule(Event{Kind: EventSpawnResident, LotID: homeLot},
				w.randomTicks(respawnMinSeconds, respawnMaxSeconds))
		}
	}
	return nil
}

// releaseCarClaims drops everything a car may still hold. Safe on a car
// that holds nothing.
func (w *World) releaseCarClaims(car *Car) {
	if car.Reservation == nil {
		return
	}
	if l, ok := w.lots[car.Reservation.LotID]; ok {
		l.UnreserveSpot(car.Reservation.SpotID)
		l.ReleaseParkingLock(car.ID)
	}
	car.Reservation = nil
}
