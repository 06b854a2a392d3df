package sim

import (
	"errors"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/report"
	"github.com/gridtown/trafficsim/pkg/roadnet"
	"github.com/gridtown/trafficsim/pkg/route"
)

// DefaultTickRate is ticks per second when the caller does not choose one.
const DefaultTickRate = 60

var ErrInvalidAnchor = errors.New("anchor cell cannot host a lot")

// World owns every simulation entity: the tilemap, the road network, the
// lights, lots, cars and the event queue. It is single-threaded; all
// mutation happens inside Step or through the explicit edit methods, never
// concurrently.
type World struct {
	Tilemap *grid.Tilemap
	Graph   *roadnet.Graph
	Lights  []*roadnet.TrafficLight
	Events  *EventQueue
	RNG     *rand.Rand
	Report  *report.Report
	Tick    int64
	Dt      float64

	cars     map[CarID]*Car
	carOrder []CarID
	lots     map[int]*Lot
	lotOrder []int

	lightsByID map[int]*roadnet.TrafficLight
	index      *spatialIndex
	nextCarID  CarID
	nextLotID  int
	log        *log.Logger
}

// NewWorld builds a world over the tilemap with a seeded deterministic
// generator. All randomness in the simulation flows through this one
// generator, so a seed pair replays bit-identically.
func NewWorld(tm *grid.Tilemap, seed1, seed2 uint64, logger *log.Logger) *World {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	w := &World{
		Tilemap:    tm,
		Events:     NewEventQueue(),
		RNG:        rand.New(rand.NewPCG(seed1, seed2)),
		Dt:         1.0 / DefaultTickRate,
		cars:       make(map[CarID]*Car),
		lots:       make(map[int]*Lot),
		lightsByID: make(map[int]*roadnet.TrafficLight),
		index:      newSpatialIndex(),
		nextLotID:  1,
		log:        logger,
	}
	w.RebuildNetwork()
	return w
}

// Car resolves a car id.
func (w *World) Car(id CarID) (*Car, bool) {
	c, ok := w.cars[id]
	return c, ok
}

// Cars returns all cars in stable insertion order. Tick processing
// iterates this order, which is itself part of the deterministic contract.
func (w *World) Cars() []*Car {
	out := make([]*Car, 0, len(w.carOrder))
	for _, id := range w.carOrder {
		out = append(out, w.cars[id])
	}
	return out
}

// Lot resolves a lot id.
func (w *World) Lot(id int) (*Lot, bool) {
	l, ok := w.lots[id]
	return l, ok
}

// Lots returns all lots in creation order.
func (w *World) Lots() []*Lot {
	out := make([]*Lot, 0, len(w.lotOrder))
	for _, id := range w.lotOrder {
		out = append(out, w.lots[id])
	}
	return out
}

func (w *World) addCar(c *Car) {
	w.cars[c.ID] = c
	w.carOrder = append(w.carOrder, c.ID)
}

func (w *World) removeCar(id CarID) {
	if _, ok := w.cars[id]; !ok {
		return
	}
	delete(w.cars, id)
	for i, cid := range w.carOrder {
		if cid == id {
			w.carOrder = append(w.carOrder[:i], w.carOrder[i+1:]...)
			break
		}
	}
}

func (w *World) allocCarID() CarID {
	id := w.nextCarID
	w.nextCarID++
	return id
}

// AddLot zones a new lot behind the anchor cell. The anchor must be a
// plain road tile with enough empty ground behind it; the road network is
// rebuilt so the driveway connections appear immediately.
func (w *World) AddLot(anchor grid.Cell, exitDir grid.Direction, residentSpots, openSpots int) (*Lot, error) {
	id := w.nextLotID
	l := NewLot(id, anchor, exitDir, residentSpots, openSpots)
	if !w.Tilemap.ValidateAnchor(l.Area, anchor) {
		return nil, ErrInvalidAnchor
	}
	w.nextLotID++
	w.Tilemap.SetAnchor(anchor, grid.Anchor{LotID: id, ExitDirection: exitDir})
	w.lots[id] = l
	w.lotOrder = append(w.lotOrder, id)
	w.RebuildNetwork()
	w.log.Debug("lot added", "lot", id, "anchor", anchor, "spots", len(l.Spots))
	return l, nil
}

// RebuildNetwork rebuilds the road graph from the tilemap, preserving
// traffic light identity, then reconciles lots and in-flight routes with
// the new graph. Lots whose anchor road disappeared, or whose ground now
// has a road through it, are deleted. Cars whose route cannot be
// re-resolved are forced to despawn.
func (w *World) RebuildNetwork() {
	res := roadnet.Build(w.Tilemap, w.Lights)
	w.Graph = res.Graph
	w.Lights = res.Lights
	w.Report = res.Report

	clear(w.lightsByID)
	for _, tl := range w.Lights {
		w.lightsByID[tl.ID] = tl
	}

	if w.reconcileLots() {
		// A lot died with its anchor: rebuild once more so the graph
		// drops the orphaned driveway connections.
		res = roadnet.Build(w.Tilemap, w.Lights)
		w.Graph = res.Graph
		w.Lights = res.Lights
		w.Report = res.Report
		clear(w.lightsByID)
		for _, tl := range w.Lights {
			w.lightsByID[tl.ID] = tl
		}
	}
	w.revalidateRoutes()
}

// reconcileLots reports whether any lot was deleted.
func (w *World) reconcileLots() bool {
	deleted := false
	for _, id := range append([]int(nil), w.lotOrder...) {
		l := w.lots[id]
		if w.lotStillValid(l) && w.connectLot(l) {
			continue
		}
		w.deleteLot(l)
		deleted = true
	}
	return deleted
}

func (w *World) lotStillValid(l *Lot) bool {
	a, ok := w.Tilemap.AnchorAt(l.Anchor)
	if !ok || a.LotID != l.ID {
		return false
	}
	if !w.Tilemap.TileAt(l.Anchor).IsRoad() {
		return false
	}
	for _, c := range l.Area {
		if w.Tilemap.TileAt(c).Kind != grid.TileEmpty {
			return false
		}
	}
	return true
}

// connectLot re-resolves the lot's driveway endpoints against the freshly
// built graph and rebuilds the spot splines.
func (w *World) connectLot(l *Lot) bool {
	entry, entryOK := w.lotNode(l.ID, roadnet.LotEntry)
	exit, exitOK := w.lotNode(l.ID, roadnet.LotExit)
	if !entryOK || !exitOK {
		return false
	}
	l.connect(entry.Position, exit.Position)
	return true
}

func (w *World) lotNode(lotID int, kind roadnet.ConnectionKind) (roadnet.Connection, bool) {
	for _, n := range w.Graph.Nodes() {
		if n.Kind == kind && n.LotID == lotID {
			return n, true
		}
	}
	return roadnet.Connection{}, false
}

func (w *World) deleteLot(l *Lot) {
	w.Tilemap.RemoveAnchor(l.Anchor)
	delete(w.lots, l.ID)
	for i, id := range w.lotOrder {
		if id == l.ID {
			w.lotOrder = append(w.lotOrder[:i], w.lotOrder[i+1:]...)
			break
		}
	}
	// Cars bound to the lot lose their claim and their home.
	for _, id := range w.carOrder {
		c := w.cars[id]
		if c.Reservation != nil && c.Reservation.LotID == l.ID {
			c.Reservation = nil
			c.ForceDespawn()
		}
		if c.HomeLotID == l.ID {
			c.HomeLotID = NoLot
		}
	}
	w.log.Debug("lot deleted", "lot", l.ID, "anchor", l.Anchor)
}

// revalidateRoutes re-resolves every in-flight route against the new
// graph. A route that cannot be preserved forces its car to despawn; no
// car ever drives a stale spline.
func (w *World) revalidateRoutes() {
	if w.Graph == nil {
		return
	}
	for _, id := range w.carOrder {
		c := w.cars[id]
		if c.Route.Kind != route.KindRouted || !c.Route.HasPath() {
			continue
		}
		r, err := route.Reroute(w.Graph, c.Route)
		if err != nil {
			w.log.Debug("route lost after rebuild", "car", c.ID, "err", err)
			c.ForceDespawn()
			continue
		}
		c.Route = r
	}
}

// SetRoad places a road tile and rebuilds the network.
func (w *World) SetRoad(c grid.Cell) {
	w.Tilemap.SetRoad(c)
	w.RebuildNetwork()
}

// RemoveTile removes a tile and rebuilds the network.
func (w *World) RemoveTile(c grid.Cell) {
	w.Tilemap.Remove(c)
	w.RebuildNetwork()
}

// Schedule enqueues an event for the given number of ticks in the future.
func (w *World) Schedule(e Event, delay int64) {
	e.TriggerAt = w.Tick + delay
	w.Events.Push(e)
}

// secondsToTicks converts a duration to whole ticks, at least one.
func (w *World) secondsToTicks(s float64) int64 {
	t := int64(s / w.Dt)
	if t < 1 {
		t = 1
	}
	return t
}

// randomTicks returns a uniformly random tick count in [min, max] seconds.
func (w *World) randomTicks(minSeconds, maxSeconds float64) int64 {
	lo := w.secondsToTicks(minSeconds)
	hi := w.secondsToTicks(maxSeconds)
	if hi <= lo {
		return lo
	}
	return lo + w.RNG.Int64N(hi-lo+1)
}
