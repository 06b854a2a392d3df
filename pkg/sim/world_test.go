package sim

import (
	"testing"

	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/roadnet"
	"github.com/gridtown/trafficsim/pkg/route"
)

// twoLotWorld builds a cross-shaped road with a lot on each horizontal
// arm, both opening onto the eastbound lane.
func twoLotWorld(t *testing.T, seed1, seed2 uint64) (*World, *Lot, *Lot) {
	t.Helper()
	tm := grid.NewTilemap(12, 12)
	for col := 1; col <= 9; col++ {
		tm.SetRoad(grid.C(col, 5))
	}
	for row := 1; row <= 9; row++ {
		tm.SetRoad(grid.C(5, row))
	}
	w := NewWorld(tm, seed1, seed2, nil)

	a, err := w.AddLot(grid.C(3, 5), grid.Up, 1, 1)
	if err != nil {
		t.Fatalf("add lot A: %v", err)
	}
	b, err := w.AddLot(grid.C(7, 5), grid.Up, 1, 1)
	if err != nil {
		t.Fatalf("add lot B: %v", err)
	}
	return w, a, b
}

func TestAddLotRejectsInvalidAnchor(t *testing.T) {
	tm := grid.NewTilemap(12, 12)
	for col := 1; col <= 5; col++ {
		tm.SetRoad(grid.C(col, 5))
	}
	w := NewWorld(tm, 1, 1, nil)

	// Deadend anchor.
	if _, err := w.AddLot(grid.C(1, 5), grid.Up, 1, 0); err == nil {
		t.Error("deadend anchor accepted")
	}
	// Not a road at all.
	if _, err := w.AddLot(grid.C(3, 8), grid.Up, 1, 0); err == nil {
		t.Error("empty anchor cell accepted")
	}
	// Valid anchor, then a second lot on the same cell.
	if _, err := w.AddLot(grid.C(3, 5), grid.Up, 1, 0); err != nil {
		t.Fatalf("valid anchor rejected: %v", err)
	}
	if _, err := w.AddLot(grid.C(3, 5), grid.Up, 1, 0); err == nil {
		t.Error("double anchor accepted")
	}
}

func TestLotConnectedToNetwork(t *testing.T) {
	w, a, _ := twoLotWorld(t, 1, 2)

	entry, ok := w.lotNode(a.ID, roadnet.LotEntry)
	if !ok {
		t.Fatal("lot has no entry connection")
	}
	if entry.Position != a.EntryPosition {
		t.Errorf("lot entry position %v does not match graph node %v", a.EntryPosition, entry.Position)
	}
	for _, s := range a.Spots {
		if s.PathFromEntry.Length() <= 0 || s.PathToExit.Length() <= 0 {
			t.Errorf("spot %d has a degenerate driveway spline", s.ID)
		}
	}
}

func TestRemovingAnchorRoadDeletesLot(t *testing.T) {
	w, a, b := twoLotWorld(t, 3, 4)

	w.RemoveTile(a.Anchor)

	if _, ok := w.Lot(a.ID); ok {
		t.Error("lot should be deleted when its anchor road is removed")
	}
	if _, ok := w.Lot(b.ID); !ok {
		t.Error("unrelated lot should survive the rebuild")
	}
	if _, ok := w.Tilemap.AnchorAt(a.Anchor); ok {
		t.Error("stale anchor metadata left behind")
	}
}

func TestRoadThroughLotGroundDeletesLot(t *testing.T) {
	w, a, _ := twoLotWorld(t, 3, 4)

	// Pave over the lot's ground.
	w.SetRoad(a.Area[0])

	if _, ok := w.Lot(a.ID); ok {
		t.Error("lot should be deleted when a road overlaps its ground")
	}
}

func TestSpawnResidentParksInOwnLot(t *testing.T) {
	w, a, _ := twoLotWorld(t, 5, 6)

	car, err := w.SpawnResident(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if car.State != CarParked {
		t.Errorf("spawned resident state = %v, want parked", car.State)
	}
	if car.Reservation == nil || car.Reservation.LotID != a.ID {
		t.Fatal("resident has no reservation in its home lot")
	}
	spot, _ := a.Spot(car.Reservation.SpotID)
	if spot.Restriction != ResidentOnly {
		t.Error("resident should claim the resident-only spot first")
	}
	if spot.ReservedBy != car.ID {
		t.Error("spot not reserved by the spawned car")
	}
	if _, held := a.LockHolder(); held {
		t.Error("spawn must not leave the parking lock held")
	}
}

func TestParkingLockContentionRetries(t *testing.T) {
	w, _, b := twoLotWorld(t, 7, 8)

	// Another car holds lot B's lock.
	blocker := CarID(999)
	if !b.AcquireParkingLock(blocker) {
		t.Fatal("setup: lock not acquired")
	}

	entry, ok := w.lotNode(b.ID, roadnet.LotEntry)
	if !ok {
		t.Fatal("setup: lot B has no entry node")
	}
	car := newCar(w.allocCarID(), w.RNG)
	car.State = CarWaitingForParkingSpot
	car.Position = entry.Position
	car.Route = route.Route{
		Kind: route.KindRouted,
		End:  entry,
		Path: &route.Path{Finished: true},
	}
	w.addCar(car)

	w.Step() // issues BeginCarParking, which fails on the held lock
	if car.Reservation != nil {
		t.Fatal("car claimed a spot while the lock was held")
	}

	b.ReleaseParkingLock(blocker)

	// One retry cycle later the claim must succeed.
	retryTicks := w.secondsToTicks(retryDelaySeconds)
	for i := int64(0); i <= retryTicks; i++ {
		w.Step()
	}
	if car.Reservation == nil {
		t.Fatal("retried parking claim did not succeed after the lock freed")
	}
	if holder, ok := b.LockHolder(); !ok || holder != car.ID {
		t.Errorf("lock holder = %v, want the parking car", holder)
	}
	if !car.Route.IsArriving() {
		t.Error("car should be on its arrival spline")
	}
}

func TestResidentLifecycle(t *testing.T) {
	w, a, _ := twoLotWorld(t, 11, 13)
	car, err := w.SpawnResident(a.ID)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[CarState]bool{car.State: true}
	const maxTicks = 60 * DefaultTickRate
	for i := 0; i < maxTicks; i++ {
		w.Step()
		if c, ok := w.Car(car.ID); ok {
			seen[c.State] = true
			if seen[CarParking] && c.State == CarParked {
				break
			}
		}
	}

	for _, want := range []CarState{CarUnparking, CarDriving, CarWaitingForParkingSpot, CarParking, CarParked} {
		if !seen[want] {
			t.Errorf("lifecycle never reached %v (saw %v)", want, seen)
		}
	}
}

func TestRebuildRevalidatesRoutes(t *testing.T) {
	w, a, b := twoLotWorld(t, 17, 19)
	car, err := w.SpawnResident(a.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Drive until the car is on the road.
	const maxTicks = 30 * DefaultTickRate
	for i := 0; i < maxTicks && car.State != CarDriving; i++ {
		w.Step()
	}
	if car.State != CarDriving {
		t.Fatalf("car never started driving, state %v", car.State)
	}

	// An edit far from the car's path keeps the route alive.
	w.SetRoad(grid.C(5, 10))
	if c, ok := w.Car(car.ID); !ok || !c.Route.HasPath() {
		t.Error("benign edit should preserve the in-flight route")
	}

	// Tearing out the destination lot forces a despawn rather than a
	// drive onto a stale spline.
	w.RemoveTile(b.Anchor)
	w.Step()
	c, ok := w.Car(car.ID)
	if ok && c.Route.Kind == route.KindRouted && c.Route.HasPath() {
		end, _ := c.Route.Path.EndNode()
		if _, stillThere := w.Graph.NodeAt(end.Position); !stillThere {
			t.Error("car kept a route to a node that no longer exists")
		}
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() []Car {
		w, a, b := twoLotWorld(t, 42, 1337)
		if _, err := w.SpawnResident(a.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := w.SpawnResident(b.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := w.SpawnTestCar(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 20*DefaultTickRate; i++ {
			w.Step()
		}
		var out []Car
		for _, c := range w.Cars() {
			out = append(out, *c)
		}
		return out
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("replay diverged in car count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		f, s := first[i], second[i]
		if f.ID != s.ID || f.State != s.State {
			t.Fatalf("car %d diverged: %v/%v vs %v/%v", i, f.ID, f.State, s.ID, s.State)
		}
		if f.Position != s.Position || f.Orientation != s.Orientation || f.Velocity != s.Velocity {
			t.Errorf("car %v kinematics diverged: %+v vs %+v", f.ID, f.Position, s.Position)
		}
	}
	t.Logf("replayed %d cars bit-identically over %d ticks", len(first), 20*DefaultTickRate)
}
