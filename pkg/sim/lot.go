package sim

import (
	"errors"
	"sort"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
)

var (
	// ErrLotLocked means another car currently holds the lot's parking
	// lock. Callers recover by retrying through the event queue.
	ErrLotLocked = errors.New("parking lock held by another car")
	// ErrNoFreeSpot means no unreserved spot passed the eligibility
	// predicate.
	ErrNoFreeSpot = errors.New("no eligible parking spot free")
)

// SpotRestriction limits who may claim a parking spot.
type SpotRestriction int

const (
	NoRestriction SpotRestriction = iota
	ResidentOnly
)

// ParkingSpot is a single space inside a lot. The driveway curves are
// precomputed when the lot is connected to the road network.
type ParkingSpot struct {
	ID          int
	Position    geo.Point
	Restriction SpotRestriction
	ReservedBy  CarID

	PathFromEntry geo.Curve
	PathToExit    geo.Curve
}

// ParkingReservation is a car's claim on a specific spot. A claim is not a
// lock: the lot's parking lock is a separate, stricter token.
type ParkingReservation struct {
	LotID  int
	SpotID int
}

// Lot is a parking lot anchored to a road cell. Spots are kept sorted
// resident-first so eligible residents are offered restricted spots before
// open ones.
type Lot struct {
	ID                       int
	Anchor                   grid.Cell
	Area                     []grid.Cell
	BoundsMin                geo.Point
	BoundsMax                geo.Point
	EntryPosition            geo.Point
	ExitPosition             geo.Point
	DrivewayExitDirection    grid.Direction
	ParkingSpotExitDirection grid.Direction
	Spots                    []ParkingSpot

	parkingLock CarID
}

// lotDepth is how many cells a lot extends away from its anchor road.
const lotDepth = 2

// NewLot lays out a lot behind the given anchor cell. exitDir is the
// direction the driveway leaves the lot, pointing at the anchor road. Spots
// are placed in the cell farthest from the road, resident spots first.
func NewLot(id int, anchor grid.Cell, exitDir grid.Direction, residentSpots, openSpots int) *Lot {
	lotSide := exitDir.Opposite()

	area := make([]grid.Cell, 0, lotDepth)
	c := anchor
	for i := 0; i < lotDepth; i++ {
		c = c.Next(lotSide)
		area = append(area, c)
	}

	l := &Lot{
		ID:                       id,
		Anchor:                   anchor,
		Area:                     area,
		DrivewayExitDirection:    exitDir,
		ParkingSpotExitDirection: exitDir,
		parkingLock:              NoCar,
	}
	l.BoundsMin, l.BoundsMax = areaBounds(area)

	// Spots line up across the back cell, perpendicular to the driveway.
	back := area[len(area)-1].Position()
	across := lotSide.Vector().Perp()
	total := residentSpots + openSpots
	spacing := grid.TileSize / float64(total+1)
	for i := 0; i < total; i++ {
		offset := (float64(i+1) - float64(total+1)/2) * spacing
		restriction := NoRestriction
		if i < residentSpots {
			restriction = ResidentOnly
		}
		l.Spots = append(l.Spots, ParkingSpot{
			ID:          i,
			Position:    back.Add(across.Scale(offset)),
			Restriction: restriction,
			ReservedBy:  NoCar,
		})
	}
	sortSpotsResidentFirst(l.Spots)
	return l
}

func areaBounds(area []grid.Cell) (geo.Point, geo.Point) {
	half := grid.TileSize / 2
	min := area[0].Position().Sub(geo.Pt(half, half))
	max := area[0].Position().Add(geo.Pt(half, half))
	for _, c := range area[1:] {
		p := c.Position()
		if p.X-half < min.X {
			min.X = p.X - half
		}
		if p.Y-half < min.Y {
			min.Y = p.Y - half
		}
		if p.X+half > max.X {
			max.X = p.X + half
		}
		if p.Y+half > max.Y {
			max.Y = p.Y + half
		}
	}
	return min, max
}

func sortSpotsResidentFirst(spots []ParkingSpot) {
	sort.SliceStable(spots, func(i, j int) bool {
		return spots[i].Restriction == ResidentOnly && spots[j].Restriction != ResidentOnly
	})
	for i := range spots {
		spots[i].ID = i
	}
}

// connect resolves the lot's driveway endpoints against the built road
// network and precomputes each spot's entry and exit curves.
func (l *Lot) connect(entry, exit geo.Point) {
	l.EntryPosition = entry
	l.ExitPosition = exit
	inward := l.DrivewayExitDirection.Opposite().Vector()
	for i := range l.Spots {
		spot := &l.Spots[i]
		inControl := entry.Add(inward.Scale(entry.Distance(spot.Position) * 0.5))
		outControl := exit.Add(inward.Scale(exit.Distance(spot.Position) * 0.5))
		spot.PathFromEntry = geo.NewQuadratic(entry, inControl, spot.Position)
		spot.PathToExit = geo.NewQuadratic(spot.Position, outControl, exit)
	}
}

// LockHolder returns the car holding the parking lock, if any.
func (l *Lot) LockHolder() (CarID, bool) {
	return l.parkingLock, l.parkingLock != NoCar
}

// AcquireParkingLock takes the lot's parking lock. It succeeds only when
// the lock is free or already held by the same car; a retried acquisition
// by the holder is not an error.
func (l *Lot) AcquireParkingLock(car CarID) bool {
	if l.parkingLock != NoCar && l.parkingLock != car {
		return false
	}
	l.parkingLock = car
	return true
}

// ReleaseParkingLock clears the lock only when held by the given car.
// Releasing a lock held by someone else is a no-op: a car with a stale
// reservation must never free a lock it does not own.
func (l *Lot) ReleaseParkingLock(car CarID) {
	if l.parkingLock == car {
		l.parkingLock = NoCar
	}
}

// FindFreeParkingSpot scans spots in priority order for the first
// unreserved one passing the eligibility predicate.
func (l *Lot) FindFreeParkingSpot(eligible func(ParkingSpot) bool) (int, bool) {
	for _, s := range l.Spots {
		if s.ReservedBy != NoCar {
			continue
		}
		if eligible(s) {
			return s.ID, true
		}
	}
	return 0, false
}

// ReserveSpot records a car's claim on a spot. Idempotent.
func (l *Lot) ReserveSpot(spotID int, car CarID) {
	if spotID < 0 || spotID >= len(l.Spots) {
		return
	}
	l.Spots[spotID].ReservedBy = car
}

// UnreserveSpot clears a spot's claim. Idempotent.
func (l *Lot) UnreserveSpot(spotID int) {
	if spotID < 0 || spotID >= len(l.Spots) {
		return
	}
	l.Spots[spotID].ReservedBy = NoCar
}

// Spot returns a copy of the spot with the given id.
func (l *Lot) Spot(spotID int) (ParkingSpot, bool) {
	if spotID < 0 || spotID >= len(l.Spots) {
		return ParkingSpot{}, false
	}
	return l.Spots[spotID], true
}

// PrepareParking is the two-phase claim: acquire the lock, then find a free
// eligible spot. If the spot search fails the lock stays held and the
// caller's retry path must release it.
func (l *Lot) PrepareParking(car CarID, eligible func(ParkingSpot) bool) (int, error) {
	if !l.AcquireParkingLock(car) {
		return 0, ErrLotLocked
	}
	spotID, ok := l.FindFreeParkingSpot(eligible)
	if !ok {
		return 0, ErrNoFreeSpot
	}
	return spotID, nil
}

// SpotEligibility builds the predicate a car uses when claiming a spot in
// this lot: restricted spots pass only for the lot's own resident.
func (l *Lot) SpotEligibility(car *Car) func(ParkingSpot) bool {
	return func(s ParkingSpot) bool {
		if s.Restriction == ResidentOnly {
			return car.HomeLotID == l.ID
		}
		return true
	}
}
