package server

import (
	"github.com/samber/lo"

	"github.com/gridtown/trafficsim/pkg/roadnet"
	"github.com/gridtown/trafficsim/pkg/sim"
)

// Snapshot is the read-only view of a world at one tick. Everything is a
// value copy; consumers can hold it as long as they like without touching
// live state.
type Snapshot struct {
	Tick   int64       `json:"tick"`
	Cars   []CarView   `json:"cars"`
	Lots   []LotView   `json:"lots"`
	Lights []LightView `json:"lights"`
	Report *ReportView `json:"report,omitempty"`
}

type CarView struct {
	ID          sim.CarID `json:"id"`
	Make        string    `json:"make"`
	State       string    `json:"state"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Orientation float64   `json:"orientation"`
	Velocity    float64   `json:"velocity"`
}

type LotView struct {
	ID     int        `json:"id"`
	Spots  []SpotView `json:"spots"`
	Locked bool       `json:"locked"`
}

type SpotView struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Reserved bool    `json:"reserved"`
}

type LightView struct {
	ID    int     `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

type ReportView struct {
	Valid   bool   `json:"valid"`
	Summary string `json:"summary"`
}

// TakeSnapshot copies the observable world state. Must be called from the
// goroutine that owns the world.
func TakeSnapshot(w *sim.World) Snapshot {
	s := Snapshot{
		Tick: w.Tick,
		Cars: lo.Map(w.Cars(), func(c *sim.Car, _ int) CarView {
			return CarView{
				ID:          c.ID,
				Make:        c.Make,
				State:       c.State.String(),
				X:           c.Position.X,
				Y:           c.Position.Y,
				Orientation: c.Orientation,
				Velocity:    c.Velocity,
			}
		}),
		Lots: lo.Map(w.Lots(), func(l *sim.Lot, _ int) LotView {
			_, locked := l.LockHolder()
			return LotView{
				ID:     l.ID,
				Locked: locked,
				Spots: lo.Map(l.Spots, func(sp sim.ParkingSpot, _ int) SpotView {
					return SpotView{
						ID:       sp.ID,
						X:        sp.Position.X,
						Y:        sp.Position.Y,
						Reserved: sp.ReservedBy != sim.NoCar,
					}
				}),
			}
		}),
		Lights: lo.Map(w.Lights, func(tl *roadnet.TrafficLight, _ int) LightView {
			return LightView{
				ID:    tl.ID,
				X:     tl.Position.X,
				Y:     tl.Position.Y,
				Color: tl.Color().String(),
			}
		}),
	}
	if w.Report != nil {
		s.Report = &ReportView{Valid: w.Report.Valid, Summary: w.Report.Summary}
	}
	return s
}
