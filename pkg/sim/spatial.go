package sim

import (
	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
)

// neighborRadius bounds the area scanned for cars that can influence a
// steering decision.
const neighborRadius = 16.0

// spatialIndex buckets car ids by tile cell. It is rebuilt from scratch
// each tick; cars move every tick anyway, so incremental updates buy
// nothing.
type spatialIndex struct {
	buckets map[grid.Cell][]CarID
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{buckets: make(map[grid.Cell][]CarID)}
}

func (ix *spatialIndex) rebuild(cars []*Car) {
	clear(ix.buckets)
	for _, c := range cars {
		if !c.IsActive() {
			continue
		}
		cell := grid.CellAt(c.Position)
		ix.buckets[cell] = append(ix.buckets[cell], c.ID)
	}
}

// nearby returns ids of cars within radius of pos, excluding the given
// car. Cells are visited row-major so the result order is stable.
func (ix *spatialIndex) nearby(pos geo.Point, radius float64, exclude CarID, resolve func(CarID) (*Car, bool)) []CarID {
	span := int(radius/grid.TileSize) + 1
	center := grid.CellAt(pos)

	var out []CarID
	for dr := -span; dr <= span; dr++ {
		for dc := -span; dc <= span; dc++ {
			cell := grid.C(center.Col+dc, center.Row+dr)
			for _, id := range ix.buckets[cell] {
				if id == exclude {
					continue
				}
				car, ok := resolve(id)
				if !ok {
					continue
				}
				if car.Position.Distance(pos) <= radius {
					out = append(out, id)
				}
			}
		}
	}
	return out
}
