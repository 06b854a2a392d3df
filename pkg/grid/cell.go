package grid

import (
	"fmt"
	"math"

	"github.com/gridtown/trafficsim/pkg/geo"
)

// TileSize is the edge length of one tile in meters. All cell-to-world
// conversions derive from this constant.
const TileSize = 16.0

// Cell is an integer grid coordinate. Identity is immutable; connections
// and lots reference cells, they never own them.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// C is a shorthand constructor for Cell.
func C(col, row int) Cell {
	return Cell{Col: col, Row: row}
}

// Position returns the world-space center of the cell.
func (c Cell) Position() geo.Point {
	return geo.Pt(
		(float64(c.Col)+0.5)*TileSize,
		(float64(c.Row)+0.5)*TileSize,
	)
}

// Next returns the neighboring cell in the given direction.
func (c Cell) Next(d Direction) Cell {
	switch d {
	case Up:
		return Cell{c.Col, c.Row - 1}
	case Down:
		return Cell{c.Col, c.Row + 1}
	case Left:
		return Cell{c.Col - 1, c.Row}
	default:
		return Cell{c.Col + 1, c.Row}
	}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// CellAt returns the cell containing the given world position.
func CellAt(p geo.Point) Cell {
	return Cell{
		Col: int(math.Floor(p.X / TileSize)),
		Row: int(math.Floor(p.Y / TileSize)),
	}
}
