package grid

// TileKind classifies what occupies a cell.
type TileKind int

const (
	TileEmpty TileKind = iota
	TileRoad
	TileLot
)

// ConnMask is a 4-bit mask recording which sides of a road tile connect to
// an adjacent road. Bit order matches Directions: up, left, right, down.
type ConnMask uint8

const (
	MaskUp    ConnMask = 1 << iota // 1
	MaskLeft                       // 2
	MaskRight                      // 4
	MaskDown                       // 8
)

// Bit returns the mask bit for a direction.
func (d Direction) Bit() ConnMask {
	switch d {
	case Up:
		return MaskUp
	case Left:
		return MaskLeft
	case Right:
		return MaskRight
	default:
		return MaskDown
	}
}

// Has reports whether the mask includes the given direction.
func (m ConnMask) Has(d Direction) bool {
	return m&d.Bit() != 0
}

// Count returns the number of connected sides.
func (m ConnMask) Count() int {
	n := 0
	for _, d := range Directions {
		if m.Has(d) {
			n++
		}
	}
	return n
}

// Shape classifies a road tile by its connectivity mask.
type Shape int

const (
	ShapeOrphan Shape = iota // no connected sides
	ShapeDeadend
	ShapeStraight
	ShapeCurve
	ShapeTJunction
	ShapeCross
)

// Tile is a placed piece in one cell. Road tiles carry a connectivity mask
// maintained by the tilemap on every edit.
type Tile struct {
	Kind TileKind `json:"kind"`
	Mask ConnMask `json:"mask"`
}

// IsRoad reports whether the tile is a road piece.
func (t Tile) IsRoad() bool {
	return t.Kind == TileRoad
}

// Shape classifies the road tile. Non-road tiles are orphans.
func (t Tile) Shape() Shape {
	if t.Kind != TileRoad {
		return ShapeOrphan
	}
	switch t.Mask.Count() {
	case 1:
		return ShapeDeadend
	case 2:
		upDown := t.Mask.Has(Up) && t.Mask.Has(Down)
		leftRight := t.Mask.Has(Left) && t.Mask.Has(Right)
		if upDown || leftRight {
			return ShapeStraight
		}
		return ShapeCurve
	case 3:
		return ShapeTJunction
	case 4:
		return ShapeCross
	default:
		return ShapeOrphan
	}
}

// DeadendDirection returns the single connected side of a deadend tile.
// Returns false when the tile is not a deadend.
func (t Tile) DeadendDirection() (Direction, bool) {
	if t.Shape() != ShapeDeadend {
		return Up, false
	}
	for _, d := range Directions {
		if t.Mask.Has(d) {
			return d, true
		}
	}
	return Up, false
}

// ConnectedDirections returns the connected sides in mask-bit order.
func (t Tile) ConnectedDirections() []Direction {
	dirs := make([]Direction, 0, 4)
	for _, d := range Directions {
		if t.Mask.Has(d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}
