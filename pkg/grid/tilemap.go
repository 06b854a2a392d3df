package grid

// Anchor records a lot attachment on a road cell: which lot the driveway
// belongs to and which direction traffic exits the lot onto the road.
type Anchor struct {
	LotID         int       `json:"lotId"`
	ExitDirection Direction `json:"exitDirection"`
}

// Tilemap is a bounded grid of tiles with lot-anchor metadata. Edits keep
// road connectivity masks consistent; consumers rebuild the road network
// after any edit rather than patching it incrementally.
type Tilemap struct {
	Cols int
	Rows int

	tiles   map[Cell]Tile
	anchors map[Cell]Anchor
}

// NewTilemap creates an empty tilemap with the given dimensions.
func NewTilemap(cols, rows int) *Tilemap {
	return &Tilemap{
		Cols:    cols,
		Rows:    rows,
		tiles:   make(map[Cell]Tile),
		anchors: make(map[Cell]Anchor),
	}
}

// InBounds reports whether the cell lies within the map.
func (tm *Tilemap) InBounds(c Cell) bool {
	return c.Col >= 0 && c.Col < tm.Cols && c.Row >= 0 && c.Row < tm.Rows
}

// TileAt returns the tile at the cell. Out-of-bounds and unset cells
// return an empty tile.
func (tm *Tilemap) TileAt(c Cell) Tile {
	return tm.tiles[c]
}

// Neighbor returns the adjacent cell in the given direction and its tile.
func (tm *Tilemap) Neighbor(c Cell, d Direction) (Cell, Tile) {
	n := c.Next(d)
	return n, tm.tiles[n]
}

// SetRoad places a road tile at the cell and refreshes connectivity masks
// for the cell and its orthogonal neighbors.
func (tm *Tilemap) SetRoad(c Cell) {
	if !tm.InBounds(c) {
		return
	}
	tm.tiles[c] = Tile{Kind: TileRoad}
	tm.refreshMask(c)
	for _, d := range Directions {
		tm.refreshMask(c.Next(d))
	}
}

// SetLot marks the cell as occupied by lot ground (not drivable).
func (tm *Tilemap) SetLot(c Cell) {
	if !tm.InBounds(c) {
		return
	}
	tm.tiles[c] = Tile{Kind: TileLot}
}

// Remove clears the cell and refreshes the masks of its neighbors. Any
// anchor on the cell is dropped with it.
func (tm *Tilemap) Remove(c Cell) {
	delete(tm.tiles, c)
	delete(tm.anchors, c)
	for _, d := range Directions {
		tm.refreshMask(c.Next(d))
	}
}

// refreshMask recomputes the connectivity mask of a road cell from its
// neighbors. Non-road cells are left untouched.
func (tm *Tilemap) refreshMask(c Cell) {
	t, ok := tm.tiles[c]
	if !ok || t.Kind != TileRoad {
		return
	}
	var mask ConnMask
	for _, d := range Directions {
		if n := tm.tiles[c.Next(d)]; n.Kind == TileRoad {
			mask |= d.Bit()
		}
	}
	t.Mask = mask
	tm.tiles[c] = t
}

// SetAnchor attaches lot metadata to a road cell.
func (tm *Tilemap) SetAnchor(c Cell, a Anchor) {
	tm.anchors[c] = a
}

// AnchorAt returns the anchor on the cell, if any.
func (tm *Tilemap) AnchorAt(c Cell) (Anchor, bool) {
	a, ok := tm.anchors[c]
	return a, ok
}

// RemoveAnchor drops the anchor on the cell.
func (tm *Tilemap) RemoveAnchor(c Cell) {
	delete(tm.anchors, c)
}

// ValidateAnchor checks whether a lot occupying the given cells may attach
// to anchorCell: the area must be empty and in bounds, the anchor road must
// exist without an existing anchor, and it must not be a deadend.
func (tm *Tilemap) ValidateAnchor(area []Cell, anchorCell Cell) bool {
	road := tm.TileAt(anchorCell)
	if !road.IsRoad() {
		return false
	}
	if road.Shape() == ShapeDeadend {
		return false
	}
	if _, taken := tm.AnchorAt(anchorCell); taken {
		return false
	}
	for _, c := range area {
		if !tm.InBounds(c) {
			return false
		}
		if tm.TileAt(c).Kind != TileEmpty {
			return false
		}
	}
	return true
}

// ForEach visits every occupied cell in row-major order. Deterministic
// iteration matters: node creation order feeds the network builder.
func (tm *Tilemap) ForEach(fn func(Cell, Tile)) {
	for row := 0; row < tm.Rows; row++ {
		for col := 0; col < tm.Cols; col++ {
			c := Cell{Col: col, Row: row}
			if t, ok := tm.tiles[c]; ok {
				fn(c, t)
			}
		}
	}
}

// RoadCells returns all road cells in row-major order.
func (tm *Tilemap) RoadCells() []Cell {
	var cells []Cell
	tm.ForEach(func(c Cell, t Tile) {
		if t.IsRoad() {
			cells = append(cells, c)
		}
	})
	return cells
}
