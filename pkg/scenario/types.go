package scenario

// Scenario is the top-level description of a simulation run: the map, the
// lots, the starting population and the clock.
type Scenario struct {
	Name     string   `yaml:"name" json:"name"`
	Seed     SeedDef  `yaml:"seed" json:"seed"`
	TickRate int      `yaml:"tick_rate" json:"tick_rate"`
	Map      MapDef   `yaml:"map" json:"map"`
	Lots     []LotDef `yaml:"lots" json:"lots"`
	TestCars int      `yaml:"test_cars" json:"test_cars"`
}

// SeedDef seeds the deterministic generator. The same pair replays the
// same run.
type SeedDef struct {
	A uint64 `yaml:"a" json:"a"`
	B uint64 `yaml:"b" json:"b"`
}

// MapDef describes the tilemap: either explicit glyph rows or a generator
// configuration, never both.
type MapDef struct {
	Cols int `yaml:"cols" json:"cols"`
	Rows int `yaml:"rows" json:"rows"`

	// Rows of glyphs, one string per map row: '#' road, '.' empty.
	Layout []string `yaml:"layout,omitempty" json:"layout,omitempty"`

	Generate *GenerateDef `yaml:"generate,omitempty" json:"generate,omitempty"`
}

// GenerateDef configures procedural road generation.
type GenerateDef struct {
	MainRoads      int `yaml:"main_roads" json:"main_roads"`
	SideStreets    int `yaml:"side_streets" json:"side_streets"`
	MinStraightRun int `yaml:"min_straight_run" json:"min_straight_run"`
}

// LotDef zones one parking lot against a road cell.
type LotDef struct {
	Anchor        CellDef `yaml:"anchor" json:"anchor"`
	ExitDirection string  `yaml:"exit_direction" json:"exit_direction"`
	ResidentSpots int     `yaml:"resident_spots" json:"resident_spots"`
	OpenSpots     int     `yaml:"open_spots" json:"open_spots"`
	Residents     int     `yaml:"residents" json:"residents"`
}

// CellDef is a grid coordinate.
type CellDef struct {
	Col int `yaml:"col" json:"col"`
	Row int `yaml:"row" json:"row"`
}

// IsGenerated reports whether the map uses procedural generation.
func (m MapDef) IsGenerated() bool {
	return m.Generate != nil
}
