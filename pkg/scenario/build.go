package scenario

import (
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/sim"
)

// newSeededRNG derives the map generator's stream. It is separate from the
// world's generator so adding cars to a scenario does not reshuffle the
// roads.
func newSeededRNG(s SeedDef) *rand.Rand {
	return rand.New(rand.NewPCG(s.A, s.B))
}

// BuildWorld assembles a running world from a validated scenario: tilemap,
// lots, and the initial population. Residents are spawned directly so the
// world starts populated; test cars too.
func BuildWorld(sc *Scenario, logger *log.Logger) (*sim.World, error) {
	rep := Validate(sc)
	if !rep.Valid {
		return nil, fmt.Errorf("invalid scenario: %s", rep.Summary)
	}

	tm, err := buildTilemap(sc)
	if err != nil {
		return nil, err
	}

	w := sim.NewWorld(tm, sc.Seed.A, sc.Seed.B, logger)
	w.Dt = 1.0 / float64(sc.TickRate)

	for i, def := range sc.Lots {
		dir, _ := parseDirection(def.ExitDirection)
		lot, err := w.AddLot(grid.C(def.Anchor.Col, def.Anchor.Row), dir, def.ResidentSpots, def.OpenSpots)
		if err != nil {
			return nil, fmt.Errorf("lot %d: %w", i, err)
		}
		for r := 0; r < def.Residents; r++ {
			if _, err := w.SpawnResident(lot.ID); err != nil {
				return nil, fmt.Errorf("lot %d resident %d: %w", i, r, err)
			}
		}
	}

	for i := 0; i < sc.TestCars; i++ {
		if _, err := w.SpawnTestCar(); err != nil {
			return nil, fmt.Errorf("test car %d: %w", i, err)
		}
	}
	return w, nil
}

// buildTilemap realizes the map definition: explicit glyph rows or the
// procedural generator seeded from the scenario seed.
func buildTilemap(sc *Scenario) (*grid.Tilemap, error) {
	tm := grid.NewTilemap(sc.Map.Cols, sc.Map.Rows)

	if sc.Map.IsGenerated() {
		cfg := grid.DefaultGenConfig
		if g := sc.Map.Generate; g != nil {
			if g.MainRoads > 0 {
				cfg.MainRoadCount = g.MainRoads
			}
			if g.SideStreets > 0 {
				cfg.SideStreetCount = g.SideStreets
			}
			if g.MinStraightRun > 0 {
				cfg.MinStraightRun = g.MinStraightRun
			}
		}
		rng := newSeededRNG(sc.Seed)
		grid.GenerateRoads(tm, rng, cfg)
		return tm, nil
	}

	for row, line := range sc.Map.Layout {
		for col, glyph := range line {
			switch glyph {
			case glyphRoad:
				tm.SetRoad(grid.C(col, row))
			case glyphEmpty:
			default:
				return nil, fmt.Errorf("map row %d: unknown glyph %q", row, glyph)
			}
		}
	}
	return tm, nil
}
