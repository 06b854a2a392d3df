package scenario

import (
	"fmt"
	"strings"

	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/report"
)

const (
	glyphRoad  = '#'
	glyphEmpty = '.'
)

// Validate checks a scenario for structural problems before any world is
// built. Errors make the scenario unusable; warnings flag suspicious but
// workable definitions.
func Validate(sc *Scenario) *report.Report {
	rep := report.New()

	if sc.Name == "" {
		rep.AddWarning(report.Result{
			Level:   report.LevelScenario,
			Message: "scenario has no name",
		})
	}
	if sc.TickRate < 1 || sc.TickRate > 240 {
		rep.AddError(report.Result{
			Level:   report.LevelScenario,
			Message: fmt.Sprintf("tick_rate %d outside 1-240", sc.TickRate),
		})
	}

	validateMap(sc.Map, rep)
	validateLots(sc, rep)

	if rep.Valid {
		rep.AddInfo(report.Result{
			Level: report.LevelScenario,
			Message: fmt.Sprintf("scenario %q: %d lots, %d test cars",
				sc.Name, len(sc.Lots), sc.TestCars),
		})
	}
	return rep
}

func validateMap(m MapDef, rep *report.Report) {
	if m.Cols < 4 || m.Rows < 4 {
		rep.AddError(report.Result{
			Level:   report.LevelScenario,
			Message: fmt.Sprintf("map %dx%d is too small, need at least 4x4", m.Cols, m.Rows),
		})
	}
	if len(m.Layout) > 0 && m.Generate != nil {
		rep.AddError(report.Result{
			Level:   report.LevelScenario,
			Message: "map has both an explicit layout and a generator config",
		})
	}
	if len(m.Layout) == 0 && m.Generate == nil {
		rep.AddError(report.Result{
			Level:   report.LevelScenario,
			Message: "map has neither a layout nor a generator config",
		})
	}

	if len(m.Layout) > 0 {
		if len(m.Layout) != m.Rows {
			rep.AddError(report.Result{
				Level:   report.LevelScenario,
				Message: fmt.Sprintf("layout has %d rows, map declares %d", len(m.Layout), m.Rows),
			})
		}
		for i, row := range m.Layout {
			if len(row) != m.Cols {
				rep.AddError(report.Result{
					Level:   report.LevelScenario,
					Message: fmt.Sprintf("layout row %d has %d glyphs, map declares %d columns", i, len(row), m.Cols),
				})
			}
			if bad := strings.IndexFunc(row, func(r rune) bool {
				return r != glyphRoad && r != glyphEmpty
			}); bad >= 0 {
				rep.AddError(report.Result{
					Level:   report.LevelScenario,
					Message: fmt.Sprintf("layout row %d has unknown glyph %q", i, row[bad]),
				})
			}
		}
	}

	if m.Generate != nil {
		if m.Generate.MainRoads < 1 {
			rep.AddError(report.Result{
				Level:   report.LevelScenario,
				Message: "generator needs at least one main road",
			})
		}
	}
}

func validateLots(sc *Scenario, rep *report.Report) {
	seen := make(map[CellDef]bool)
	for i, l := range sc.Lots {
		cell := fmt.Sprintf("%d,%d", l.Anchor.Col, l.Anchor.Row)
		if l.Anchor.Col < 0 || l.Anchor.Col >= sc.Map.Cols ||
			l.Anchor.Row < 0 || l.Anchor.Row >= sc.Map.Rows {
			rep.AddError(report.Result{
				Level:   report.LevelScenario,
				Message: fmt.Sprintf("lot %d anchored outside the map", i),
				Cell:    cell,
			})
		}
		if seen[l.Anchor] {
			rep.AddError(report.Result{
				Level:   report.LevelScenario,
				Message: fmt.Sprintf("lot %d shares an anchor with an earlier lot", i),
				Cell:    cell,
			})
		}
		seen[l.Anchor] = true

		if _, err := parseDirection(l.ExitDirection); err != nil {
			rep.AddError(report.Result{
				Level:   report.LevelScenario,
				Message: fmt.Sprintf("lot %d: %v", i, err),
				Cell:    cell,
			})
		}
		if l.Residents > l.ResidentSpots {
			rep.AddWarning(report.Result{
				Level:   report.LevelScenario,
				Message: fmt.Sprintf("lot %d has %d residents but only %d resident spots", i, l.Residents, l.ResidentSpots),
				Cell:    cell,
			})
		}
	}
}

func parseDirection(s string) (grid.Direction, error) {
	switch strings.ToLower(s) {
	case "up":
		return grid.Up, nil
	case "down":
		return grid.Down, nil
	case "left":
		return grid.Left, nil
	case "right":
		return grid.Right, nil
	default:
		return grid.Up, fmt.Errorf("unknown direction %q", s)
	}
}
