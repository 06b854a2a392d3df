package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gridtown/trafficsim/pkg/grid"
)

const sampleYAML = `
name: two-lots
seed:
  a: 42
  b: 1337
tick_rate: 60
map:
  cols: 12
  rows: 12
  layout:
    - "............"
    - "............"
    - "............"
    - "............"
    - "............"
    - ".#########.."
    - "............"
    - "............"
    - "............"
    - "............"
    - "............"
    - "............"
lots:
  - anchor: {col: 3, row: 5}
    exit_direction: up
    resident_spots: 1
    open_spots: 1
    residents: 1
  - anchor: {col: 7, row: 5}
    exit_direction: up
    resident_spots: 1
    open_spots: 1
test_cars: 1
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load(writeScenario(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "two-lots" {
		t.Errorf("name = %q", sc.Name)
	}
	if sc.Seed.A != 42 || sc.Seed.B != 1337 {
		t.Errorf("seed = %+v", sc.Seed)
	}
	if len(sc.Lots) != 2 {
		t.Fatalf("lots = %d, want 2", len(sc.Lots))
	}
	if sc.Lots[1].Residents != 1 {
		t.Errorf("second lot residents default = %d, want 1", sc.Lots[1].Residents)
	}
}

func TestLoadProject(t *testing.T) {
	path := writeScenario(t, sampleYAML)
	sc, err := LoadProject(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "two-lots" {
		t.Errorf("name = %q", sc.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultsApplied(t *testing.T) {
	sc, err := Load(writeScenario(t, `
name: bare
map:
  cols: 8
  rows: 8
  generate: {main_roads: 2, side_streets: 1, min_straight_run: 3}
lots:
  - anchor: {col: 2, row: 2}
    exit_direction: down
`))
	if err != nil {
		t.Fatal(err)
	}
	if sc.TickRate != 60 {
		t.Errorf("tick rate default = %d", sc.TickRate)
	}
	if sc.Seed.A == 0 && sc.Seed.B == 0 {
		t.Error("zero seed not defaulted")
	}
	if sc.Lots[0].ResidentSpots == 0 && sc.Lots[0].OpenSpots == 0 {
		t.Error("lot spot defaults not applied")
	}
}

func TestValidateCatchesProblems(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Scenario)
		valid  bool
	}{
		{"well-formed", func(sc *Scenario) {}, true},
		{"tiny map", func(sc *Scenario) { sc.Map.Cols = 2 }, false},
		{"layout and generator", func(sc *Scenario) {
			sc.Map.Generate = &GenerateDef{MainRoads: 2}
		}, false},
		{"anchor off map", func(sc *Scenario) { sc.Lots[0].Anchor.Col = 99 }, false},
		{"duplicate anchors", func(sc *Scenario) { sc.Lots[1].Anchor = sc.Lots[0].Anchor }, false},
		{"bad direction", func(sc *Scenario) { sc.Lots[0].ExitDirection = "sideways" }, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sc, err := Load(writeScenario(t, sampleYAML))
			if err != nil {
				t.Fatal(err)
			}
			c.mutate(sc)
			rep := Validate(sc)
			if rep.Valid != c.valid {
				t.Errorf("valid = %v, want %v: %+v", rep.Valid, c.valid, rep.Errors)
			}
		})
	}
}

func TestValidateBadLayoutGlyphs(t *testing.T) {
	sc, err := Load(writeScenario(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	sc.Map.Layout[5] = ".#####X####."
	if rep := Validate(sc); rep.Valid {
		t.Error("unknown glyph accepted")
	}
}

func TestBuildWorldFromLayout(t *testing.T) {
	sc, err := Load(writeScenario(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	w, err := BuildWorld(sc, nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := len(w.Lots()); got != 2 {
		t.Errorf("world has %d lots, want 2", got)
	}
	// One resident per lot plus one test car.
	if got := len(w.Cars()); got != 3 {
		t.Errorf("world has %d cars, want 3", got)
	}
	if w.Graph.Len() == 0 {
		t.Error("world has no road network")
	}

	// The assembled world must actually run.
	for i := 0; i < 120; i++ {
		w.Step()
	}
	t.Logf("scenario %q: %d nodes, %d cars after warmup", sc.Name, w.Graph.Len(), len(w.Cars()))
}

func TestBuildWorldGeneratedMapIsDeterministic(t *testing.T) {
	src := `
name: generated
seed: {a: 7, b: 9}
map:
  cols: 20
  rows: 20
  generate: {main_roads: 3, side_streets: 2, min_straight_run: 4}
`
	build := func() []grid.Cell {
		sc, err := Load(writeScenario(t, src))
		if err != nil {
			t.Fatal(err)
		}
		w, err := BuildWorld(sc, nil)
		if err != nil {
			t.Fatal(err)
		}
		return w.Tilemap.RoadCells()
	}

	a, b := build(), build()
	if len(a) != len(b) {
		t.Fatalf("generated maps diverge in road count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("generated maps diverge at cell %d: %v vs %v", i, a[i], b[i])
		}
	}
}
