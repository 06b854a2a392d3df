package roadnet

import (
	"testing"

	"github.com/gridtown/trafficsim/pkg/grid"
)

// straightMap builds a horizontal road from (1,5) to (9,5) with deadends at
// both ends.
func straightMap(t *testing.T) *grid.Tilemap {
	t.Helper()
	tm := grid.NewTilemap(12, 12)
	for col := 1; col <= 9; col++ {
		tm.SetRoad(grid.C(col, 5))
	}
	return tm
}

// crossMap builds a four-way intersection at (5,5) with arms reaching the
// map border deadends.
func crossMap(t *testing.T) *grid.Tilemap {
	t.Helper()
	tm := grid.NewTilemap(12, 12)
	for col := 1; col <= 9; col++ {
		tm.SetRoad(grid.C(col, 5))
	}
	for row := 1; row <= 9; row++ {
		tm.SetRoad(grid.C(5, row))
	}
	return tm
}

func findNodes(g *Graph, kind ConnectionKind) []Connection {
	var out []Connection
	for _, n := range g.Nodes() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestBuildStraightRoadDeadendPairs(t *testing.T) {
	res := Build(straightMap(t), nil)
	if !res.Report.Valid {
		t.Fatalf("build report invalid: %v", res.Report.Errors)
	}

	entries := findNodes(res.Graph, DeadendEntry)
	exits := findNodes(res.Graph, DeadendExit)
	if len(entries) != 2 || len(exits) != 2 {
		t.Fatalf("expected 2 deadend entry/exit pairs, got %d/%d", len(entries), len(exits))
	}

	for _, e := range entries {
		if e.Pair != e.ID+1 {
			t.Errorf("entry %d should pair with the next created node, got %d", e.ID, e.Pair)
		}
		pair, ok := res.Graph.Node(e.Pair)
		if !ok || pair.Kind != DeadendExit {
			t.Errorf("entry %d pair is not a deadend exit", e.ID)
		}
		// The entry must have exactly one lane: the u-turn to its pair.
		lanes := res.Graph.OutLanes(e.ID)
		if len(lanes) != 1 || lanes[0].To != e.Pair {
			t.Errorf("entry %d should have a single u-turn lane to its pair", e.ID)
		}
	}
}

func TestBuildStraightRoadRoundTrip(t *testing.T) {
	res := Build(straightMap(t), nil)

	// From either deadend exit the network must loop: exit -> far entry ->
	// far exit -> near entry.
	exits := findNodes(res.Graph, DeadendExit)
	if len(exits) != 2 {
		t.Fatalf("expected 2 exits, got %d", len(exits))
	}
	start := exits[0]
	seen := map[int]bool{}
	cur := start.ID
	for i := 0; i < 8; i++ {
		seen[cur] = true
		lanes := res.Graph.OutLanes(cur)
		if len(lanes) == 0 {
			t.Fatalf("node %d has no outgoing lanes", cur)
		}
		cur = lanes[0].To
		if cur == start.ID {
			break
		}
	}
	if cur != start.ID {
		t.Errorf("expected a closed loop through both deadends, visited %v", seen)
	}
}

func TestBuildNoControlOnPlainRoad(t *testing.T) {
	res := Build(straightMap(t), nil)
	for _, n := range res.Graph.Nodes() {
		if n.Control.Kind != NoControl {
			t.Errorf("node %d on a plain road should have no control, got %v", n.ID, n.Control.Kind)
		}
	}
	if len(res.Lights) != 0 {
		t.Errorf("plain road should create no lights, got %d", len(res.Lights))
	}
}

func TestBuildCrossAssignsSignals(t *testing.T) {
	res := Build(crossMap(t), nil)

	signals := 0
	for _, n := range res.Graph.Nodes() {
		deg := res.Graph.OutDegree(n.ID)
		if n.Kind == DeadendExit && deg != 3 {
			t.Errorf("approach node %d should have out-degree 3, got %d", n.ID, deg)
		}
		if n.Control.Kind == SignalControl {
			signals++
		}
	}
	if signals != 4 {
		t.Errorf("expected 4 signal-controlled approaches, got %d", signals)
	}
	if len(res.Lights) != 4 {
		t.Errorf("expected 4 lights, got %d", len(res.Lights))
	}

	// Crossing approaches must start desynchronized.
	colors := map[LightColor]int{}
	for _, tl := range res.Lights {
		colors[tl.Color()]++
	}
	if colors[LightGreen] != 2 || colors[LightRed] != 2 {
		t.Errorf("expected 2 green and 2 red initial lights, got %v", colors)
	}
}

func TestBuildPreservesLightIdentity(t *testing.T) {
	tm := crossMap(t)
	first := Build(tm, nil)
	if len(first.Lights) != 4 {
		t.Fatalf("expected 4 lights, got %d", len(first.Lights))
	}
	// Advance a light mid-phase, then rebuild.
	first.Lights[0].Advance(5)
	phase := first.Lights[0].Color()

	second := Build(tm, first.Lights)
	if len(second.Lights) != 4 {
		t.Fatalf("rebuild should keep 4 lights, got %d", len(second.Lights))
	}
	found := false
	for _, tl := range second.Lights {
		if tl == first.Lights[0] {
			found = true
			if tl.Color() != phase {
				t.Error("rebuilt light lost phase state")
			}
		}
	}
	if !found {
		t.Error("rebuild did not reuse the existing light at the same position")
	}
}

func TestBuildTJunctionYield(t *testing.T) {
	tm := grid.NewTilemap(12, 12)
	for col := 1; col <= 9; col++ {
		tm.SetRoad(grid.C(col, 5))
	}
	// Stem going down from (5,5).
	for row := 6; row <= 9; row++ {
		tm.SetRoad(grid.C(5, row))
	}
	res := Build(tm, nil)

	yields, none := 0, 0
	for _, n := range res.Graph.Nodes() {
		if n.Kind != DeadendExit {
			continue
		}
		switch n.Control.Kind {
		case YieldControl:
			yields++
			if n.Control.CheckArea.IsEmpty() {
				t.Error("yield control should carry a check area")
			}
		case NoControl:
			none++
		case SignalControl:
			t.Errorf("t-junction approach %d should not get a signal", n.ID)
		}
	}
	// The stem approach yields; the two through-road approaches have a
	// straight-through lane and stay uncontrolled.
	if yields != 1 {
		t.Errorf("expected 1 yielding approach, got %d", yields)
	}
	if none != 2 {
		t.Errorf("expected 2 uncontrolled through approaches, got %d", none)
	}
}

func TestBuildLotDriveway(t *testing.T) {
	tm := straightMap(t)
	// Lot below the road anchored at (4,5), exiting upward onto the road.
	tm.SetLot(grid.C(4, 6))
	tm.SetAnchor(grid.C(4, 5), grid.Anchor{LotID: 7, ExitDirection: grid.Up})

	res := Build(tm, nil)

	entries := findNodes(res.Graph, LotEntry)
	exits := findNodes(res.Graph, LotExit)
	if len(entries) != 1 || len(exits) != 1 {
		t.Fatalf("expected one lot entry and one lot exit, got %d/%d", len(entries), len(exits))
	}
	if entries[0].LotID != 7 || exits[0].LotID != 7 {
		t.Error("lot nodes should record the lot id")
	}

	// The lot entry must be reachable from the lane adjacent to the lot,
	// and must have no outgoing lanes.
	if res.Graph.OutDegree(entries[0].ID) != 0 {
		t.Error("lot entry should be terminal")
	}
	reachable := false
	for _, n := range res.Graph.Nodes() {
		for _, l := range res.Graph.OutLanes(n.ID) {
			if l.To == entries[0].ID {
				reachable = true
			}
		}
	}
	if !reachable {
		t.Error("no lane leads into the lot entry")
	}

	// The lot exit must merge back into the road network.
	if res.Graph.OutDegree(exits[0].ID) == 0 {
		t.Error("lot exit should have an outgoing lane")
	}
}

func TestBuildDeduplicatesNodePositions(t *testing.T) {
	res := Build(crossMap(t), nil)
	seen := map[posKey]bool{}
	for _, n := range res.Graph.Nodes() {
		k := keyOf(n.Position)
		if seen[k] {
			t.Errorf("duplicate node position %v", n.Position)
		}
		seen[k] = true
	}
}

func TestBuildLaneLengthsPositive(t *testing.T) {
	res := Build(crossMap(t), nil)
	for _, n := range res.Graph.Nodes() {
		for _, l := range res.Graph.OutLanes(n.ID) {
			if l.Length <= 0 {
				t.Errorf("lane %d->%d has non-positive length %f", l.From, l.To, l.Length)
			}
		}
	}
}
