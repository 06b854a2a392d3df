package roadnet

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
	"github.com/gridtown/trafficsim/pkg/report"
)

// laneOffset is the distance from the road centerline to a lane centerline.
// Roads are two-lane with right-hand traffic.
const laneOffset = grid.TileSize / 4

// BuildResult is the output of one network build.
type BuildResult struct {
	Graph  *Graph
	Lights []*TrafficLight
	Report *report.Report
}

// laneDirectionTowardSide returns the travel direction of the lane whose
// right-hand side faces the given side of the road. With Y-down screen
// coordinates the right side of a heading is its quarter turn.
func laneDirectionTowardSide(side grid.Direction) grid.Direction {
	switch side {
	case grid.Down:
		return grid.Right
	case grid.Left:
		return grid.Down
	case grid.Up:
		return grid.Left
	default:
		return grid.Up
	}
}

// rightSideOf returns the side a lane with the given heading hugs.
func rightSideOf(travel grid.Direction) grid.Direction {
	switch travel {
	case grid.Right:
		return grid.Down
	case grid.Down:
		return grid.Left
	case grid.Left:
		return grid.Up
	default:
		return grid.Right
	}
}

// exitNodePosition places the connection for traffic leaving the cell
// through side d, offset into the outgoing lane.
func exitNodePosition(c grid.Cell, d grid.Direction) geo.Point {
	return c.Position().
		Add(d.Vector().Scale(grid.TileSize / 2)).
		Add(rightSideOf(d).Vector().Scale(laneOffset))
}

// nodeCell reports whether a cell interrupts plain lane flow and therefore
// produces connections: deadends, curves, junctions and anchored tiles.
// Plain straight road produces no standalone nodes; lanes pass through.
func nodeCell(tm *grid.Tilemap, c grid.Cell) bool {
	t := tm.TileAt(c)
	if !t.IsRoad() {
		return false
	}
	if _, anchored := tm.AnchorAt(c); anchored {
		return true
	}
	switch t.Shape() {
	case grid.ShapeDeadend, grid.ShapeCurve, grid.ShapeTJunction, grid.ShapeCross:
		return true
	default:
		return false
	}
}

// buildPriority orders node tiles for deterministic creation: deadends
// first, then lot anchors, then junctions, then curves. Deadend entry and
// exit ids stay adjacent because both are created from the same tile.
func buildPriority(tm *grid.Tilemap, c grid.Cell) int {
	t := tm.TileAt(c)
	if t.Shape() == grid.ShapeDeadend {
		return 0
	}
	if _, anchored := tm.AnchorAt(c); anchored {
		return 1
	}
	switch t.Shape() {
	case grid.ShapeTJunction, grid.ShapeCross:
		return 2
	default:
		return 3
	}
}

// Build converts the tilemap into a directed lane graph and assigns traffic
// control devices. Existing lights are reused when an intersection survives
// the rebuild at the same position, preserving phase state.
func Build(tm *grid.Tilemap, existing []*TrafficLight) *BuildResult {
	rep := report.New()
	g := NewGraph()

	// 1. Collect node tiles in priority order, row-major within a priority.
	var cells []grid.Cell
	tm.ForEach(func(c grid.Cell, t grid.Tile) {
		if !t.IsRoad() {
			return
		}
		if t.Shape() == grid.ShapeOrphan {
			rep.AddWarning(report.Result{
				Level:   report.LevelNetwork,
				Message: "road tile with no connected sides produces no lanes",
				Cell:    c.String(),
			})
			return
		}
		if nodeCell(tm, c) {
			cells = append(cells, c)
		}
	})
	sort.SliceStable(cells, func(i, j int) bool {
		return buildPriority(tm, cells[i]) < buildPriority(tm, cells[j])
	})

	// 2. Create connections per tile.
	for _, c := range cells {
		createConnections(g, tm, c)
	}

	// 3. Build lane edges.
	for _, node := range g.Nodes() {
		switch node.Kind {
		case DeadendEntry:
			// Entry pairs with the exit created right after it.
			g.AddLane(node.ID, node.Pair)
		case LaneConnector, DeadendExit, LotExit:
			connectForward(g, tm, node, rep)
		}
	}

	// 4. Assign traffic control by out-degree.
	lights := assignControls(g, existing)

	signalCount := len(lights)
	laneCount := 0
	for _, n := range g.Nodes() {
		laneCount += g.OutDegree(n.ID)
	}
	rep.AddInfo(report.Result{
		Level: report.LevelNetwork,
		Message: fmt.Sprintf("built road network: %d connections, %d lanes, %d signals",
			g.Len(), laneCount, signalCount),
	})

	return &BuildResult{Graph: g, Lights: lights, Report: rep}
}

// createConnections derives the connections for one node tile.
func createConnections(g *Graph, tm *grid.Tilemap, c grid.Cell) {
	t := tm.TileAt(c)

	if d, ok := t.DeadendDirection(); ok {
		// Deadend: entry and exit pair offset from the tile center. The
		// entry faces into the tile, the exit faces back out.
		inbound := d.Opposite()
		entryPos := c.Position().Add(rightSideOf(inbound).Vector().Scale(laneOffset))
		exitPos := c.Position().Add(rightSideOf(d).Vector().Scale(laneOffset))
		entryID := g.AddNode(Connection{
			Position:  entryPos,
			Direction: inbound,
			Kind:      DeadendEntry,
			Cell:      c,
		})
		exitID := g.AddNode(Connection{
			Position:  exitPos,
			Direction: d,
			Kind:      DeadendExit,
			Cell:      c,
		})
		g.nodes[entryID].Pair = exitID
		return
	}

	// One lane connector per potential exit direction.
	for _, d := range t.ConnectedDirections() {
		g.AddNode(Connection{
			Position:  exitNodePosition(c, d),
			Direction: d,
			Kind:      LaneConnector,
			Cell:      c,
		})
	}

	// Anchored tiles additionally carry the lot driveway connections in
	// the lane adjacent to the lot.
	if a, ok := tm.AnchorAt(c); ok {
		lotSide := a.ExitDirection.Opposite()
		laneDir := laneDirectionTowardSide(lotSide)
		lanePos := c.Position().Add(rightSideOf(laneDir).Vector().Scale(laneOffset))

		g.AddNode(Connection{
			Position:  lanePos.Add(laneDir.Vector().Scale(-laneOffset / 2)),
			Direction: lotSide,
			Kind:      LotEntry,
			Cell:      c,
			LotID:     a.LotID,
		})
		g.AddNode(Connection{
			Position:  lanePos.Add(laneDir.Vector().Scale(laneOffset / 2)),
			Direction: laneDir,
			Kind:      LotExit,
			Cell:      c,
			LotID:     a.LotID,
		})
	}
}

// connectForward finds lane-completion partners for a node by walking the
// tilemap along its travel direction to the next node tile, then linking to
// that tile's compatible connections. Partners are always the geometrically
// closest compatible nodes because any bend or junction between two node
// tiles would itself be a node tile.
func connectForward(g *Graph, tm *grid.Tilemap, node Connection, rep *report.Report) {
	d := node.Direction
	c := node.Cell

	for step := 0; step < tm.Cols+tm.Rows; step++ {
		c = c.Next(d)
		t := tm.TileAt(c)
		if !t.IsRoad() {
			return // lane runs off the network; node stays terminal
		}
		if !nodeCell(tm, c) {
			continue // plain road, lanes pass through
		}

		if entry, ok := deadendEntryAt(g, tm, c); ok {
			g.AddLane(node.ID, entry)
			return
		}

		for _, exitDir := range t.ConnectedDirections() {
			if exitDir == d.Opposite() {
				continue // no immediate reversal outside deadends
			}
			if target, ok := g.NodeAt(exitNodePosition(c, exitDir)); ok {
				g.AddLane(node.ID, target.ID)
			}
		}

		// A lot driveway on the approach lane is an additional exit.
		if a, ok := tm.AnchorAt(c); ok {
			lotSide := a.ExitDirection.Opposite()
			if rightSideOf(d) == lotSide {
				if entry, ok := lotNodeAt(g, c, a.LotID, LotEntry); ok {
					g.AddLane(node.ID, entry)
				}
			}
		}
		return
	}

	rep.AddWarning(report.Result{
		Level:   report.LevelNetwork,
		Message: fmt.Sprintf("no lane partner found for %s node %d", node.Kind, node.ID),
		Cell:    node.Cell.String(),
	})
}

// deadendEntryAt finds the deadend entry connection on the given cell.
func deadendEntryAt(g *Graph, tm *grid.Tilemap, c grid.Cell) (int, bool) {
	t := tm.TileAt(c)
	d, ok := t.DeadendDirection()
	if !ok {
		return 0, false
	}
	inbound := d.Opposite()
	pos := c.Position().Add(rightSideOf(inbound).Vector().Scale(laneOffset))
	if n, ok := g.NodeAt(pos); ok && n.Kind == DeadendEntry {
		return n.ID, true
	}
	return 0, false
}

// lotNodeAt finds the lot entry or exit connection on a cell.
func lotNodeAt(g *Graph, c grid.Cell, lotID int, kind ConnectionKind) (int, bool) {
	for _, n := range g.Nodes() {
		if n.Cell == c && n.LotID == lotID && n.Kind == kind {
			return n.ID, true
		}
	}
	return 0, false
}

// assignControls sets the traffic control of every node from its out-degree
// and returns the set of active lights, reusing existing lights in place.
func assignControls(g *Graph, existing []*TrafficLight) []*TrafficLight {
	byPos := lo.KeyBy(existing, func(tl *TrafficLight) posKey {
		return keyOf(tl.Position)
	})
	nextID := 0
	for _, tl := range existing {
		if tl.ID >= nextID {
			nextID = tl.ID + 1
		}
	}

	var lights []*TrafficLight
	for _, node := range g.Nodes() {
		if node.Kind == DeadendEntry || node.Kind == LotEntry {
			continue
		}

		// Driveway exits don't gate through traffic; only lanes between
		// road connections count toward the degree.
		degree := 0
		hasThrough := false
		for _, lane := range g.OutLanes(node.ID) {
			target, _ := g.Node(lane.To)
			if target.Kind == LotEntry {
				continue
			}
			degree++
			if target.Direction == node.Direction {
				hasThrough = true
			}
		}

		switch {
		case degree >= 3:
			tl, ok := byPos[keyOf(node.Position)]
			if !ok {
				tl = NewTrafficLight(nextID, node.Position, node.Direction)
				nextID++
			}
			lights = append(lights, tl)
			g.setControl(node.ID, TrafficControl{
				Kind:           SignalControl,
				TrafficLightID: tl.ID,
			})
		case degree == 2 && !hasThrough:
			g.setControl(node.ID, TrafficControl{
				Kind:      YieldControl,
				CheckArea: yieldCheckArea(node.Position, node.Direction),
			})
		default:
			g.setControl(node.ID, TrafficControl{Kind: NoControl})
		}
	}
	return lights
}
