package roadnet

import (
	"math"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/grid"
)

// ConnectionKind classifies a road network node.
type ConnectionKind int

const (
	LaneConnector ConnectionKind = iota
	DeadendEntry
	DeadendExit
	LotEntry
	LotExit
)

func (k ConnectionKind) String() string {
	switch k {
	case LaneConnector:
		return "lane-connector"
	case DeadendEntry:
		return "deadend-entry"
	case DeadendExit:
		return "deadend-exit"
	case LotEntry:
		return "lot-entry"
	default:
		return "lot-exit"
	}
}

// Connection is a node in the road network: a point where lanes start, end
// or meet. Every node has an outward travel direction used for lane
// matching.
type Connection struct {
	ID        int
	Position  geo.Point
	Direction grid.Direction
	Kind      ConnectionKind
	Cell      grid.Cell
	LotID     int // set for LotEntry and LotExit
	Pair      int // DeadendEntry: id of the matching exit, else -1
	Control   TrafficControl
}

// Lane is a directed drivable edge between two connections, weighted by
// geometric distance.
type Lane struct {
	From   int
	To     int
	Length float64
}

// posKey quantizes a position to a millimeter grid so nodes can be
// deduplicated by exact placement without float equality trouble.
type posKey struct {
	x, y int64
}

func keyOf(p geo.Point) posKey {
	return posKey{
		x: int64(math.Round(p.X * 1000)),
		y: int64(math.Round(p.Y * 1000)),
	}
}

// Graph is the road network: an arena of connections with integer ids plus
// adjacency lists. Ids are stable for the lifetime of one build; rebuilds
// produce a fresh graph and callers re-resolve references by position.
type Graph struct {
	nodes []Connection
	adj   [][]Lane
	byPos map[posKey]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{byPos: make(map[posKey]int)}
}

// AddNode inserts a connection, deduplicating by exact position. It returns
// the id of the stored node, which is an existing node when positions merge.
func (g *Graph) AddNode(c Connection) int {
	key := keyOf(c.Position)
	if id, ok := g.byPos[key]; ok {
		return id
	}
	c.ID = len(g.nodes)
	if c.Pair == 0 {
		c.Pair = -1
	}
	g.nodes = append(g.nodes, c)
	g.adj = append(g.adj, nil)
	g.byPos[key] = c.ID
	return c.ID
}

// AddLane inserts a directed edge. Duplicate edges are ignored.
func (g *Graph) AddLane(from, to int) {
	if from < 0 || from >= len(g.nodes) || to < 0 || to >= len(g.nodes) || from == to {
		return
	}
	for _, l := range g.adj[from] {
		if l.To == to {
			return
		}
	}
	length := g.nodes[from].Position.Distance(g.nodes[to].Position)
	g.adj[from] = append(g.adj[from], Lane{From: from, To: to, Length: length})
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the connection with the given id.
func (g *Graph) Node(id int) (Connection, bool) {
	if id < 0 || id >= len(g.nodes) {
		return Connection{}, false
	}
	return g.nodes[id], true
}

// Nodes returns all connections in id order.
func (g *Graph) Nodes() []Connection {
	return g.nodes
}

// OutLanes returns the outgoing lanes of a node.
func (g *Graph) OutLanes(id int) []Lane {
	if id < 0 || id >= len(g.adj) {
		return nil
	}
	return g.adj[id]
}

// OutDegree returns the number of outgoing lanes of a node.
func (g *Graph) OutDegree(id int) int {
	return len(g.OutLanes(id))
}

// NodeAt returns the node at the exact position, if one exists. Used to
// re-resolve stale references after a rebuild.
func (g *Graph) NodeAt(p geo.Point) (Connection, bool) {
	id, ok := g.byPos[keyOf(p)]
	if !ok {
		return Connection{}, false
	}
	return g.nodes[id], true
}

// NearestNode returns the node closest to p for which keep returns true.
// A nil keep accepts every node.
func (g *Graph) NearestNode(p geo.Point, keep func(Connection) bool) (Connection, bool) {
	best := -1
	bestDist := math.MaxFloat64
	for i := range g.nodes {
		if keep != nil && !keep(g.nodes[i]) {
			continue
		}
		if d := p.Distance(g.nodes[i].Position); d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return Connection{}, false
	}
	return g.nodes[best], true
}

// setControl stores the traffic control on a node.
func (g *Graph) setControl(id int, tc TrafficControl) {
	if id >= 0 && id < len(g.nodes) {
		g.nodes[id].Control = tc
	}
}
