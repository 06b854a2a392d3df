package route

import (
	"math/rand/v2"

	"github.com/gridtown/trafficsim/pkg/roadnet"
)

// RandomFromNode builds a patrol route by walking up to maxConnections
// random lanes from the start node. Lot driveways are excluded so patrols
// stay on the road network. Returns an unrouted route when the start is a
// dead node.
func RandomFromNode(g *roadnet.Graph, rng *rand.Rand, start roadnet.Connection, maxConnections int) (Route, error) {
	nodes := []roadnet.Connection{start}
	cur := start

	for i := 0; i < maxConnections; i++ {
		candidates := patrolLanes(g, cur.ID)
		if len(candidates) == 0 {
			break
		}
		lane := candidates[rng.IntN(len(candidates))]
		next, _ := g.Node(lane.To)
		nodes = append(nodes, next)
		cur = next
	}

	if len(nodes) < 2 {
		return Unrouted(), ErrNoRoute
	}
	return NewRouted(start, cur, BuildPath(nodes)), nil
}

// patrolLanes returns the outgoing lanes that keep a patrol on the road.
func patrolLanes(g *roadnet.Graph, id int) []roadnet.Lane {
	var out []roadnet.Lane
	for _, lane := range g.OutLanes(id) {
		target, ok := g.Node(lane.To)
		if !ok {
			continue
		}
		if target.Kind == roadnet.LotEntry || target.Kind == roadnet.LotExit {
			continue
		}
		out = append(out, lane)
	}
	return out
}
