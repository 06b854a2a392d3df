package route

import (
	"errors"

	"github.com/gridtown/trafficsim/pkg/geo"
	"github.com/gridtown/trafficsim/pkg/roadnet"
)

// ErrStaleRoute is returned when a route references nodes that no longer
// exist after a network rebuild.
var ErrStaleRoute = errors.New("route references missing node")

// Reroute recomputes the remainder of a routed path against the given
// graph. The segment currently being driven keeps its geometry and travel
// parameter, so a car mid-turn does not teleport; the search restarts from
// the node that segment is heading toward. Node references are re-resolved
// by position, making this safe to call after a rebuild.
func Reroute(g *roadnet.Graph, r Route) (Route, error) {
	if r.Kind != KindRouted || r.Path == nil || r.Path.Finished {
		return Unrouted(), ErrStaleRoute
	}

	oldNext, ok := r.Path.NextNode()
	if !ok {
		return Unrouted(), ErrStaleRoute
	}
	next, ok := g.NodeAt(oldNext.Position)
	if !ok {
		return Unrouted(), ErrStaleRoute
	}
	end, ok := g.NodeAt(r.End.Position)
	if !ok {
		return Unrouted(), ErrStaleRoute
	}

	cur := r.Path.Current
	partial := r.Path.Segments[cur]
	partialFrom := r.Path.Nodes[cur]

	if next.ID == end.ID {
		// Only the in-flight segment remains.
		p := &Path{
			Segments:  []geo.Curve{partial},
			Nodes:     []roadnet.Connection{partialFrom, next},
			Parameter: r.Path.Parameter,
		}
		return NewRouted(partialFrom, end, p), nil
	}

	nodes, err := searchNodes(g, next.ID, end.ID)
	if err != nil {
		return Unrouted(), err
	}

	rest := BuildPath(nodes)
	p := &Path{
		Segments:  append([]geo.Curve{partial}, rest.Segments...),
		Nodes:     append([]roadnet.Connection{partialFrom}, rest.Nodes...),
		Parameter: r.Path.Parameter,
	}
	return NewRouted(partialFrom, end, p), nil
}
