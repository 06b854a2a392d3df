package route

import (
	"container/heap"
	"errors"

	"github.com/gridtown/trafficsim/pkg/roadnet"
)

// ErrNoRoute is returned when no path connects the requested nodes.
var ErrNoRoute = errors.New("no route found")

// FromStartAndEndNodes runs an A* search over the lane graph and returns a
// routed path. Heuristic is straight-line distance, edge cost is lane
// length. Fails when start equals end or no path exists.
func FromStartAndEndNodes(g *roadnet.Graph, start, end roadnet.Connection) (Route, error) {
	if start.ID == end.ID {
		return Unrouted(), ErrNoRoute
	}
	nodes, err := searchNodes(g, start.ID, end.ID)
	if err != nil {
		return Unrouted(), err
	}
	return NewRouted(start, end, BuildPath(nodes)), nil
}

// searchNodes returns the node sequence from start to end.
func searchNodes(g *roadnet.Graph, startID, endID int) ([]roadnet.Connection, error) {
	endNode, ok := g.Node(endID)
	if !ok {
		return nil, ErrNoRoute
	}

	gScore := map[int]float64{startID: 0}
	cameFrom := map[int]int{}
	closed := map[int]bool{}

	open := &searchHeap{}
	heap.Init(open)
	heap.Push(open, searchItem{id: startID, priority: 0})

	for open.Len() > 0 {
		cur := heap.Pop(open).(searchItem)
		if closed[cur.id] {
			continue
		}
		if cur.id == endID {
			return reconstruct(g, cameFrom, startID, endID), nil
		}
		closed[cur.id] = true

		for _, lane := range g.OutLanes(cur.id) {
			if closed[lane.To] {
				continue
			}
			tentative := gScore[cur.id] + lane.Length
			if old, seen := gScore[lane.To]; seen && tentative >= old {
				continue
			}
			gScore[lane.To] = tentative
			cameFrom[lane.To] = cur.id
			target, _ := g.Node(lane.To)
			h := target.Position.Distance(endNode.Position)
			heap.Push(open, searchItem{id: lane.To, priority: tentative + h})
		}
	}
	return nil, ErrNoRoute
}

func reconstruct(g *roadnet.Graph, cameFrom map[int]int, startID, endID int) []roadnet.Connection {
	var ids []int
	for cur := endID; ; {
		ids = append(ids, cur)
		if cur == startID {
			break
		}
		cur = cameFrom[cur]
	}
	nodes := make([]roadnet.Connection, len(ids))
	for i, id := range ids {
		n, _ := g.Node(id)
		nodes[len(ids)-1-i] = n
	}
	return nodes
}

// searchItem is a frontier entry. Ties break on the lower node id so the
// search is deterministic.
type searchItem struct {
	id       int
	priority float64
}

type searchHeap []searchItem

func (h searchHeap) Len() int { return len(h) }

func (h searchHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].id < h[j].id
}

func (h searchHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *searchHeap) Push(x any) { *h = append(*h, x.(searchItem)) }

func (h *searchHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
