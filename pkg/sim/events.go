package sim

import "container/heap"

// EventKind discriminates queued events.
type EventKind int

const (
	EventNone EventKind = iota
	EventSpawnResident
	EventSpawnTestCar
	EventCreateRouteFromParkingSpot
	EventCreateRouteFromNode
	EventBeginCarParking
	EventCarStateChange
	EventRerouteCars
)

func (k EventKind) String() string {
	switch k {
	case EventSpawnResident:
		return "spawn-resident"
	case EventSpawnTestCar:
		return "spawn-test-car"
	case EventCreateRouteFromParkingSpot:
		return "route-from-parking-spot"
	case EventCreateRouteFromNode:
		return "route-from-node"
	case EventBeginCarParking:
		return "begin-car-parking"
	case EventCarStateChange:
		return "car-state-change"
	case EventRerouteCars:
		return "reroute-cars"
	default:
		return "none"
	}
}

// maxEventRetries bounds how often a failed event is re-enqueued before it
// is abandoned.
const maxEventRetries = 10

// Event is a time-stamped work item. TriggerAt is a tick number.
type Event struct {
	Kind      EventKind
	Car       CarID
	LotID     int
	CarEvent  CarEvent
	TriggerAt int64
	Retries   int

	seq int
}

// EventQueue is a min-heap of events ordered by trigger tick. Ties break
// on insertion order so draining is deterministic.
type EventQueue struct {
	items eventHeap
	seq   int
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push enqueues an event.
func (q *EventQueue) Push(e Event) {
	e.seq = q.seq
	q.seq++
	heap.Push(&q.items, e)
}

// PopDue removes and returns the earliest event whose trigger tick has
// passed.
func (q *EventQueue) PopDue(now int64) (Event, bool) {
	if len(q.items) == 0 || q.items[0].TriggerAt > now {
		return Event{}, false
	}
	return heap.Pop(&q.items).(Event), true
}

// Retry re-enqueues a failed event after the given delay. Returns false
// once the retry budget is spent; the event is then abandoned.
func (q *EventQueue) Retry(e Event, now, delay int64) bool {
	if e.Retries+1 > maxEventRetries {
		return false
	}
	if delay < 1 {
		delay = 1
	}
	e.Retries++
	e.TriggerAt = now + delay
	q.Push(e)
	return true
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return len(q.items)
}

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].TriggerAt != h[j].TriggerAt {
		return h[i].TriggerAt < h[j].TriggerAt
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
