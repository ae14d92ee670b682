package events

// eventRing is a fixed-capacity ring buffer of events with eviction on
// insert. Oldest entries are overwritten once at capacity.
type eventRing struct {
	events   []Event
	capacity int
	head     int // next write position
	size     int
	total    int // lifetime count, survives eviction
}

func newEventRing(capacity int) *eventRing {
	if capacity < 1 {
		capacity = 512
	}
	return &eventRing{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

func (r *eventRing) add(e Event) {
	r.events[r.head] = e
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
	r.total++
}

// all returns buffered events oldest first.
func (r *eventRing) all() []Event {
	out := make([]Event, r.size)
	start := (r.head - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		out[i] = r.events[(start+i)%r.capacity]
	}
	return out
}
