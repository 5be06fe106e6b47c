package engine

import (
	"sync"

	"github.com/nerrad567/pickroute/internal/route"
)

type requestKind int

const (
	reqPlay requestKind = iota + 1
	reqContinue
	reqResume
	reqPause
	reqStop
	reqDetection
	reqTimer
)

// request is one unit of work for the event loop. resp, when set,
// receives exactly one value.
type request struct {
	kind     requestKind
	route    *route.Route
	detected bool
	timer    timerFired
	resp     chan error
}

// requestQueue is an unbounded FIFO fed from any goroutine and drained by
// the event loop. signal holds at most one pending wake-up.
type requestQueue struct {
	mu     sync.Mutex
	items  []request
	closed bool
	signal chan struct{}
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		items:  make([]request, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// enqueue appends r. It returns false once the queue is closed.
func (q *requestQueue) enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue pops the front request without blocking.
func (q *requestQueue) tryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return request{}, false
	}
	r := q.items[0]
	q.items[0] = request{}
	q.items = q.items[1:]
	return r, true
}

// wait returns a channel that is signalled when requests may be available.
func (q *requestQueue) wait() <-chan struct{} {
	return q.signal
}

// close rejects further requests and returns whatever was still queued.
func (q *requestQueue) close() []request {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	rest := q.items
	q.items = nil
	return rest
}
