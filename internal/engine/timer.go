package engine

import "time"

// scheduler abstracts the clock so tests can drive time by hand.
type scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type timerKind int

const (
	timerCompletion timerKind = iota + 1
	timerTick
)

func (k timerKind) String() string {
	switch k {
	case timerCompletion:
		return "completion"
	case timerTick:
		return "tick"
	default:
		return "unknown"
	}
}

// timerFired is posted back to the event loop when a timer goes off.
type timerFired struct {
	kind timerKind
	gen  uint64
}

// timerSet is the single active pair of completion deadline and countdown
// ticker. The pair is always started and cancelled together, and every
// start moves to a new generation.
type timerSet struct {
	sched scheduler
	tick  time.Duration
	post  func(timerFired)

	gen     uint64
	armed   bool
	started time.Time
	ticks   int

	stopCompletion func() bool
	stopTick       func() bool
}

func newTimerSet(sched scheduler, tick time.Duration, post func(timerFired)) *timerSet {
	return &timerSet{sched: sched, tick: tick, post: post}
}

// start cancels any active pair and schedules a new one for a move with
// seconds left. A zero-second move completes on the next tick.
func (t *timerSet) start(seconds int) uint64 {
	t.cancel()

	t.armed = true
	t.started = t.sched.Now()
	t.ticks = 0

	deadline := time.Duration(max(seconds, 1)) * t.tick
	gen := t.gen
	t.stopCompletion = t.sched.AfterFunc(deadline, func() {
		t.post(timerFired{kind: timerCompletion, gen: gen})
	})
	t.scheduleTick()
	return gen
}

// ticked records a handled tick and schedules the next one. Ticks are
// aligned to the start of the pair so handling latency does not drift.
func (t *timerSet) ticked() {
	t.ticks++
	t.scheduleTick()
}

func (t *timerSet) scheduleTick() {
	due := t.started.Add(time.Duration(t.ticks+1) * t.tick)
	d := max(due.Sub(t.sched.Now()), 0)
	gen := t.gen
	t.stopTick = t.sched.AfterFunc(d, func() {
		t.post(timerFired{kind: timerTick, gen: gen})
	})
}

// cancel stops both timers. Firings already queued are left to current.
func (t *timerSet) cancel() {
	if t.stopCompletion != nil {
		t.stopCompletion()
		t.stopCompletion = nil
	}
	if t.stopTick != nil {
		t.stopTick()
		t.stopTick = nil
	}
	t.armed = false
	t.gen++
}

// current reports whether a firing belongs to the active pair.
func (t *timerSet) current(gen uint64) bool {
	return t.armed && gen == t.gen
}
