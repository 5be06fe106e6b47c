package engine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/pickroute/internal/route"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *recordingDispatcher) Move(m route.Move, seconds int) {
	d.record(fmt.Sprintf("move %s %d", m, seconds))
}
func (d *recordingDispatcher) ActionDone() { d.record("action_done") }
func (d *recordingDispatcher) Halt()       { d.record("halt") }
func (d *recordingDispatcher) Stop()       { d.record("stop") }

// take returns the calls recorded so far and forgets them.
func (d *recordingDispatcher) take() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	calls := d.calls
	d.calls = nil
	return calls
}

func (d *recordingDispatcher) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

type harness struct {
	clock  *fakeClock
	out    *recordingDispatcher
	m      *machine
	events []EventType
	last   Snapshot

	hold bool
	held []timerFired
}

func newHarness() *harness {
	h := &harness{clock: newFakeClock(), out: &recordingDispatcher{}}
	timers := newTimerSet(h.clock, time.Second, h.post)
	h.m = newMachine(h.out, timers, noopLogger{}, func(t EventType, snap Snapshot) {
		h.events = append(h.events, t)
		h.last = snap
	})
	return h
}

// post delivers a firing straight to the machine, or holds it to model a
// firing that was already queued behind other work.
func (h *harness) post(ev timerFired) {
	if h.hold {
		h.held = append(h.held, ev)
		return
	}
	h.m.fired(ev)
}

func (h *harness) deliverHeld() {
	held := h.held
	h.held = nil
	for _, ev := range held {
		h.m.fired(ev)
	}
}

func (h *harness) advance(seconds int) {
	h.clock.Advance(time.Duration(seconds) * time.Second)
}

func pickRoute() *route.Route {
	return &route.Route{
		ID:   "r1",
		Name: "Pick loop",
		Moves: []route.Move{
			route.Movement(route.DirectionForward, 3),
			route.ActionMove(route.ActionPick, 10),
		},
	}
}

func singleMoveRoute(d route.Direction, seconds int) *route.Route {
	return &route.Route{ID: "single", Name: "Single", Moves: []route.Move{route.Movement(d, seconds)}}
}

func TestMachine_PickLoopScenario(t *testing.T) {
	h := newHarness()

	h.m.play(pickRoute())
	assert.Equal(t, []string{"move forward/3s 3"}, h.out.take())
	assert.Equal(t, StateRunning, h.last.State)
	assert.Equal(t, "Moving: forward", h.last.Status)

	h.advance(2)
	assert.Equal(t, 1, h.m.state.RemainingSeconds)

	h.m.pause()
	assert.Equal(t, []string{"halt"}, h.out.take())
	assert.Equal(t, StatePausedUser, h.last.State)
	assert.Equal(t, 1, h.last.RemainingSeconds)
	assert.Equal(t, "Paused by user", h.last.Status)

	h.advance(10)
	assert.Equal(t, 1, h.m.state.RemainingSeconds, "time does not pass while paused")

	h.m.resume()
	assert.Equal(t, []string{"move forward/3s 1"}, h.out.take())
	assert.Equal(t, "Continuing: forward (1s remaining)", h.last.Status)

	h.advance(1)
	assert.Equal(t, []string{"move pick/10s 10"}, h.out.take())
	assert.Equal(t, 1, h.m.state.MoveIndex)
	assert.Equal(t, 10, h.m.state.RemainingSeconds)
	assert.Equal(t, "Picking...", h.last.Status)

	h.advance(10)
	assert.Equal(t, []string{"action_done", "move forward/3s 3"}, h.out.take())
	assert.Equal(t, 0, h.m.state.MoveIndex, "playback wraps to the first move")
	assert.Equal(t, StateRunning, h.m.state.State())
}

func TestMachine_PlayThenStop(t *testing.T) {
	h := newHarness()
	h.m.play(pickRoute())
	h.out.take()

	h.m.stop()

	assert.Equal(t, ExecutionState{PauseReason: PauseNone}, h.m.state)
	assert.Equal(t, []string{"stop"}, h.out.take())
	assert.Equal(t, StateIdle, h.last.State)
	assert.Equal(t, "Stopped", h.last.Status)

	h.advance(30)
	assert.Empty(t, h.out.take(), "no timer survives a stop")
	assert.Zero(t, h.clock.Pending())
}

func TestMachine_StopWhileIdleStillCommandsStop(t *testing.T) {
	h := newHarness()
	h.m.stop()
	assert.Equal(t, []string{"stop"}, h.out.take())
	assert.Equal(t, StateIdle, h.m.state.State())
}

func TestMachine_PauseResumePreservesRemaining(t *testing.T) {
	tests := []struct {
		name    string
		elapsed int
		want    int
	}{
		{"immediately", 0, 8},
		{"after one tick", 1, 7},
		{"after five ticks", 5, 3},
		{"on the last tick", 7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.m.play(singleMoveRoute(route.DirectionLeft, 8))
			h.advance(tt.elapsed)

			for range 3 {
				h.m.pause()
				require.Equal(t, tt.want, h.m.state.RemainingSeconds)
				h.advance(20)
				h.m.resume()
				require.Equal(t, tt.want, h.m.state.RemainingSeconds)
			}

			calls := h.out.take()
			assert.Equal(t, fmt.Sprintf("move left/8s %d", tt.want), calls[len(calls)-1])
		})
	}
}

func TestMachine_DetectionScenario(t *testing.T) {
	h := newHarness()
	h.m.play(singleMoveRoute(route.DirectionForward, 10))
	h.out.take()
	h.advance(3)

	h.m.detection(true)
	assert.Equal(t, []string{"halt"}, h.out.take())
	assert.Equal(t, StatePausedDetection, h.last.State)
	assert.Equal(t, PauseDetection, h.last.PauseReason)
	assert.Equal(t, "DUST DETECTED - Paused (7s remaining)", h.last.Status)

	h.advance(4)
	h.m.detection(false)
	assert.Equal(t, []string{"move forward/10s 7"}, h.out.take())
	assert.Equal(t, StateRunning, h.last.State)
	assert.Equal(t, EventDetectionCleared, h.events[len(h.events)-1])
}

func TestMachine_DetectionNeverOverridesUserPause(t *testing.T) {
	h := newHarness()
	h.m.play(singleMoveRoute(route.DirectionRight, 5))
	h.advance(1)
	h.m.pause()
	h.out.take()

	h.m.detection(true)
	assert.Equal(t, StatePausedUser, h.m.state.State())

	h.m.detection(false)
	assert.Equal(t, StatePausedUser, h.m.state.State(), "a user pause is never auto-resumed")
	assert.Empty(t, h.out.take())
	assert.Equal(t, 4, h.m.state.RemainingSeconds)
}

func TestMachine_DetectionPolicyNoOps(t *testing.T) {
	h := newHarness()

	h.m.detection(true)
	h.m.detection(false)
	assert.Equal(t, StateIdle, h.m.state.State())

	h.m.play(singleMoveRoute(route.DirectionForward, 5))
	h.out.take()
	h.m.detection(false)
	assert.Equal(t, StateRunning, h.m.state.State())

	h.m.detection(true)
	h.m.detection(true)
	assert.Equal(t, []string{"halt"}, h.out.take(), "a repeated detection does not halt twice")
}

func TestMachine_ResumeIgnoredWhileDetectionPaused(t *testing.T) {
	h := newHarness()
	h.m.play(singleMoveRoute(route.DirectionForward, 5))
	h.m.detection(true)
	h.out.take()

	h.m.resume()
	h.m.pause()

	assert.Equal(t, StatePausedDetection, h.m.state.State())
	assert.Empty(t, h.out.take())
}

func TestMachine_StaleTimerIgnored(t *testing.T) {
	h := newHarness()
	h.m.play(singleMoveRoute(route.DirectionForward, 2))

	h.hold = true
	h.advance(2) // tick and completion are queued but not yet handled
	require.Len(t, h.held, 2)

	h.m.pause()
	h.hold = false
	h.deliverHeld()
	assert.Equal(t, 2, h.m.state.RemainingSeconds)
	assert.Equal(t, StatePausedUser, h.m.state.State())

	h.m.resume()
	h.out.take()
	h.hold = true
	h.advance(1)
	h.hold = false
	held := h.held
	h.held = nil

	// A new pair is started by the resume; replaying the old one's firings
	// must not count.
	h.m.stop()
	h.m.play(singleMoveRoute(route.DirectionForward, 2))
	for _, ev := range held {
		h.m.fired(ev)
	}
	assert.Equal(t, 2, h.m.state.RemainingSeconds)
	assert.Equal(t, 0, h.m.state.MoveIndex)
}

func TestMachine_ZeroDurationCompletesOnNextTick(t *testing.T) {
	h := newHarness()
	h.m.play(&route.Route{ID: "z", Moves: []route.Move{
		route.Movement(route.DirectionForward, 0),
		route.Movement(route.DirectionLeft, 2),
	}})
	assert.Equal(t, []string{"move forward/0s 0"}, h.out.take())

	h.advance(1)
	assert.Equal(t, []string{"move left/2s 2"}, h.out.take())
	assert.Equal(t, 1, h.m.state.MoveIndex)
}

func TestMachine_CompletionAdvancesByOne(t *testing.T) {
	h := newHarness()
	r := &route.Route{ID: "three", Moves: []route.Move{
		route.Movement(route.DirectionForward, 3),
		route.Movement(route.DirectionBackward, 2),
		route.ActionMove(route.ActionPlace, 1),
	}}
	h.m.play(r)

	for range 4 {
		h.advance(1)
		h.m.pause()
		h.advance(5)
		h.m.resume()
	}
	// forward took 3s, backward 2s: the fourth second lands inside move 1.
	assert.Equal(t, 1, h.m.state.MoveIndex)

	h.advance(1)
	assert.Equal(t, 2, h.m.state.MoveIndex)
	h.advance(1)
	assert.Equal(t, 0, h.m.state.MoveIndex)

	calls := h.out.take()
	assert.Contains(t, calls, "action_done")
	assert.Equal(t, "move forward/3s 3", calls[len(calls)-1])
}

func TestMachine_PlayWhileRunningRestartsFresh(t *testing.T) {
	h := newHarness()
	h.m.play(pickRoute())
	h.advance(4)
	require.Equal(t, 1, h.m.state.MoveIndex)
	h.out.take()

	h.m.play(pickRoute())
	assert.Equal(t, 0, h.m.state.MoveIndex)
	assert.Equal(t, 3, h.m.state.RemainingSeconds)
	assert.Equal(t, []string{"action_done", "move forward/3s 3"}, h.out.take(),
		"the interrupted pick has its marker cleared")

	h.advance(3)
	assert.Equal(t, 1, h.m.state.MoveIndex, "timers of the discarded run do not fire")
}

func TestMachine_PlayDuringMovementKeepsMarker(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"idle", func(*harness) {}},
		{"running a movement", func(h *harness) { h.m.play(pickRoute()) }},
		{"paused on a movement", func(h *harness) { h.m.play(pickRoute()); h.m.pause() }},
		{"after stop", func(h *harness) { h.m.play(pickRoute()); h.advance(4); h.m.stop() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)
			h.out.take()

			h.m.play(pickRoute())
			assert.Equal(t, []string{"move forward/3s 3"}, h.out.take())
		})
	}
}

func TestMachine_InvalidMoveIndexStops(t *testing.T) {
	h := newHarness()
	h.m.play(pickRoute())
	h.m.pause()
	h.out.take()

	h.m.state.MoveIndex = 9
	h.m.resume()

	assert.Equal(t, StateIdle, h.m.state.State())
	assert.Equal(t, []string{"stop"}, h.out.take())
	assert.Equal(t, EventAborted, h.events[len(h.events)-1])
	assert.Zero(t, h.clock.Pending())
}

func TestMachine_ResumeWithNothingLeftCompletesOnNextTick(t *testing.T) {
	h := newHarness()
	h.m.play(singleMoveRoute(route.DirectionForward, 1))
	h.m.pause()
	h.m.state.RemainingSeconds = 0
	h.m.resume()
	h.out.take()

	assert.Equal(t, 0, h.m.state.RemainingSeconds)
	h.advance(1)
	assert.Equal(t, 1, h.m.state.RemainingSeconds, "completion restarts the only move")
}

func TestTimerSet_Generations(t *testing.T) {
	clock := newFakeClock()
	var fired []timerFired
	ts := newTimerSet(clock, time.Second, func(ev timerFired) { fired = append(fired, ev) })

	g1 := ts.start(2)
	assert.True(t, ts.current(g1))
	assert.Equal(t, 2, clock.Pending())

	g2 := ts.start(1)
	assert.NotEqual(t, g1, g2)
	assert.False(t, ts.current(g1))
	assert.Equal(t, 2, clock.Pending(), "starting a pair cancels the previous one")

	ts.cancel()
	assert.False(t, ts.current(g2))
	assert.Zero(t, clock.Pending())
	clock.Advance(5 * time.Second)
	assert.Empty(t, fired)
}
