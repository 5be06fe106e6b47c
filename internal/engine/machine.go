package engine

import (
	"github.com/nerrad567/pickroute/internal/route"
)

// machine holds the playback logic. It is not safe for concurrent use;
// the Engine calls it from a single goroutine.
type machine struct {
	state  ExecutionState
	status string

	timers  *timerSet
	out     Dispatcher
	logger  Logger
	publish func(EventType, Snapshot)
}

func newMachine(out Dispatcher, timers *timerSet, logger Logger, publish func(EventType, Snapshot)) *machine {
	return &machine{
		state:   ExecutionState{PauseReason: PauseNone},
		status:  statusReady,
		timers:  timers,
		out:     out,
		logger:  logger,
		publish: publish,
	}
}

func (m *machine) snapshot() Snapshot {
	return project(m.state, m.status)
}

func (m *machine) emit(t EventType) {
	m.publish(t, m.snapshot())
}

// play starts r from its first move. Any current playback is discarded,
// and a discarded pick or place has its marker cleared first.
// r must have at least one move.
func (m *machine) play(r *route.Route) {
	m.timers.cancel()
	if mv, ok := m.currentMove(); ok && mv.IsAction() {
		m.out.ActionDone()
	}
	m.state = ExecutionState{Route: r, PauseReason: PauseNone}
	if !m.activate(true) {
		return
	}
	m.logger.Info("playback started", "route_id", r.ID, "route_name", r.Name, "moves", r.Len())
	m.emit(EventStarted)
}

// resume continues a user-paused move from its preserved remaining time.
func (m *machine) resume() {
	switch m.state.State() {
	case StatePausedUser:
		m.unpause()
		if m.activate(false) {
			m.logger.Info("playback resumed", "move_index", m.state.MoveIndex, "remaining_seconds", m.state.RemainingSeconds)
			m.emit(EventResumed)
		}
	case StatePausedDetection:
		m.logger.Info("resume ignored while obstacle is detected")
	default:
		m.logger.Debug("resume ignored", "state", m.state.State())
	}
}

func (m *machine) pause() {
	if m.state.State() != StateRunning {
		m.logger.Debug("pause ignored", "state", m.state.State())
		return
	}
	m.halt(PauseUser)
	m.status = statusPausedUser
	m.logger.Info("playback paused", "move_index", m.state.MoveIndex, "remaining_seconds", m.state.RemainingSeconds)
	m.emit(EventPaused)
}

// detection applies the obstacle policy. Only a running engine pauses,
// and only a detection pause is lifted.
func (m *machine) detection(detected bool) {
	switch st := m.state.State(); {
	case detected && st == StateRunning:
		m.halt(PauseDetection)
		m.status = detectionStatus(m.state.RemainingSeconds)
		m.logger.Info("obstacle detected, playback paused", "move_index", m.state.MoveIndex, "remaining_seconds", m.state.RemainingSeconds)
		m.emit(EventDetectionPaused)
	case !detected && st == StatePausedDetection:
		m.unpause()
		if m.activate(false) {
			m.logger.Info("obstacle cleared, playback resumed", "move_index", m.state.MoveIndex, "remaining_seconds", m.state.RemainingSeconds)
			m.emit(EventDetectionCleared)
		}
	}
}

// stop returns to Idle from any state and always commands a stop.
func (m *machine) stop() {
	m.timers.cancel()
	prev := m.state.State()
	m.reset(statusStopped)
	m.out.Stop()
	m.logger.Info("playback stopped", "previous_state", prev)
	m.emit(EventStopped)
}

// fired handles a timer firing. Firings from a cancelled pair, or that
// arrive while paused, change nothing.
func (m *machine) fired(ev timerFired) {
	if !m.timers.current(ev.gen) || m.state.IsPaused || m.state.Route == nil {
		m.logger.Debug("stale timer ignored", "timer", ev.kind, "generation", ev.gen)
		return
	}

	switch ev.kind {
	case timerTick:
		if m.state.RemainingSeconds > 0 {
			m.state.RemainingSeconds--
		}
		m.timers.ticked()
		m.emit(EventTick)
	case timerCompletion:
		m.advance()
	}
}

// advance moves to the next move, wrapping at the end of the route.
func (m *machine) advance() {
	r := m.state.Route
	idx := m.state.MoveIndex
	if mv, ok := m.currentMove(); ok && mv.IsAction() {
		m.out.ActionDone()
	}

	next := 0
	if n := r.Len(); n > 0 {
		next = (idx + 1) % n
	}
	m.state.MoveIndex = next
	m.state.RemainingSeconds = 0
	if m.activate(true) {
		m.logger.Debug("move advanced", "move_index", next)
		m.emit(EventAdvanced)
	}
}

// activate issues the current move and starts its timers. A fresh move
// runs for its full duration; otherwise the preserved remaining time is
// used. An out of range index stops playback.
func (m *machine) activate(fresh bool) bool {
	r := m.state.Route
	idx := m.state.MoveIndex
	if r == nil || idx < 0 || idx >= r.Len() {
		m.logger.Error("move index out of range, stopping playback", "move_index", idx, "moves", r.Len())
		m.timers.cancel()
		m.reset(statusInvalidMove)
		m.out.Stop()
		m.emit(EventAborted)
		return false
	}

	mv := r.Moves[idx]
	if fresh {
		m.state.RemainingSeconds = mv.Duration
		m.status = freshStatus(mv)
	} else {
		m.status = continueStatus(mv, m.state.RemainingSeconds)
	}

	m.out.Move(mv, m.state.RemainingSeconds)
	m.timers.start(m.state.RemainingSeconds)
	return true
}

// halt cancels the timers and stops the platform, keeping the
// authoritative remaining time.
func (m *machine) halt(reason PauseReason) {
	m.timers.cancel()
	m.state.IsPaused = true
	m.state.PauseReason = reason
	m.out.Halt()
}

// currentMove returns the move at the current index, if there is one.
func (m *machine) currentMove() (route.Move, bool) {
	r := m.state.Route
	if r == nil || m.state.MoveIndex < 0 || m.state.MoveIndex >= r.Len() {
		return route.Move{}, false
	}
	return r.Moves[m.state.MoveIndex], true
}

func (m *machine) unpause() {
	m.state.IsPaused = false
	m.state.PauseReason = PauseNone
}

func (m *machine) reset(status string) {
	m.state = ExecutionState{PauseReason: PauseNone}
	m.status = status
}
