package dispatch

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/pickroute/internal/remote"
	"github.com/nerrad567/pickroute/internal/route"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func fixedClock() time.Time { return fixedNow }

type recordingRemote struct {
	mu      sync.Mutex
	updates []remote.Update
	err     error
	block   chan struct{}
}

func (r *recordingRemote) Write(_ context.Context, u remote.Update) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return r.err
}

func (r *recordingRemote) transcript(t *testing.T) []byte {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var buf bytes.Buffer
	for _, u := range r.updates {
		payload, err := u.MarshalPayload()
		require.NoError(t, err)
		buf.Write(payload)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

type recordingSerial struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *recordingSerial) Send(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, cmd)
	return s.err
}

func (s *recordingSerial) transcript() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	for _, cmd := range s.sent {
		buf.WriteString(cmd)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

type countingObserver struct {
	mu       sync.Mutex
	failures map[string]int
}

func (o *countingObserver) DispatchFailure(channel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failures == nil {
		o.failures = make(map[string]int)
	}
	o.failures[channel]++
}

func (o *countingObserver) count(channel string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failures[channel]
}

// playSequence drives the dispatcher through a forward move, a pick, a
// pause, a resume, and a stop.
func playSequence(d *Dispatcher) {
	d.Move(route.Movement(route.DirectionForward, 3), 3)
	d.Move(route.ActionMove(route.ActionPick, 10), 10)
	d.ActionDone()
	d.Halt()
	d.Move(route.Movement(route.DirectionForward, 5), 2)
	d.Stop()
}

func TestDispatcher_Transcripts(t *testing.T) {
	rem := &recordingRemote{}
	ser := &recordingSerial{}
	d := New(rem, ser, 16, WithClock(fixedClock))
	defer d.Close()

	playSequence(d)
	require.NoError(t, d.Flush(context.Background()))

	g := goldie.New(t)
	g.Assert(t, "remote_transcript", rem.transcript(t))
	g.Assert(t, "serial_transcript", ser.transcript())
}

func TestDispatcher_SerialDisabled(t *testing.T) {
	rem := &recordingRemote{}
	d := New(rem, nil, 16, WithClock(fixedClock))
	defer d.Close()

	playSequence(d)
	require.NoError(t, d.Flush(context.Background()))

	assert.Len(t, rem.updates, 6)
}

func TestDispatcher_FailingSerialDoesNotBlockRemote(t *testing.T) {
	rem := &recordingRemote{}
	ser := &recordingSerial{err: errors.New("port gone")}
	obs := &countingObserver{}
	d := New(rem, ser, 16, WithClock(fixedClock), WithObserver(obs))
	defer d.Close()

	playSequence(d)
	require.NoError(t, d.Flush(context.Background()))

	assert.Len(t, rem.updates, 6, "every remote write is still attempted")
	assert.Equal(t, 6, obs.count(ChannelSerial), "one failure per serial command")
	assert.Zero(t, obs.count(ChannelRemote))
}

func TestDispatcher_FailingRemoteKeepsOrder(t *testing.T) {
	rem := &recordingRemote{err: errors.New("broker offline")}
	ser := &recordingSerial{}
	obs := &countingObserver{}
	d := New(rem, ser, 16, WithClock(fixedClock), WithObserver(obs))
	defer d.Close()

	playSequence(d)
	require.NoError(t, d.Flush(context.Background()))

	assert.Equal(t, []string{"F", "S", "P1", "S", "F", "S"}, ser.sent)
	assert.Equal(t, 6, obs.count(ChannelRemote))
}

func TestDispatcher_QueueFullDrops(t *testing.T) {
	rem := &recordingRemote{block: make(chan struct{})}
	obs := &countingObserver{}
	d := New(rem, nil, 1, WithClock(fixedClock), WithObserver(obs))

	// The worker holds the first update, the queue holds the second,
	// and the rest are dropped.
	d.Halt()
	require.Eventually(t, func() bool { return len(d.remote.jobs) == 0 }, time.Second, 5*time.Millisecond)
	d.Halt()
	d.Halt()
	d.Halt()

	assert.Equal(t, 2, obs.count(ChannelRemote))

	close(rem.block)
	d.Close()
	assert.Len(t, rem.updates, 2)
}

func TestDispatcher_InvalidMoveSkipped(t *testing.T) {
	rem := &recordingRemote{}
	ser := &recordingSerial{}
	d := New(rem, ser, 16, WithClock(fixedClock))
	defer d.Close()

	d.Move(route.Move{Type: route.MoveTypeMovement, Direction: "up"}, 4)
	require.NoError(t, d.Flush(context.Background()))

	assert.Empty(t, rem.updates)
	assert.Empty(t, ser.sent)
}

func TestDispatcher_CloseDrainsAndDropsLater(t *testing.T) {
	rem := &recordingRemote{}
	obs := &countingObserver{}
	d := New(rem, nil, 16, WithClock(fixedClock), WithObserver(obs))

	d.Stop()
	d.Close()
	d.Stop()

	assert.Len(t, rem.updates, 1)
	assert.Equal(t, 1, obs.count(ChannelRemote))
	assert.NoError(t, d.Flush(context.Background()))
}

func TestDispatcher_FlushHonoursContext(t *testing.T) {
	rem := &recordingRemote{block: make(chan struct{})}
	d := New(rem, nil, 4, WithClock(fixedClock))
	defer func() {
		close(rem.block)
		d.Close()
	}()

	d.Halt()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Flush(ctx), context.DeadlineExceeded)
}
