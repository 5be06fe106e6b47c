package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/pickroute/internal/detection"
	"github.com/nerrad567/pickroute/internal/engine"
)

func TestCollector_ObserveEvent(t *testing.T) {
	c := New()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues(string(engine.StateIdle))))

	c.ObserveEvent(engine.Event{Type: engine.EventStarted, Snapshot: engine.Snapshot{State: engine.StateRunning, RemainingSeconds: 3}})
	c.ObserveEvent(engine.Event{Type: engine.EventTick, Snapshot: engine.Snapshot{State: engine.StateRunning, RemainingSeconds: 2}})
	c.ObserveEvent(engine.Event{Type: engine.EventDetectionPaused, Snapshot: engine.Snapshot{State: engine.StatePausedDetection, RemainingSeconds: 2}})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("started")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.transitions.WithLabelValues("tick")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("detection_paused")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.remaining))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues(string(engine.StatePausedDetection))))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.state.WithLabelValues(string(engine.StateRunning))))
}

func TestCollector_Observers(t *testing.T) {
	c := New()

	c.DispatchFailure("serial")
	c.DispatchFailure("serial")
	c.DispatchFailure("remote")
	c.DetectionPayload(detection.Malformed)
	c.DetectionPayload(detection.Detected)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.dispatchFailures.WithLabelValues("serial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatchFailures.WithLabelValues("remote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.detections.WithLabelValues(detection.Malformed.String())))
}

func TestCollector_Run(t *testing.T) {
	c := New()
	events := make(chan engine.Event, 2)
	events <- engine.Event{Type: engine.EventStarted, Snapshot: engine.Snapshot{State: engine.StateRunning}}
	events <- engine.Event{Type: engine.EventStopped, Snapshot: engine.Snapshot{State: engine.StateIdle}}
	close(events)

	c.Run(events)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("stopped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues(string(engine.StateIdle))))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.DispatchFailure("serial")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `pickroute_dispatch_failures_total{channel="serial"} 1`), body)
	assert.Contains(t, body, "pickroute_engine_state")
	assert.Contains(t, body, "go_goroutines")
}
