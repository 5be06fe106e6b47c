package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementPlayback = "playback"
	MeasurementDispatch = "dispatch"
)

// PlaybackPoint is one engine transition as recorded in the playback
// measurement.
type PlaybackPoint struct {
	RouteID          string
	Event            string
	State            string
	MoveIndex        int
	RemainingSeconds int
	At               time.Time
}

// NewPlaybackPoint builds the line-protocol point for p. Tags are the
// low-cardinality route_id and event; the position is stored as fields.
func NewPlaybackPoint(p PlaybackPoint) *write.Point {
	at := p.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		MeasurementPlayback,
		map[string]string{
			"route_id": p.RouteID,
			"event":    p.Event,
		},
		map[string]interface{}{
			"state":             p.State,
			"move_index":        p.MoveIndex,
			"remaining_seconds": p.RemainingSeconds,
		},
		at,
	)
}

// WritePlaybackEvent queues a playback point. Non-blocking; dropped when
// the client is not connected.
func (c *Client) WritePlaybackEvent(p PlaybackPoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewPlaybackPoint(p))
}

// WriteDispatchFailure records a failed delivery on a robot channel.
func (c *Client) WriteDispatchFailure(channel string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementDispatch,
		map[string]string{"channel": channel},
		map[string]interface{}{"failed": 1},
		at,
	))
}
