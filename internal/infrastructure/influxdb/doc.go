// Package influxdb records playback telemetry in InfluxDB v2.
//
// Every engine transition becomes one point in the "playback" measurement
// (tags route_id and event; fields state, move_index, remaining_seconds),
// and failed robot deliveries are counted in "dispatch". Writes are
// batched and non-blocking.
//
// Telemetry is optional. Connect returns ErrDisabled when influxdb.enabled
// is false and callers simply run without it.
package influxdb
