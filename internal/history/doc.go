// Package history records playback sessions.
//
// A Run is one session from play to stop: which route, when it started
// and ended, how many moves completed, and how often it paused. The
// Recorder consumes engine events, keeps the runs table current and
// optionally mirrors every transition to InfluxDB.
package history
