package influxdb_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/pickroute/internal/infrastructure/config"
	"github.com/nerrad567/pickroute/internal/infrastructure/influxdb"
)

// testConfig matches the local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "pickroute-dev-token",
		Org:           "pickroute",
		Bucket:        "playback",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		client, err := influxdb.Connect(testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *influxdb.Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() on nil = true")
	}
	// Writes on a disconnected client are dropped silently.
	c.WritePlaybackEvent(influxdb.PlaybackPoint{RouteID: "r1"})
}

func TestNewPlaybackPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := influxdb.NewPlaybackPoint(influxdb.PlaybackPoint{
		RouteID:          "route-1",
		Event:            "paused",
		State:            "paused_detection",
		MoveIndex:        2,
		RemainingSeconds: 7,
		At:               at,
	})

	line := write.PointToLineProtocol(p, time.Second)
	for _, want := range []string{
		"playback,",
		"event=paused",
		"route_id=route-1",
		"move_index=2i",
		"remaining_seconds=7i",
		`state="paused_detection"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}
}

func TestNewPlaybackPoint_DefaultsTime(t *testing.T) {
	before := time.Now()
	p := influxdb.NewPlaybackPoint(influxdb.PlaybackPoint{RouteID: "r", Event: "started"})
	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want >= %v", p.Time(), before)
	}
}

func TestWritePlaybackEvent(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	writeErrs := make(chan error, 4)
	client.SetOnError(func(err error) {
		select {
		case writeErrs <- err:
		default:
		}
	})

	client.WritePlaybackEvent(influxdb.PlaybackPoint{
		RouteID: "route-test", Event: "started", State: "running", RemainingSeconds: 5,
	})
	client.WriteDispatchFailure("serial", time.Now())
	client.Flush()

	select {
	case err := <-writeErrs:
		t.Errorf("async write error = %v", err)
	default:
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_ThenHealthCheck(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
	client.Flush()
}
