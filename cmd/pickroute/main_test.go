package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// writeTestConfig writes a config pointing the database into a temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
robot:
  node: "Test_Robot"
database:
  path: "` + filepath.Join(dir, "pickroute.db") + `"
  wal_mode: true
  busy_timeout: 5
logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "pickroute dev") {
		t.Errorf("output = %q", out)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(configEnvVar, "")
	cmd := newRootCmd()
	if got := getConfigPath(cmd); got != defaultConfigPath {
		t.Errorf("default = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv(configEnvVar, "/etc/pickroute/config.yaml")
	if got := getConfigPath(cmd); got != "/etc/pickroute/config.yaml" {
		t.Errorf("from env = %q", got)
	}

	if err := cmd.PersistentFlags().Set("config", "/tmp/flag.yaml"); err != nil {
		t.Fatal(err)
	}
	if got := getConfigPath(cmd); got != "/tmp/flag.yaml" {
		t.Errorf("flag should win over env, got %q", got)
	}
}

// TestServe_InvalidConfig verifies serve fails with an invalid config path.
func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	_, err := execute(t, "serve")
	if err == nil {
		t.Fatal("serve should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want loading config failure", err)
	}
}

func TestMigrateUpAndStatus(t *testing.T) {
	path := writeTestConfig(t)

	if _, err := execute(t, "--config", path, "migrate", "up"); err != nil {
		t.Fatalf("migrate up error = %v", err)
	}

	out, err := execute(t, "--config", path, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate status error = %v", err)
	}
	if strings.Contains(out, "pending") {
		t.Errorf("status after up still lists pending migrations:\n%s", out)
	}
	if strings.Count(out, "applied") < 2 {
		t.Errorf("status = %q, want both migrations applied", out)
	}

	if _, err := execute(t, "--config", path, "migrate", "down"); err != nil {
		t.Fatalf("migrate down error = %v", err)
	}
	out, err = execute(t, "--config", path, "migrate", "status")
	if err != nil {
		t.Fatalf("migrate status error = %v", err)
	}
	if strings.Count(out, "pending") != 1 {
		t.Errorf("status after down = %q, want one pending migration", out)
	}
}

func TestRouteImportAndList(t *testing.T) {
	path := writeTestConfig(t)
	export := filepath.Join(t.TempDir(), "routes.json")
	content := `{
		"-Nr1": {
			"name": "Aisle 4",
			"moves": {
				"-Ma2": {"type": "action", "action": "pick"},
				"-Ma1": {"direction": "forward", "duration": "3"}
			}
		}
	}`
	if err := os.WriteFile(export, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", path, "route", "import", export)
	if err != nil {
		t.Fatalf("route import error = %v", err)
	}
	if !strings.Contains(out, "imported 1 routes") {
		t.Errorf("import output = %q", out)
	}

	out, err = execute(t, "--config", path, "route", "import", export)
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}
	if !strings.Contains(out, "1 skipped") {
		t.Errorf("second import output = %q, want route skipped", out)
	}

	out, err = execute(t, "--config", path, "route", "list")
	if err != nil {
		t.Fatalf("route list error = %v", err)
	}
	if !strings.Contains(out, "-Nr1") || !strings.Contains(out, "Aisle 4") {
		t.Errorf("list output = %q", out)
	}
}

func TestRouteImport_MissingFile(t *testing.T) {
	path := writeTestConfig(t)
	if _, err := execute(t, "--config", path, "route", "import", "/nonexistent/routes.json"); err == nil {
		t.Error("import of a missing file should fail")
	}
}

type countingObserver struct {
	mu       sync.Mutex
	channels []string
}

func (o *countingObserver) DispatchFailure(channel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.channels = append(o.channels, channel)
}

func TestDispatchObservers_FanOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	dispatchObservers{a, b}.DispatchFailure("serial")

	for i, o := range []*countingObserver{a, b} {
		if len(o.channels) != 1 || o.channels[0] != "serial" {
			t.Errorf("observer %d saw %v", i, o.channels)
		}
	}
}
