package route

import (
	"strings"
	"testing"
	"time"
)

const sampleExport = `{
  "-Nb2route": {
    "name": "Warehouse loop",
    "createdAt": "2025-10-04T09:15:00.000Z",
    "moves": {
      "-Nb2c": {"type": "action", "action": "pick"},
      "-Nb2a": {"direction": "forward", "duration": 3},
      "-Nb2b": {"direction": "left", "duration": "2"},
      "-Nb2d": {"type": "action", "action": "place", "duration": 4.0}
    }
  },
  "-Na1empty": {"name": "Never recorded"}
}`

func TestParseExport(t *testing.T) {
	routes, err := ParseExport(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseExport() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("len(routes) = %d, want 2", len(routes))
	}

	empty := routes[0]
	if empty.ID != "-Na1empty" || len(empty.Moves) != 0 {
		t.Errorf("routes[0] = %+v, want the empty route first", empty)
	}

	loop := routes[1]
	if loop.Name != "Warehouse loop" {
		t.Errorf("Name = %q", loop.Name)
	}
	wantCreated := time.Date(2025, 10, 4, 9, 15, 0, 0, time.UTC)
	if !loop.CreatedAt.Equal(wantCreated) {
		t.Errorf("CreatedAt = %v, want %v", loop.CreatedAt, wantCreated)
	}

	want := []Move{
		Movement(DirectionForward, 3),
		Movement(DirectionLeft, 2),
		ActionMove(ActionPick, DefaultActionDuration),
		ActionMove(ActionPlace, 4),
	}
	if len(loop.Moves) != len(want) {
		t.Fatalf("len(Moves) = %d, want %d", len(loop.Moves), len(want))
	}
	for i := range want {
		if loop.Moves[i] != want[i] {
			t.Errorf("Moves[%d] = %v, want %v", i, loop.Moves[i], want[i])
		}
	}

	if err := ValidateRoute(&loop); err != nil {
		t.Errorf("imported route should validate: %v", err)
	}
	if err := ValidateRoute(&empty); err == nil {
		t.Error("empty imported route should fail validation")
	}
}

func TestParseExport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{"broken"`},
		{"bad duration", `{"r": {"name": "x", "moves": {"m": {"direction": "left", "duration": "soon"}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseExport(strings.NewReader(tt.input)); err == nil {
				t.Error("ParseExport() error = nil, want error")
			}
		})
	}
}
