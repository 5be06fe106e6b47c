package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/pickroute/internal/infrastructure/database"
	"github.com/nerrad567/pickroute/migrations"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestSQLiteRepository_CreateUpdateGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()

	run := &Run{ID: "run-1", RouteID: "r1", RouteName: "Aisle 4", StartedAt: t0, Status: StatusRunning}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil for an open run", got.EndedAt)
	}
	if !got.StartedAt.Equal(t0) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, t0)
	}

	end := t0.Add(90 * time.Second)
	run.EndedAt = &end
	run.Status = StatusStopped
	run.MovesCompleted = 7
	run.UserPauses = 1
	run.DetectionPauses = 2
	if err := repo.Update(ctx, run); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err = repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != StatusStopped || got.MovesCompleted != 7 || got.UserPauses != 1 || got.DetectionPauses != 2 {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if err := repo.Update(ctx, &Run{ID: "nope", Status: StatusStopped}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_ListByRoute(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		run := &Run{ID: id, RouteID: "r1", StartedAt: t0.Add(time.Duration(i) * time.Minute), Status: StatusStopped}
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}
	if err := repo.Create(ctx, &Run{ID: "other", RouteID: "r2", StartedAt: t0, Status: StatusStopped}); err != nil {
		t.Fatalf("Create(other) error = %v", err)
	}

	runs, err := repo.ListByRoute(ctx, "r1", 2)
	if err != nil {
		t.Fatalf("ListByRoute() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("ListByRoute() = %+v, want newest two runs c, b", runs)
	}

	none, err := repo.ListByRoute(ctx, "r9", 0)
	if err != nil {
		t.Fatalf("ListByRoute() error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ListByRoute() = %v, want empty non-nil slice", none)
	}
}

func TestSQLiteRepository_AbortRunning(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t).DB)
	ctx := context.Background()

	if err := repo.Create(ctx, &Run{ID: "open", RouteID: "r1", StartedAt: t0, Status: StatusRunning}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &Run{ID: "done", RouteID: "r1", StartedAt: t0, Status: StatusStopped}); err != nil {
		t.Fatal(err)
	}

	n, err := repo.AbortRunning(ctx, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("AbortRunning() error = %v", err)
	}
	if n != 1 {
		t.Errorf("AbortRunning() = %d, want 1", n)
	}

	got, _ := repo.GetByID(ctx, "open")
	if got.Status != StatusAborted || got.EndedAt == nil {
		t.Errorf("open run = %+v, want aborted with end time", got)
	}
}
