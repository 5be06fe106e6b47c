package route

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockRepository is an in-memory Repository.
type mockRepository struct {
	routes  map[string]*Route
	listErr error
	mu      sync.RWMutex
}

func newMockRepository() *mockRepository {
	return &mockRepository{routes: make(map[string]*Route)}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.routes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rt.DeepCopy(), nil
}

func (m *mockRepository) List(_ context.Context) ([]Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	routes := make([]Route, 0, len(m.routes))
	for _, rt := range m.routes {
		routes = append(routes, *rt.DeepCopy())
	}
	return routes, nil
}

func (m *mockRepository) Create(_ context.Context, rt *Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[rt.ID]; ok {
		return ErrExists
	}
	m.routes[rt.ID] = rt.DeepCopy()
	return nil
}

func (m *mockRepository) Update(_ context.Context, rt *Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[rt.ID]; !ok {
		return ErrNotFound
	}
	m.routes[rt.ID] = rt.DeepCopy()
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return ErrNotFound
	}
	delete(m.routes, id)
	return nil
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestRegistry_RefreshCache(t *testing.T) {
	repo := newMockRepository()
	repo.routes["r1"] = testRoute("r1", "One")
	repo.routes["r2"] = testRoute("r2", "Two")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}

	repo.listErr = errors.New("disk on fire")
	if err := reg.RefreshCache(context.Background()); err == nil {
		t.Error("RefreshCache() should fail when List fails")
	}
}

func TestRegistry_GetRoute_ReturnsCopy(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	rt := testRoute("", "Aisle")
	if err := reg.CreateRoute(ctx, rt); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}
	if rt.ID == "" {
		t.Fatal("CreateRoute() should generate an ID")
	}

	first, err := reg.GetRoute(ctx, rt.ID)
	if err != nil {
		t.Fatalf("GetRoute() error = %v", err)
	}
	first.Moves[0].Duration = 999

	second, err := reg.GetRoute(ctx, rt.ID)
	if err != nil {
		t.Fatalf("GetRoute() error = %v", err)
	}
	if second.Moves[0].Duration != 3 {
		t.Errorf("cached route was mutated through a returned copy: %d", second.Moves[0].Duration)
	}

	if _, err := reg.GetRoute(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoute(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_CreateRoute_Validation(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	err := reg.CreateRoute(ctx, &Route{Name: "Empty"})
	if !errors.Is(err, ErrNoMoves) {
		t.Errorf("CreateRoute(no moves) error = %v, want ErrNoMoves", err)
	}
	if len(repo.routes) != 0 || reg.Count() != 0 {
		t.Error("invalid route must not be persisted or cached")
	}

	rt := testRoute("r1", "  Padded  ")
	if err := reg.CreateRoute(ctx, rt); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}
	if rt.Name != "Padded" {
		t.Errorf("Name = %q, want trimmed", rt.Name)
	}

	if err := reg.CreateRoute(ctx, testRoute("r1", "Again")); !errors.Is(err, ErrExists) {
		t.Errorf("CreateRoute(duplicate) error = %v, want ErrExists", err)
	}
}

func TestRegistry_ListRoutes_Sorted(t *testing.T) {
	reg := NewRegistry(newMockRepository())
	ctx := context.Background()

	for _, rt := range []*Route{testRoute("c", "Charlie"), testRoute("a", "Alpha"), testRoute("b", "Bravo")} {
		if err := reg.CreateRoute(ctx, rt); err != nil {
			t.Fatalf("CreateRoute() error = %v", err)
		}
	}

	routes, err := reg.ListRoutes(ctx)
	if err != nil {
		t.Fatalf("ListRoutes() error = %v", err)
	}
	want := []string{"Alpha", "Bravo", "Charlie"}
	for i, rt := range routes {
		if rt.Name != want[i] {
			t.Errorf("routes[%d] = %q, want %q", i, rt.Name, want[i])
		}
	}
}

func TestRegistry_UpdateAndDelete(t *testing.T) {
	reg := NewRegistry(newMockRepository())
	ctx := context.Background()

	rt := testRoute("r1", "Before")
	if err := reg.CreateRoute(ctx, rt); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}

	rt.Name = "After"
	if err := reg.UpdateRoute(ctx, rt); err != nil {
		t.Fatalf("UpdateRoute() error = %v", err)
	}
	got, _ := reg.GetRoute(ctx, "r1")
	if got.Name != "After" {
		t.Errorf("Name = %q after update", got.Name)
	}

	rt.Moves = nil
	if err := reg.UpdateRoute(ctx, rt); !errors.Is(err, ErrNoMoves) {
		t.Errorf("UpdateRoute(no moves) error = %v, want ErrNoMoves", err)
	}

	if err := reg.DeleteRoute(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRoute() error = %v", err)
	}
	if _, err := reg.GetRoute(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoute after delete error = %v, want ErrNotFound", err)
	}
	if err := reg.DeleteRoute(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteRoute(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	reg := NewRegistry(newMockRepository())
	ctx := context.Background()
	if err := reg.CreateRoute(ctx, testRoute("r1", "Shared")); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt, err := reg.GetRoute(ctx, "r1")
			if err != nil {
				t.Errorf("GetRoute() error = %v", err)
				return
			}
			rt.Moves[0].Duration++
		}()
	}
	wg.Wait()

	rt, _ := reg.GetRoute(ctx, "r1")
	if rt.Moves[0].Duration != 3 {
		t.Errorf("Duration = %d, want 3", rt.Moves[0].Duration)
	}
}
