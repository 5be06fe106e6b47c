package route

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Logger is the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the cached route catalogue.
//
// Routes are loaded with RefreshCache at startup and kept in sync by the
// CRUD methods. Every route handed out is a deep copy, which is what lets
// the engine treat a route as an immutable snapshot for a whole session.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Route
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry wraps repo with a cache.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Route),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads every route from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	routes, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading routes: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Route, len(routes))
	for i := range routes {
		r.cache[routes[i].ID] = routes[i].DeepCopy()
	}

	r.logger.Info("route cache refreshed", "count", len(routes))
	return nil
}

// GetRoute returns a deep copy of the route with id, or ErrNotFound.
func (r *Registry) GetRoute(_ context.Context, id string) (*Route, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return cached.DeepCopy(), nil
}

// ListRoutes returns deep copies of all routes sorted by name.
func (r *Registry) ListRoutes(_ context.Context) ([]Route, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	routes := make([]Route, 0, len(r.cache))
	for _, rt := range r.cache {
		routes = append(routes, *rt.DeepCopy())
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Name != routes[j].Name {
			return routes[i].Name < routes[j].Name
		}
		return routes[i].ID < routes[j].ID
	})
	return routes, nil
}

// CreateRoute validates, persists and caches rt. An empty ID is generated.
func (r *Registry) CreateRoute(ctx context.Context, rt *Route) error {
	if rt == nil {
		return ErrInvalidRoute
	}
	if rt.ID == "" {
		rt.ID = GenerateID()
	}
	rt.Name = strings.TrimSpace(rt.Name)

	if err := ValidateRoute(rt); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, rt); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rt.ID] = rt.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("route created", "id", rt.ID, "name", rt.Name, "moves", len(rt.Moves))
	return nil
}

// UpdateRoute validates, persists and re-caches rt.
func (r *Registry) UpdateRoute(ctx context.Context, rt *Route) error {
	if rt == nil {
		return ErrInvalidRoute
	}
	rt.Name = strings.TrimSpace(rt.Name)

	if err := ValidateRoute(rt); err != nil {
		return err
	}
	if err := r.repo.Update(ctx, rt); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rt.ID] = rt.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("route updated", "id", rt.ID, "name", rt.Name)
	return nil
}

// DeleteRoute removes a route from persistence and cache.
func (r *Registry) DeleteRoute(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("route deleted", "id", id)
	return nil
}

// Count returns the number of cached routes.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
