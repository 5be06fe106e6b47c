package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/pickroute/internal/engine"
	"github.com/nerrad567/pickroute/internal/history"
	"github.com/nerrad567/pickroute/internal/infrastructure/config"
	"github.com/nerrad567/pickroute/internal/infrastructure/logging"
	"github.com/nerrad567/pickroute/internal/route"
	"github.com/nerrad567/pickroute/internal/serial"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// playbackEventBuffer is the engine subscription buffer for the WebSocket relay.
const playbackEventBuffer = 64

// RouteStore is the route catalogue. *route.Registry implements it.
type RouteStore interface {
	ListRoutes(ctx context.Context) ([]route.Route, error)
	GetRoute(ctx context.Context, id string) (*route.Route, error)
	CreateRoute(ctx context.Context, rt *route.Route) error
	UpdateRoute(ctx context.Context, rt *route.Route) error
	DeleteRoute(ctx context.Context, id string) error
	Count() int
}

// RunLister lists run history. *history.SQLiteRepository implements it.
type RunLister interface {
	ListByRoute(ctx context.Context, routeID string, limit int) ([]history.Run, error)
}

// Playback is the engine surface used by the API. *engine.Engine
// implements it.
type Playback interface {
	Play(ctx context.Context, routeID string) error
	Pause()
	Resume()
	Stop()
	Snapshot() engine.Snapshot
	Subscribe(buffer int) (<-chan engine.Event, func())
}

// SerialStats reports the device link counters. *serial.Link implements it.
type SerialStats interface {
	Stats() serial.Stats
}

// HealthCheckFunc reports whether one component is healthy.
type HealthCheckFunc func(ctx context.Context) error

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Routes      RouteStore
	Runs        RunLister
	Audit       AuditLog // optional operator action journal
	Engine      Playback
	Metrics     http.Handler // Prometheus handler; not served when nil
	MetricsPath string       // "/metrics" when empty
	DB          *sql.DB      // optional, for connection pool stats
	Serial      SerialStats  // optional, nil when the link is disabled
	Checks      map[string]HealthCheckFunc
	Version     string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	routes    RouteStore
	runs      RunLister
	audit     AuditLog
	engine    Playback
	metrics   http.Handler
	metricsAt string
	db        *sql.DB
	serial    SerialStats
	checks    map[string]HealthCheckFunc
	version   string
	startTime time.Time

	server   *http.Server
	listener net.Listener
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Routes == nil {
		return nil, fmt.Errorf("route store is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("playback engine is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		routes:    deps.Routes,
		runs:      deps.Runs,
		audit:     deps.Audit,
		engine:    deps.Engine,
		metrics:   deps.Metrics,
		metricsAt: metricsPath(deps.MetricsPath),
		db:        deps.DB,
		serial:    deps.Serial,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Logger),
	}, nil
}

func metricsPath(p string) string {
	if p == "" {
		return "/metrics"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}

// Start binds the listener and serves in the background.
//
// It starts the WebSocket hub and relays engine events to it. The server
// can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.relayPlayback(srvCtx)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// relayPlayback forwards every engine event to WebSocket subscribers.
func (s *Server) relayPlayback(ctx context.Context) {
	events, unsubscribe := s.engine.Subscribe(playbackEventBuffer)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.hub.Broadcast(ChannelPlaybackState, ev)
		}
	}
}
