package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/nerrad567/pickroute/internal/infrastructure/config"
)

const (
	defaultBaudRate          = 9600
	defaultReconnectInterval = 5 * time.Second
)

var (
	// ErrNotConnected is returned by Send while no port is open.
	ErrNotConnected = errors.New("serial: not connected")

	// ErrInvalidCommand is returned for commands outside the robot vocabulary.
	ErrInvalidCommand = errors.New("serial: invalid command")
)

// validCommands is the firmware vocabulary.
var validCommands = map[string]struct{}{
	"F": {}, "B": {}, "L": {}, "R": {}, "S": {}, "P0": {}, "P1": {},
}

// ValidCommand reports whether cmd is understood by the firmware.
func ValidCommand(cmd string) bool {
	_, ok := validCommands[cmd]
	return ok
}

// Opener opens a port. It is serial.Open in production.
type Opener func(name string, mode *serial.Mode) (io.WriteCloser, error)

func openPort(name string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(name, mode)
}

// Logger is the logging interface used by the link.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Stats are cumulative link counters.
type Stats struct {
	CommandsSent  uint64 `json:"commands_sent"`
	WriteErrors   uint64 `json:"write_errors"`
	NotConnected  uint64 `json:"not_connected"`
	Reconnects    uint64 `json:"reconnects"`
	LastCommand   string `json:"last_command,omitempty"`
	PortName      string `json:"port"`
	CurrentlyOpen bool   `json:"open"`
}

// Link owns the serial port.
//
// Thread Safety:
//   - Send, Open and Close are serialised by an internal mutex.
type Link struct {
	cfg       config.SerialConfig
	opener    Opener
	logger    Logger
	reconnect time.Duration

	mu      sync.Mutex
	port    io.WriteCloser
	lastCmd string
	closed  bool

	sent         atomic.Uint64
	writeErrors  atomic.Uint64
	notConnected atomic.Uint64
	opens        atomic.Uint64
}

// Option configures a Link.
type Option func(*Link)

// WithOpener replaces serial.Open, mainly for tests.
func WithOpener(o Opener) Option {
	return func(l *Link) { l.opener = o }
}

// WithReconnectInterval overrides the configured reopen interval.
func WithReconnectInterval(d time.Duration) Option {
	return func(l *Link) {
		if d > 0 {
			l.reconnect = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(l *Link) { l.logger = logger }
}

// New creates a closed link for cfg.
func New(cfg config.SerialConfig, opts ...Option) *Link {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = defaultBaudRate
	}
	reconnect := time.Duration(cfg.ReconnectInterval) * time.Second
	if reconnect <= 0 {
		reconnect = defaultReconnectInterval
	}
	l := &Link{cfg: cfg, opener: openPort, logger: noopLogger{}, reconnect: reconnect}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Mode returns the 8N1 port mode at the configured baud rate.
func (l *Link) Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: l.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens the configured port, closing any previous one.
func (l *Link) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = false
	if l.port != nil {
		l.port.Close() //nolint:errcheck // Replacing the port
		l.port = nil
	}

	port, err := l.opener(l.cfg.Port, l.Mode())
	if err != nil {
		return fmt.Errorf("opening serial port %s: %w", l.cfg.Port, err)
	}
	l.port = port
	if l.opens.Add(1) > 1 {
		l.logger.Info("serial port reopened", "port", l.cfg.Port)
	} else {
		l.logger.Info("serial port opened", "port", l.cfg.Port, "baud", l.cfg.BaudRate)
	}
	return nil
}

// Send writes cmd followed by a newline.
func (l *Link) Send(cmd string) error {
	if !ValidCommand(cmd) {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, cmd)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		l.notConnected.Add(1)
		return ErrNotConnected
	}

	if _, err := l.port.Write([]byte(cmd + "\n")); err != nil {
		l.writeErrors.Add(1)
		l.port.Close() //nolint:errcheck // Port is already failing
		l.port = nil
		l.logger.Warn("serial write failed, port closed", "port", l.cfg.Port, "command", cmd, "error", err)
		return fmt.Errorf("writing %q to %s: %w", cmd, l.cfg.Port, err)
	}

	l.sent.Add(1)
	l.lastCmd = cmd
	return nil
}

// Run reopens the port whenever it is closed after a failure, until ctx
// is cancelled or Close is called.
func (l *Link) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.reconnect)
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		l.mu.Lock()
		idle := l.port == nil && !l.closed
		l.mu.Unlock()
		if !idle {
			lastErr = ""
			continue
		}

		if err := l.Open(); err != nil {
			// One line per distinct failure, not one per attempt.
			if err.Error() != lastErr {
				l.logger.Warn("serial port reopen failed, retrying", "port", l.cfg.Port, "interval", l.reconnect, "error", err)
				lastErr = err.Error()
			}
			continue
		}
		lastErr = ""
	}
}

// HealthCheck reports ErrNotConnected while no port is open.
func (l *Link) HealthCheck(_ context.Context) error {
	if !l.Connected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, l.cfg.Port)
	}
	return nil
}

// Connected reports whether a port is open.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port != nil
}

// Close closes the port and stops Run from reopening it. Safe to call
// repeatedly.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}

// Stats returns a snapshot of the link counters.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	last := l.lastCmd
	open := l.port != nil
	l.mu.Unlock()

	var reconnects uint64
	if n := l.opens.Load(); n > 1 {
		reconnects = n - 1
	}

	return Stats{
		CommandsSent:  l.sent.Load(),
		WriteErrors:   l.writeErrors.Load(),
		NotConnected:  l.notConnected.Load(),
		Reconnects:    reconnects,
		LastCommand:   last,
		PortName:      l.cfg.Port,
		CurrentlyOpen: open,
	}
}

// ListPorts returns the serial ports present on the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}
