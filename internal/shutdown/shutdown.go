package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/csvlog/internal/logging"
)

// Manager handles graceful shutdown of the agent: on signal it runs the
// registered cleanup functions (sink flush and close, metrics server stop)
// under a timeout.
type Manager struct {
	logger        *logging.Logger
	timeout       time.Duration
	shutdownFuncs []namedFunc
	mu            sync.Mutex
	shutdownCh    chan struct{}
	shutdownOnce  sync.Once
	done          chan struct{}
}

// ShutdownFunc is a function that performs cleanup during shutdown
type ShutdownFunc func(context.Context) error

type namedFunc struct {
	name string
	fn   ShutdownFunc
}

// Config holds shutdown manager configuration
type Config struct {
	Timeout time.Duration
	Logger  *logging.Logger
}

// New creates a new shutdown manager
func New(cfg Config) *Manager {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Manager{
		logger:     cfg.Logger,
		timeout:    cfg.Timeout,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// RegisterFunc registers a shutdown function to be called during shutdown
func (m *Manager) RegisterFunc(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownFuncs = append(m.shutdownFuncs, namedFunc{name: name, fn: fn})
}

// WaitForSignal blocks until a shutdown signal is received
func (m *Manager) WaitForSignal(signals ...os.Signal) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)

	select {
	case sig := <-sigCh:
		m.logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		m.Shutdown()
	case <-m.shutdownCh:
		// Already shutting down
	}
}

// Shutdown initiates graceful shutdown
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownCh)
		m.performShutdown()
	})
}

// performShutdown executes the registered shutdown functions in reverse
// registration order, so consumers stop before the resources they use.
func (m *Manager) performShutdown() {
	m.mu.Lock()
	funcs := make([]namedFunc, len(m.shutdownFuncs))
	copy(funcs, m.shutdownFuncs)
	m.mu.Unlock()

	m.logger.Info().
		Dur("timeout", m.timeout).
		Int("functions", len(funcs)).
		Msg("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := len(funcs) - 1; i >= 0; i-- {
			nf := funcs[i]
			if err := nf.fn(ctx); err != nil {
				m.logger.Error().Err(err).Str("component", nf.name).Msg("Shutdown function failed")
			}
		}
	}()

	select {
	case <-finished:
		m.logger.Info().Msg("Graceful shutdown completed")
	case <-ctx.Done():
		m.logger.Warn().Dur("timeout", m.timeout).Msg("Graceful shutdown timed out")
	}

	close(m.done)
}

// Done returns a channel that is closed when shutdown is complete
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// ShutdownChannel returns a channel that is closed when shutdown is initiated
func (m *Manager) ShutdownChannel() <-chan struct{} {
	return m.shutdownCh
}
