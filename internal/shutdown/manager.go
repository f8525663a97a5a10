package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hoangsonww/fuzzyhash/internal/monitoring"
)

// Hook represents a cleanup function to run on shutdown
type Hook struct {
	Name     string
	Priority int // Lower priority runs first
	Func     func(context.Context) error
	Timeout  time.Duration
}

// Manager runs cleanup hooks once, either when the process is told to stop
// or when the command finishes normally.
type Manager struct {
	mu      sync.RWMutex
	hooks   []*Hook
	timeout time.Duration
	logger  *monitoring.Logger

	once   sync.Once
	err    error
	cancel context.CancelFunc
	stop   func()
}

// NewManager creates a manager whose whole shutdown is bounded by timeout.
func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  monitoring.WithField("component", "shutdown"),
	}
}

// RegisterHook registers a shutdown hook
func (m *Manager) RegisterHook(name string, priority int, timeout time.Duration, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hook := &Hook{
		Name:     name,
		Priority: priority,
		Func:     fn,
		Timeout:  timeout,
	}

	// Insert in priority order, after hooks of equal priority.
	inserted := false
	for i, h := range m.hooks {
		if priority < h.Priority {
			m.hooks = append(m.hooks[:i], append([]*Hook{hook}, m.hooks[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		m.hooks = append(m.hooks, hook)
	}

	m.logger.WithFields(map[string]interface{}{
		"hook":     name,
		"priority": priority,
	}).Debug("Shutdown hook registered")
}

// Listen returns a context derived from parent that is cancelled on SIGINT or
// SIGTERM. Work in progress should watch it; hooks run later via Shutdown.
func (m *Manager) Listen(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	m.stop = func() {
		signal.Stop(signals)
		close(done)
	}

	go func() {
		select {
		case sig := <-signals:
			m.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
			cancel()
		case <-done:
		}
	}()
	return ctx
}

// Shutdown runs every hook in priority order and returns their joined
// errors. Only the first call does any work.
func (m *Manager) Shutdown() error {
	m.once.Do(func() {
		if m.stop != nil {
			m.stop()
		}
		if m.cancel != nil {
			m.cancel()
		}
		m.err = m.runHooks()
	})
	return m.err
}

func (m *Manager) runHooks() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.RLock()
	hooks := make([]*Hook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.RUnlock()

	var errs []error
	for _, hook := range hooks {
		logger := m.logger.WithField("hook", hook.Name)
		logger.Debug("Executing shutdown hook")

		hookCtx, hookCancel := context.WithTimeout(ctx, hook.Timeout)

		done := make(chan error, 1)
		go func(h *Hook) {
			done <- h.Func(hookCtx)
		}(hook)

		select {
		case err := <-done:
			if err != nil {
				logger.WithError(err).Error("Shutdown hook failed")
				errs = append(errs, fmt.Errorf("%s: %w", hook.Name, err))
			}
		case <-hookCtx.Done():
			logger.Warn("Shutdown hook timeout")
			errs = append(errs, fmt.Errorf("%s: timeout", hook.Name))
		}

		hookCancel()
	}

	if len(errs) > 0 {
		m.logger.Errorf("Shutdown completed with %d errors", len(errs))
	}
	return errors.Join(errs...)
}
