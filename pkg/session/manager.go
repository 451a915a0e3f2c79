package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
)

// Session is a live panel owned by the Host.
type Session struct {
	ID       string
	View     ports.PanelView
	OpenedAt time.Time
}

// Manager holds at most one active Session.
type Manager struct {
	factory ports.PanelFactory

	mu      sync.Mutex // Guards current and seq
	current *Session
	seq     int

	onDispose func(*Session)
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDisposeHook registers a callback run after a session is disposed.
func WithDisposeHook(fn func(*Session)) Option {
	return func(m *Manager) {
		m.onDispose = fn
	}
}

// NewManager creates a new Session Manager opening panels through factory.
func NewManager(factory ports.PanelFactory, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the live session, opening a new one if there is none.
// created reports whether a new panel was opened.
func (m *Manager) Acquire(ctx context.Context) (sess *Session, created bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if !closed(m.current) {
			return m.current, false, nil
		}
		// The user closed the panel before the Host's serve loop noticed.
		stale := m.current
		m.current = nil
		m.retire(stale)
	}

	view, err := m.factory.Open(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open panel: %w", err)
	}

	m.seq++
	m.current = &Session{
		ID:       fmt.Sprintf("panel-%d", m.seq),
		View:     view,
		OpenedAt: time.Now(),
	}
	m.logger.Debug("Panel session created", "session_id", m.current.ID)
	return m.current, true, nil
}

// Current returns the live session, if any. A session whose view is already closed
// is not live.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || closed(m.current) {
		return nil, false
	}
	return m.current, true
}

// Require returns the live session or domain.ErrNoSession.
func (m *Manager) Require() (*Session, error) {
	if sess, ok := m.Current(); ok {
		return sess, nil
	}
	return nil, domain.ErrNoSession
}

// Dispose disposes sess if it is still the live session. Disposing a stale or
// already-disposed session is a no-op.
func (m *Manager) Dispose(sess *Session) error {
	m.mu.Lock()
	if sess == nil || m.current != sess {
		m.mu.Unlock()
		return nil
	}
	m.current = nil
	m.mu.Unlock()

	return m.retire(sess)
}

// DisposeCurrent disposes the current session, live or not.
func (m *Manager) DisposeCurrent() error {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()
	return m.Dispose(sess)
}

// retire disposes the view of a session already detached from m.current and runs
// the dispose hook.
func (m *Manager) retire(sess *Session) error {
	err := sess.View.Dispose()
	if err != nil {
		m.logger.Warn("Failed to dispose panel view", "session_id", sess.ID, "err", err)
	}
	m.logger.Debug("Panel session disposed", "session_id", sess.ID)

	if m.onDispose != nil {
		m.onDispose(sess)
	}
	return err
}

func closed(sess *Session) bool {
	select {
	case <-sess.View.Done():
		return true
	default:
		return false
	}
}
