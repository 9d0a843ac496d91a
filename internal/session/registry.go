package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcptools/bashserver/internal/config"
	"github.com/mcptools/bashserver/internal/logging"
)

// Metrics is the slice of the monitoring surface the session layer
// reports into.
type Metrics interface {
	RecordCommand(mode, status string, duration time.Duration)
	SetActiveSessions(n int)
	AddActiveJobs(delta int)
	RecordSessionEvicted()
}

// Manager owns the registry of live sessions. The map and its insertion
// order are guarded by a single mutex held only for structural changes,
// never across a blocking process wait.
type Manager struct {
	cfg     config.SessionConfig
	log     *logging.Logger
	metrics Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
}

// NewManager creates a session registry.
func NewManager(cfg config.SessionConfig, log *logging.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// WithMetrics attaches a metrics recorder.
func (m *Manager) WithMetrics(metrics Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create allocates a new session. An empty id gets a generated short id.
// Fails with ErrAlreadyExists when the id is taken; callers wanting a
// fresh session must kill the old one first.
func (m *Manager) Create(id, workingDir string, env map[string]string) (*Session, error) {
	if id == "" {
		id = uuid.New().String()[:8]
	}

	if workingDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		workingDir = cwd
	}
	workingDir, err := filepath.Abs(workingDir)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	sessionEnv := parseEnviron(os.Environ())
	for k, v := range env {
		sessionEnv[k] = v
	}

	s := newSession(id, workingDir, sessionEnv)

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}
	m.sessions[id] = s
	m.order = append(m.order, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetActiveSessions(count)
	}
	m.log.Info("Session created",
		zap.String("session_id", id),
		zap.String("working_dir", workingDir),
	)
	return s, nil
}

// Get resolves a session by id, lazily creating the default session on
// first reference. Any other absent id fails with ErrNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	if id == DefaultID {
		s, err := m.Create(DefaultID, "", nil)
		if err == nil {
			return s, nil
		}
		// Lost a creation race; the winner's session is in the map now.
		m.mu.RLock()
		s, ok = m.sessions[DefaultID]
		m.mu.RUnlock()
		if ok {
			return s, nil
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns session summaries in insertion order.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		if s, ok := m.sessions[id]; ok {
			sessions = append(sessions, s)
		}
	}
	m.mu.RUnlock()

	summaries := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.summary())
	}
	return summaries
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Kill terminates a session: the in-flight foreground process group and
// every background job are signaled before the session leaves the map, so
// a pending foreground call returns instead of hanging.
func (m *Manager) Kill(id string) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if !s.kill(m.cfg.KillGrace) {
		// A concurrent kill won; treat this one as targeting an absent
		// session.
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	m.mu.Lock()
	delete(m.sessions, id)
	for i, ordered := range m.order {
		if ordered == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetActiveSessions(count)
	}
	m.log.Info("Session terminated", zap.String("session_id", id))
	return nil
}

// Shutdown drains the registry, killing every session. Called once at
// server stop.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Kill(id); err != nil {
			m.log.Warn("Failed to kill session during shutdown",
				zap.String("session_id", id),
				zap.Error(err),
			)
		}
	}
}
