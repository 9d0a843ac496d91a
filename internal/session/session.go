package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultID is the session created lazily on first reference.
const DefaultID = "default"

// Session is a named shell execution context. The registry owns the
// session; the session owns its background jobs and, while a foreground
// command is in flight, the process handle driving it.
type Session struct {
	ID         string
	WorkingDir string
	CreatedAt  time.Time

	// execMu serializes foreground command execution. Background jobs
	// and the kill path never take it.
	execMu sync.Mutex

	mu           sync.Mutex
	env          map[string]string
	lastActivity time.Time
	commandCount int
	jobs         []*Job
	current      *handle
	killed       bool
	killCh       chan struct{}
}

func newSession(id, workingDir string, env map[string]string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		WorkingDir:   workingDir,
		CreatedAt:    now,
		env:          env,
		lastActivity: now,
		killCh:       make(chan struct{}),
	}
}

// noteSubmission bumps the command counter and activity timestamp.
// Called once per submitted command, foreground or background.
func (s *Session) noteSubmission() {
	s.mu.Lock()
	s.commandCount++
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Environ returns the session environment as KEY=VALUE pairs.
func (s *Session) Environ() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := make([]string, 0, len(s.env))
	for k, v := range s.env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// replaceEnv installs the environment captured from a completed
// foreground command, making exported variables visible to the next one.
func (s *Session) replaceEnv(env map[string]string) {
	if len(env) == 0 {
		return
	}
	s.mu.Lock()
	s.env = env
	s.mu.Unlock()
}

// Getenv looks up a single session variable.
func (s *Session) Getenv(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.env[key]
	return v, ok
}

func (s *Session) setCurrent(h *handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.killed {
		return ErrSessionClosed
	}
	s.current = h
	return nil
}

func (s *Session) clearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// addJob registers a background job; fails when the session was killed
// between command submission and launch so the process cannot be orphaned.
func (s *Session) addJob(j *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.killed {
		return false
	}
	s.jobs = append(s.jobs, j)
	return true
}

func (s *Session) isKilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

// kill closes the session: it interrupts a waiting foreground executor,
// terminates the in-flight process group and every background job group.
// Returns false when the session was already killed.
func (s *Session) kill(grace time.Duration) bool {
	s.mu.Lock()
	if s.killed {
		s.mu.Unlock()
		return false
	}
	s.killed = true
	close(s.killCh)
	current := s.current
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.Unlock()

	if current != nil {
		current.terminate(grace)
	}
	for _, job := range jobs {
		job.terminate(grace)
	}
	return true
}

// Summary is a point-in-time snapshot of a session for listings.
type Summary struct {
	ID             string      `json:"id"`
	WorkingDir     string      `json:"working_directory"`
	CreatedAt      time.Time   `json:"created_at"`
	LastActivityAt time.Time   `json:"last_activity_at"`
	CommandCount   int         `json:"command_count"`
	ActiveJobs     int         `json:"active_background_jobs"`
	BackgroundJobs []JobStatus `json:"background_jobs,omitempty"`
}

func (s *Session) summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobStatus, 0, len(s.jobs))
	active := 0
	for _, j := range s.jobs {
		status := j.Status()
		if status.State == JobRunning {
			active++
		}
		jobs = append(jobs, status)
	}

	return Summary{
		ID:             s.ID,
		WorkingDir:     s.WorkingDir,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.lastActivity,
		CommandCount:   s.commandCount,
		ActiveJobs:     active,
		BackgroundJobs: jobs,
	}
}

// parseEnviron converts KEY=VALUE pairs into a map, skipping malformed
// entries.
func parseEnviron(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		if k, v, ok := strings.Cut(pair, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
