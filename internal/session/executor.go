package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mcptools/bashserver/internal/config"
	"github.com/mcptools/bashserver/internal/logging"
	"github.com/mcptools/bashserver/internal/shared/id"
)

// Result is the outcome of one foreground command invocation. A timeout
// is a normal outcome, not an error: Completed stays false, TimedOut goes
// true, and whatever output was captured before termination is retained.
type Result struct {
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
	Completed bool   `json:"completed"`
	TimedOut  bool   `json:"timed_out"`
	SessionID string `json:"session_id"`
}

// Executor drives commands against sessions resolved through the
// registry.
type Executor struct {
	registry *Manager
	cfg      config.SessionConfig
	log      *logging.Logger
	metrics  Metrics
}

// NewExecutor creates a command executor bound to a registry.
func NewExecutor(registry *Manager, cfg config.SessionConfig, log *logging.Logger) *Executor {
	return &Executor{
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

// WithMetrics attaches a metrics recorder.
func (e *Executor) WithMetrics(metrics Metrics) *Executor {
	e.metrics = metrics
	return e
}

// Execute runs a command synchronously with a deadline. A non-positive
// timeout selects the configured default. Foreground commands on one
// session are serialized; sessions run fully in parallel.
func (e *Executor) Execute(ctx context.Context, sessionID, command string, timeout time.Duration) (*Result, error) {
	s, err := e.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	s.noteSubmission()

	s.execMu.Lock()
	defer s.execMu.Unlock()

	start := time.Now()
	// A call that queued behind another foreground command while the
	// session was killed returns the same shape as the interrupted call.
	if s.isKilled() {
		e.record("foreground", "killed", start)
		return &Result{ExitCode: -1, SessionID: s.ID}, nil
	}

	h, err := startProcess(e.cfg.Shell, command, s.WorkingDir, s.Environ(), true)
	if err != nil {
		e.record("foreground", "launch_failure", start)
		return nil, err
	}
	if err := s.setCurrent(h); err != nil {
		// Killed between the check and launch; tear the process down.
		h.terminate(e.cfg.KillGrace)
		e.record("foreground", "killed", start)
		return &Result{ExitCode: -1, SessionID: s.ID}, nil
	}
	defer s.clearCurrent()

	timedOut, killed := h.wait(timeout, e.cfg.KillGrace, s.killCh)

	result := &Result{
		Stdout:    h.stdout.String(),
		Stderr:    h.stderr.String(),
		SessionID: s.ID,
	}

	switch {
	case timedOut:
		result.TimedOut = true
		result.ExitCode = -1
		e.record("foreground", "timeout", start)
		e.log.Warn("Command timed out",
			zap.String("session_id", s.ID),
			zap.Duration("timeout", timeout),
		)
	case killed:
		result.ExitCode = -1
		e.record("foreground", "killed", start)
	default:
		result.Completed = true
		result.ExitCode = h.exitCode()
		if env := h.capturedEnv(); env != nil {
			s.replaceEnv(env)
		}
		e.record("foreground", "completed", start)
	}

	return result, nil
}

// ExecuteBackground launches a command as a tracked job and returns its
// handle immediately. Jobs carry no deadline; they run until natural
// completion or until the owning session is killed.
func (e *Executor) ExecuteBackground(ctx context.Context, sessionID, command string) (*Job, error) {
	s, err := e.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.isKilled() {
		return nil, ErrSessionClosed
	}
	s.noteSubmission()

	start := time.Now()
	h, err := startProcess(e.cfg.Shell, command, s.WorkingDir, s.Environ(), false)
	if err != nil {
		e.record("background", "launch_failure", start)
		return nil, err
	}

	job := newJob(id.NewJobID().String(), command, h)
	if !s.addJob(job) {
		h.terminate(e.cfg.KillGrace)
		return nil, ErrSessionClosed
	}
	if e.metrics != nil {
		e.metrics.AddActiveJobs(1)
	}
	e.log.Info("Background job started",
		zap.String("session_id", s.ID),
		zap.String("job_id", job.ID),
	)

	go e.watch(s, job, h, start)
	return job, nil
}

// watch transitions the job to its terminal state once the process exits,
// without blocking the submitting caller.
func (e *Executor) watch(s *Session, job *Job, h *handle, start time.Time) {
	<-h.done

	if h.cmd.ProcessState != nil {
		job.complete(h.exitCode())
		e.record("background", "completed", start)
	} else {
		job.fail(h.waitErr)
		e.record("background", "failed", start)
	}
	if e.metrics != nil {
		e.metrics.AddActiveJobs(-1)
	}
}

func (e *Executor) record(mode, status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordCommand(mode, status, time.Since(start))
	}
}
