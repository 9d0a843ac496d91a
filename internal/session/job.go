package session

import (
	"sync"
	"time"
)

// JobState tags the lifecycle of a background job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Job tracks one detached background command. Terminal states are
// retained until the owning session is killed or evicted, so callers can
// inspect outcomes through session listings.
type Job struct {
	ID        string
	Command   string
	StartedAt time.Time

	mu       sync.Mutex
	state    JobState
	exitCode int
	errMsg   string
	proc     *handle
}

func newJob(id, command string, proc *handle) *Job {
	return &Job{
		ID:        id,
		Command:   command,
		StartedAt: time.Now(),
		state:     JobRunning,
		proc:      proc,
	}
}

func (j *Job) complete(exitCode int) {
	j.mu.Lock()
	j.state = JobCompleted
	j.exitCode = exitCode
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.state = JobFailed
	if err != nil {
		j.errMsg = err.Error()
	}
	j.mu.Unlock()
}

func (j *Job) terminate(grace time.Duration) {
	j.mu.Lock()
	proc := j.proc
	running := j.state == JobRunning
	j.mu.Unlock()

	if running && proc != nil {
		proc.terminate(grace)
	}
}

// JobStatus is the inspectable snapshot of a job.
type JobStatus struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
	State     JobState  `json:"state"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Status returns the current job state.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := JobStatus{
		ID:        j.ID,
		Command:   j.Command,
		StartedAt: j.StartedAt,
		State:     j.state,
		Error:     j.errMsg,
	}
	if j.state == JobCompleted {
		code := j.exitCode
		status.ExitCode = &code
	}
	return status
}
