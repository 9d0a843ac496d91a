package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcptools/bashserver/internal/logging"
)

func newTestExecutor(t *testing.T) (*Manager, *Executor) {
	t.Helper()
	cfg := testSessionConfig()
	m := NewManager(cfg, logging.NewNop())
	t.Cleanup(m.Shutdown)
	return m, NewExecutor(m, cfg, logging.NewNop())
}

func TestForegroundEcho(t *testing.T) {
	_, e := newTestExecutor(t)

	result, err := e.Execute(context.Background(), DefaultID, "echo hello", 0)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.False(t, result.TimedOut)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.Equal(t, DefaultID, result.SessionID)
}

func TestForegroundExitCode(t *testing.T) {
	_, e := newTestExecutor(t)

	result, err := e.Execute(context.Background(), DefaultID, "exit 7", 0)
	require.NoError(t, err)

	assert.True(t, result.Completed)
	assert.Equal(t, 7, result.ExitCode)
}

func TestForegroundStderr(t *testing.T) {
	_, e := newTestExecutor(t)

	result, err := e.Execute(context.Background(), DefaultID, "echo out; echo err >&2", 0)
	require.NoError(t, err)

	assert.Equal(t, "out\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
}

func TestForegroundTimeout(t *testing.T) {
	_, e := newTestExecutor(t)

	start := time.Now()
	result, err := e.Execute(context.Background(), DefaultID, "sleep 30", time.Second)
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.True(t, result.TimedOut)
	assert.False(t, result.Completed)
	// Deadline plus a small bounded overhead for signal delivery.
	assert.Less(t, elapsed, 4*time.Second)
}

func TestTimeoutKeepsPartialOutput(t *testing.T) {
	_, e := newTestExecutor(t)

	result, err := e.Execute(context.Background(), DefaultID, "echo partial; sleep 30", time.Second)
	require.NoError(t, err)

	assert.True(t, result.TimedOut)
	assert.Equal(t, "partial\n", result.Stdout)
}

func TestEnvPersistsAcrossCommands(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("envtest", t.TempDir(), nil)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), "envtest", "export GREETING=salve", 0)
	require.NoError(t, err)
	require.True(t, result.Completed)

	result, err = e.Execute(context.Background(), "envtest", "echo $GREETING", 0)
	require.NoError(t, err)
	assert.Equal(t, "salve\n", result.Stdout)
}

func TestEnvIsolatedBetweenSessions(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("left", t.TempDir(), nil)
	require.NoError(t, err)
	_, err = m.Create("right", t.TempDir(), nil)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "left", "export SIDE=left", 0)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), "right", "echo \"[$SIDE]\"", 0)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", result.Stdout)
}

func TestWorkingDirectoryRecorded(t *testing.T) {
	m, e := newTestExecutor(t)

	dir := t.TempDir()
	_, err := m.Create("cwd", dir, nil)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), "cwd", "pwd", 0)
	require.NoError(t, err)
	assert.Equal(t, dir+"\n", result.Stdout)

	// cd inside a command does not move the session's recorded directory.
	_, err = e.Execute(context.Background(), "cwd", "cd /", 0)
	require.NoError(t, err)

	result, err = e.Execute(context.Background(), "cwd", "pwd", 0)
	require.NoError(t, err)
	assert.Equal(t, dir+"\n", result.Stdout)
}

func TestLaunchFailure(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("broken", "/nonexistent-bashserver-dir", nil)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "broken", "echo hi", 0)
	assert.ErrorIs(t, err, ErrLaunchFailure)
}

func TestExecuteUnknownSession(t *testing.T) {
	_, e := newTestExecutor(t)

	_, err := e.Execute(context.Background(), "missing", "echo hi", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForegroundReturnsAtShellExit(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("detach", t.TempDir(), nil)
	require.NoError(t, err)

	// The backgrounded sleep inherits the output pipes; the call must
	// still return at the shell's own exit, not at pipe EOF.
	start := time.Now()
	result, err := e.Execute(context.Background(), "detach", "sleep 5 & echo started", 3*time.Second)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, result.Completed)
	assert.False(t, result.TimedOut)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "started\n", result.Stdout)
}

func TestKillReturnsQueuedForeground(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("queued", t.TempDir(), nil)
	require.NoError(t, err)

	results := make(chan *Result, 2)
	run := func(cmd string) {
		res, err := e.Execute(context.Background(), "queued", cmd, time.Minute)
		if err != nil {
			t.Errorf("execute failed: %v", err)
			results <- nil
			return
		}
		results <- res
	}

	go run("sleep 60")
	time.Sleep(200 * time.Millisecond)
	go run("echo late")
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, m.Kill("queued"))

	// Both the interrupted call and the one queued behind it return a
	// result rather than an error.
	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			require.NotNil(t, res)
			assert.False(t, res.Completed)
			assert.False(t, res.TimedOut)
		case <-time.After(5 * time.Second):
			t.Fatal("pending foreground calls should return after session kill")
		}
	}
}

func TestKillInterruptsForeground(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("victim", "", nil)
	require.NoError(t, err)

	type outcome struct {
		result *Result
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		res, err := e.Execute(context.Background(), "victim", "sleep 60", time.Minute)
		resultCh <- outcome{res, err}
	}()

	// Let the command get in flight before killing.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, m.Kill("victim"))

	select {
	case out := <-resultCh:
		require.NoError(t, out.err)
		assert.False(t, out.result.Completed)
		assert.False(t, out.result.TimedOut)
	case <-time.After(5 * time.Second):
		t.Fatal("foreground call should return after session kill")
	}

	_, err = m.Get("victim")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessGroupKilled(t *testing.T) {
	_, e := newTestExecutor(t)

	// The child sleep survives the shell only if group signaling fails.
	start := time.Now()
	result, err := e.Execute(context.Background(), DefaultID, "sleep 60 | sleep 60", time.Second)
	require.NoError(t, err)

	assert.True(t, result.TimedOut)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestSerializedForeground(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("serial", t.TempDir(), nil)
	require.NoError(t, err)

	done := make(chan string, 2)
	run := func(cmd string) {
		res, err := e.Execute(context.Background(), "serial", cmd, 0)
		if err != nil {
			t.Errorf("execute failed: %v", err)
			done <- ""
			return
		}
		done <- res.Stdout
	}

	go run("echo first > order.txt; sleep 0.3; echo done")
	time.Sleep(50 * time.Millisecond)
	go run("cat order.txt")

	<-done
	second := <-done
	assert.Equal(t, "first\n", second)
}

func TestBackgroundJobCompletes(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("bg", t.TempDir(), nil)
	require.NoError(t, err)

	job, err := e.ExecuteBackground(context.Background(), "bg", "sleep 0.2; exit 3")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobRunning, job.Status().State)

	require.Eventually(t, func() bool {
		return job.Status().State == JobCompleted
	}, 5*time.Second, 20*time.Millisecond)

	status := job.Status()
	require.NotNil(t, status.ExitCode)
	assert.Equal(t, 3, *status.ExitCode)
}

func TestBackgroundJobVisibleInSummary(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("bgsum", t.TempDir(), nil)
	require.NoError(t, err)

	_, err = e.ExecuteBackground(context.Background(), "bgsum", "sleep 30")
	require.NoError(t, err)

	summaries := m.List()
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].ActiveJobs)
	require.Len(t, summaries[0].BackgroundJobs, 1)
	assert.Equal(t, "sleep 30", summaries[0].BackgroundJobs[0].Command)
	assert.Equal(t, 1, summaries[0].CommandCount)
}

func TestKillTerminatesBackgroundJobs(t *testing.T) {
	m, e := newTestExecutor(t)

	_, err := m.Create("bgkill", t.TempDir(), nil)
	require.NoError(t, err)

	job, err := e.ExecuteBackground(context.Background(), "bgkill", "sleep 60")
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, m.Kill("bgkill"))
	assert.Less(t, time.Since(start), 4*time.Second)

	require.Eventually(t, func() bool {
		return job.Status().State != JobRunning
	}, 5*time.Second, 20*time.Millisecond)
}
