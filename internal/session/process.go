package session

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// envCaptureSuffix is appended to foreground commands so the shell dumps
// its final exported environment over fd 3 before exiting, preserving the
// command's own exit status.
const envCaptureSuffix = "\n__bashsrv_rc=$?\nenv -0 >&3 2>/dev/null || true\nexit $__bashsrv_rc"

// drainGrace bounds how long output capture may lag process exit. A
// backgrounded child that inherited the pipes keeps them open past the
// shell's death; after the grace the readers are cut so completion
// reflects the process, not its descendants.
const drainGrace = 100 * time.Millisecond

// handle wraps one shell process started as the leader of its own process
// group, so a timeout or kill can signal the entire subtree without
// touching the server's group.
type handle struct {
	cmd  *exec.Cmd
	pgid int

	stdout  bytes.Buffer
	stderr  bytes.Buffer
	envDump bytes.Buffer

	// done closes once the process has been reaped and output capture has
	// settled: EOF on every stream, or the drain grace after exit. Buffers
	// must not be read before then.
	done    chan struct{}
	waitErr error
}

// startProcess launches a shell-interpreted command. With captureEnv set,
// the command is wrapped so the session environment can be refreshed after
// natural completion.
func startProcess(shell, command, dir string, env []string, captureEnv bool) (*handle, error) {
	script := command
	if captureEnv {
		script += envCaptureSuffix
	}

	cmd := exec.Command(shell, "--norc", "--noprofile", "-c", script)
	cmd.Dir = dir
	cmd.Env = env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}
	stderrRead, stderrWrite, err := os.Pipe()
	if err != nil {
		stdoutRead.Close()
		stdoutWrite.Close()
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}
	cmd.Stdout = stdoutWrite
	cmd.Stderr = stderrWrite

	var envRead, envWrite *os.File
	if captureEnv {
		envRead, envWrite, err = os.Pipe()
		if err != nil {
			stdoutRead.Close()
			stdoutWrite.Close()
			stderrRead.Close()
			stderrWrite.Close()
			return nil, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
		}
		cmd.ExtraFiles = []*os.File{envWrite}
	}

	err = cmd.Start()

	// The child holds its own descriptor copies; the parent's write ends
	// close regardless so the readers can observe EOF.
	stdoutWrite.Close()
	stderrWrite.Close()
	if envWrite != nil {
		envWrite.Close()
	}
	if err != nil {
		stdoutRead.Close()
		stderrRead.Close()
		if envRead != nil {
			envRead.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}

	h := &handle{
		cmd:  cmd,
		pgid: cmd.Process.Pid,
		done: make(chan struct{}),
	}

	// Both streams are drained concurrently: a process that fills one
	// pipe while the consumer waits on the other would deadlock.
	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&h.stdout, stdoutRead, &wg)
	go drain(&h.stderr, stderrRead, &wg)
	if captureEnv {
		wg.Add(1)
		go drain(&h.envDump, envRead, &wg)
	}

	go func() {
		h.waitErr = cmd.Wait()

		// Completion follows the process, not pipe EOF: wait out the
		// drains briefly, then cut any reader a surviving child still
		// holds open.
		settled := make(chan struct{})
		go func() {
			wg.Wait()
			close(settled)
		}()
		select {
		case <-settled:
		case <-time.After(drainGrace):
			stdoutRead.Close()
			stderrRead.Close()
			if envRead != nil {
				envRead.Close()
			}
			<-settled
		}
		close(h.done)
	}()

	return h, nil
}

// drain copies a pipe into its capture buffer until EOF or the read end
// is cut.
func drain(dst *bytes.Buffer, src *os.File, wg *sync.WaitGroup) {
	defer wg.Done()
	defer src.Close()
	io.Copy(dst, src)
}

// wait blocks until the process exits, the deadline passes, or the
// session kill channel fires. Deadline or kill delivers the graceful
// termination protocol to the process group before returning.
func (h *handle) wait(timeout, grace time.Duration, killCh <-chan struct{}) (timedOut, killed bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return false, false
	case <-timer.C:
		h.terminate(grace)
		return true, false
	case <-killCh:
		h.terminate(grace)
		return false, true
	}
}

// terminate delivers SIGTERM to the process group, escalating to SIGKILL
// after the grace window. Blocks until the process has been reaped. Safe
// to call from multiple goroutines and after exit.
func (h *handle) terminate(grace time.Duration) {
	select {
	case <-h.done:
		return
	default:
	}

	h.signal(syscall.SIGTERM)
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
		h.signal(syscall.SIGKILL)
		<-h.done
	}
}

// signal sends sig to the whole process group.
func (h *handle) signal(sig syscall.Signal) {
	// Negative pgid addresses the group. The process may already be
	// gone; that is not an error worth surfacing.
	syscall.Kill(-h.pgid, sig)
}

// exitCode is meaningful only after done has closed. Returns -1 when the
// process was signaled rather than exiting.
func (h *handle) exitCode() int {
	if h.cmd.ProcessState == nil {
		return -1
	}
	return h.cmd.ProcessState.ExitCode()
}

// capturedEnv parses the NUL-separated environment dump written by the
// wrapper. Returns nil when the shell died before dumping.
func (h *handle) capturedEnv() map[string]string {
	raw := h.envDump.Bytes()
	if len(raw) == 0 {
		return nil
	}

	env := make(map[string]string)
	for _, entry := range bytes.Split(raw, []byte{0}) {
		if len(entry) == 0 {
			continue
		}
		if k, v, ok := strings.Cut(string(entry), "="); ok && k != "" {
			env[k] = v
		}
	}
	if len(env) == 0 {
		return nil
	}
	return env
}
