// Package session implements the shell session and process lifecycle
// core: the session registry, per-session command execution (foreground
// with deadline, background with job tracking), process-group signal
// delivery, and the idle-eviction reaper.
//
// Components:
//   - Manager: concurrent registry of sessions with insertion-order
//     listing and a single kill path shared by API callers and the reaper
//   - Executor: drives commands against resolved sessions; foreground
//     execution on one session is serialized, sessions are independent
//   - Job: tracked background command with inspectable terminal state
//   - Reaper: recurring scan evicting sessions idle past a threshold
//
// Every launched process leads its own process group, so timeouts and
// kills terminate entire subtrees without signaling the server. Exported
// shell variables persist across foreground commands in a session: each
// command's shell dumps its final environment over a dedicated pipe and
// the session overlay is refreshed on natural completion.
//
// State is purely in-memory and does not survive a server restart.
package session
