package session

import "errors"

// Sentinel errors for session lifecycle failures. Callers classify with
// errors.Is; timeouts are reported through Result, never as errors.
var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
	ErrLaunchFailure = errors.New("failed to launch process")
	ErrSessionClosed = errors.New("session closed")
)
