package debug

import "errors"

var (
	// ErrSessionNotRunning reports a command against a session that is
	// terminated or not yet launched.
	ErrSessionNotRunning = errors.New("session is not running")

	// ErrNotStopped reports a stepping command against a session that is
	// still running.
	ErrNotStopped = errors.New("session is not stopped")

	// ErrAlreadyInitialized reports a second initialize handshake.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrNotInitialized reports a launch before the initialize handshake.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrNoSession reports a command when no session exists.
	ErrNoSession = errors.New("no active debug session")
)
