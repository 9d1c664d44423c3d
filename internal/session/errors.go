package session

import "errors"

var (
	// ErrAlreadyActive rejects a second start while a session is open.
	ErrAlreadyActive = errors.New("session already active")
	// ErrNoActiveSession means the operation needs an open session and none
	// exists (or, for StartBreak, the session is already on break).
	ErrNoActiveSession = errors.New("no active session")
	// ErrNoOpenBreak means EndBreak was called while not on break.
	ErrNoOpenBreak = errors.New("no open break")
	// ErrConflict marks the fatal invariant violation of more than one open
	// session per courier.
	ErrConflict = errors.New("multiple open sessions")
)
