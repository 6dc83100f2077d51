package interview

import "errors"

var (
	// ErrNotFound is returned when an operation references an unknown session id.
	ErrNotFound = errors.New("session not found")

	ErrAlreadyExists = errors.New("session already exists")

	// ErrValidation marks caller-supplied data that was rejected before any state changed.
	ErrValidation = errors.New("validation failed")

	// ErrAgentUnavailable marks a failed or timed-out agent call.
	ErrAgentUnavailable = errors.New("agent unavailable")

	// ErrParse marks agent output that does not match the expected structure.
	ErrParse = errors.New("agent output could not be parsed")

	// ErrTurnInProgress is returned when a second turn arrives for a session
	// whose previous turn has not finished.
	ErrTurnInProgress = errors.New("turn already in progress for session")
)

// IsAgentFailure reports whether err should be downgraded to a fallback response.
func IsAgentFailure(err error) bool {
	return errors.Is(err, ErrAgentUnavailable) || errors.Is(err, ErrParse)
}
