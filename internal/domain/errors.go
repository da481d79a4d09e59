package domain

import "errors"

// Failure taxonomy shared by every layer. None of these are fatal; callers
// log and move on, and the next maintenance cycle retries where it makes sense.
var (
	// ErrTransportUnreachable means a participant could not be notified.
	// The candidate is skipped for this round without being marked declined.
	ErrTransportUnreachable = errors.New("transport unreachable")

	// ErrInvalidTransition rejects an operation that does not apply to the
	// current state, such as signing up someone already on the run.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrStaleReference means the run or outreach record no longer exists.
	// It is treated as already resolved.
	ErrStaleReference = errors.New("stale reference")

	// ErrPersistence wraps snapshot read/write failures.
	ErrPersistence = errors.New("persistence failure")

	ErrNotFound           = errors.New("not found")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrInvalidRun         = errors.New("invalid run")
)
