package bot

import (
	"errors"
	"fmt"
)

// Error taxonomy for the event-handling boundary. Every handler runs
// inside a guard that maps these to a short user-visible reply; nothing
// propagates into the dispatch loop.
var (
	// ErrSessionExpired: a callback arrived for a key with no active
	// session, e.g. after supersession or a process restart.
	ErrSessionExpired = errors.New("session expired")
	// ErrVariantUnavailable: the user selected a kind absent from the
	// resolved metadata.
	ErrVariantUnavailable = errors.New("variant unavailable")
)

// ResolutionError wraps bad-URL, extraction, and zero-variant failures.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution failed: %v", e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// TransportError wraps send/edit/delete failures. During
// cleanup-oriented actions it is logged and swallowed so it never masks
// an otherwise successful transfer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
