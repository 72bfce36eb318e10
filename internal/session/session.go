package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/telsabots/ytgrab/internal/media"
)

// State is the lifecycle phase of one session.
type State string

const (
	// StateMetadataReady means the URL resolved and the quality prompt is
	// shown; the session waits for a selection.
	StateMetadataReady State = "metadata-ready"
	// StateTransferring means a variant was selected and the pipeline is
	// running.
	StateTransferring State = "transferring"
	StateDelivered    State = "delivered"
	StateFailed       State = "failed"
	// StateExpired means the session was superseded, closed, or idle too
	// long.
	StateExpired State = "expired"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateFailed || s == StateExpired
}

var (
	ErrNotSelectable  = errors.New("session is not awaiting a selection")
	ErrArtifactActive = errors.New("session already owns an active artifact")
)

// Session tracks one resolved media item through quality selection and
// transfer for a single conversation key. Mutations go through the
// methods below; the zero value is not usable, construct with New.
type Session struct {
	Key             int64
	Meta            *media.Metadata
	CreatedAt       time.Time
	PromptMessageID int

	mu       sync.Mutex
	state    State
	artifact string
	cancel   context.CancelFunc
}

// New creates a session in StateMetadataReady.
func New(key int64, meta *media.Metadata) *Session {
	return &Session{
		Key:       key,
		Meta:      meta,
		CreatedAt: time.Now(),
		state:     StateMetadataReady,
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginTransfer moves the session into StateTransferring and stores the
// cancel function for the transfer's context. Rejects the transition
// when the session is not awaiting a selection, which serializes two
// rapid selections for the same key.
func (s *Session) BeginTransfer(cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateMetadataReady {
		return ErrNotSelectable
	}
	s.state = StateTransferring
	s.cancel = cancel
	return nil
}

// SetArtifact records the temporary file owned by this session. At most
// one artifact may be active at a time.
func (s *Session) SetArtifact(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifact != "" {
		return ErrArtifactActive
	}
	s.artifact = path
	return nil
}

// ClearArtifact forgets the active artifact path and returns it.
func (s *Session) ClearArtifact() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.artifact
	s.artifact = ""
	return path
}

// Artifact returns the active artifact path, empty when none.
func (s *Session) Artifact() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// Delivered marks the transfer as successfully completed.
func (s *Session) Delivered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTransferring || s.state == StateMetadataReady {
		s.state = StateDelivered
		s.cancel = nil
	}
}

// Failed marks the transfer as failed. The user retries by resending
// the URL; the session does not return to StateMetadataReady, which
// avoids reuse of stale stream handles.
func (s *Session) Failed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = StateFailed
		s.cancel = nil
	}
}

// Expire marks the session expired and cancels an in-flight transfer,
// if any. Safe to call in any state.
func (s *Session) Expire() {
	s.mu.Lock()
	cancel := s.cancel
	if !s.state.Terminal() {
		s.state = StateExpired
	}
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
