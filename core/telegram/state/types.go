package state

import (
	"context"
	"encoding/json"
	"errors"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// ErrUnchanged may be returned from an Update callback to finish successfully
// without writing anything.
var ErrUnchanged = errors.New("state: session unchanged")

// Session stores conversation state and bot-owned data for a chat.
type Session struct {
	State   State           `json:"state"`
	History []State         `json:"history,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Idle returns an empty session.
func Idle() Session {
	return Session{State: StateIdle}
}

// Active reports whether the session is inside a flow.
func (s Session) Active() bool {
	return s.State != "" && s.State != StateIdle
}

// Empty reports whether the session carries nothing worth persisting.
func (s Session) Empty() bool {
	return !s.Active() && len(s.History) == 0 && len(s.Data) == 0
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (s Session) Clone() Session {
	out := Session{State: s.State}
	if out.State == "" {
		out.State = StateIdle
	}
	if len(s.History) > 0 {
		out.History = append([]State(nil), s.History...)
	}
	if len(s.Data) > 0 {
		out.Data = append(json.RawMessage(nil), s.Data...)
	}
	return out
}

// Store persists sessions keyed by chat id.
type Store interface {
	// Get returns the session for chatID, or an idle session if none exists.
	Get(ctx context.Context, chatID int64) (Session, error)
	// Update atomically applies fn to the session for chatID. fn works on a
	// private copy; when it fails nothing is written. Optimistic backends may
	// call fn more than once, so it must not have side effects.
	Update(ctx context.Context, chatID int64, fn func(*Session) error) error
	// Clear removes the session for chatID.
	Clear(ctx context.Context, chatID int64) error
	// Close releases backend resources.
	Close() error
}
