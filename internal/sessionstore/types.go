// Package sessionstore keeps conversation state between turns for callers
// that do not round-trip it themselves, and serializes turns per session.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/erpbuddy-assistant/internal/models"
)

var (
	// ErrSessionNotFound is returned when no state is stored for a session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy is returned when another turn holds the session lock.
	ErrSessionBusy = errors.New("session is busy")
)

// Record is what is stored per session.
type Record struct {
	SessionID string                    `json:"session_id"`
	UserID    string                    `json:"user_id"`
	CompanyID string                    `json:"company_id"`
	State     *models.ConversationState `json:"state"`
	Metadata  Metadata                  `json:"metadata"`
}

// Metadata contains session bookkeeping
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	TurnCount    int       `json:"turn_count"`
}

// Unlock releases a turn lock. It is safe to call after the lock expired.
type Unlock func(ctx context.Context) error

// Store defines the interface for session storage
// This allows us to swap between Redis and in-memory.
type Store interface {
	// LoadSession returns the stored record or ErrSessionNotFound.
	LoadSession(ctx context.Context, sessionID string) (*Record, error)

	// SaveState stores the state after a turn and refreshes the TTL.
	SaveState(ctx context.Context, userID, companyID string, state *models.ConversationState) error

	// ClearSession removes a session from storage
	ClearSession(ctx context.Context, sessionID string) error

	// Lock takes the per-session turn lock for at most ttl. It returns
	// ErrSessionBusy when the lock is held.
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (Unlock, error)

	Ping(ctx context.Context) error
	Close() error
}

// touch updates rec for one more turn.
func touch(rec *Record, userID, companyID string, state *models.ConversationState, now time.Time) {
	if rec.UserID == "" {
		rec.UserID = userID
	}
	if rec.CompanyID == "" {
		rec.CompanyID = companyID
	}
	if rec.Metadata.TurnCount == 0 {
		rec.Metadata.StartedAt = now
	}
	rec.State = state
	rec.Metadata.LastActivity = now
	rec.Metadata.TurnCount++
}
