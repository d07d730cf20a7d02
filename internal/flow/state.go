// Package flow implements the DietCoach conversation: the state machine that
// turns inbound chat events into replies, and the per-user dispatcher that
// feeds it.
package flow

import (
	"context"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// StateManager tracks where each user is in the conversation.
type StateManager interface {
	// CurrentState returns StateNone for users without a session.
	CurrentState(ctx context.Context, userID int64) (models.StateType, error)
	Transition(ctx context.Context, userID int64, to models.StateType) error

	// Value returns "" for unset keys.
	Value(ctx context.Context, userID int64, key models.DataKey) (string, error)
	// SetValue stores value under key; an empty value removes the key.
	SetValue(ctx context.Context, userID int64, key models.DataKey, value string) error

	// Reset forgets the session, state and values alike.
	Reset(ctx context.Context, userID int64) error
}
