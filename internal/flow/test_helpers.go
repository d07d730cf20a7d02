package flow

import (
	"github.com/BTreeMap/DietCoach/internal/store"
)

// NewMockStateManager creates a state manager over an in-memory store for tests.
func NewMockStateManager() StateManager {
	return NewStoreBasedStateManager(store.NewInMemoryStore())
}
