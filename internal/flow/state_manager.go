package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
	"github.com/BTreeMap/DietCoach/internal/store"
)

// StoreBasedStateManager keeps sessions of one flow in a store.SessionStore.
type StoreBasedStateManager struct {
	sessions store.SessionStore
	flow     models.FlowType
	now      func() time.Time
}

var _ StateManager = (*StoreBasedStateManager)(nil)

// NewStoreBasedStateManager manages conversation sessions stored in st.
func NewStoreBasedStateManager(st store.SessionStore) *StoreBasedStateManager {
	return &StoreBasedStateManager{sessions: st, flow: models.FlowTypeConversation, now: time.Now}
}

func (sm *StoreBasedStateManager) CurrentState(ctx context.Context, userID int64) (models.StateType, error) {
	sess, err := sm.sessions.GetSession(userID, sm.flow)
	if err != nil || sess == nil {
		return models.StateNone, err
	}
	return sess.State, nil
}

func (sm *StoreBasedStateManager) Transition(ctx context.Context, userID int64, to models.StateType) error {
	return sm.update(userID, func(sess *models.Session) {
		if sess.State != to {
			slog.Debug("StateManager.Transition", "userID", userID, "from", sess.State, "to", to)
		}
		sess.State = to
	})
}

func (sm *StoreBasedStateManager) Value(ctx context.Context, userID int64, key models.DataKey) (string, error) {
	sess, err := sm.sessions.GetSession(userID, sm.flow)
	if err != nil || sess == nil {
		return "", err
	}
	return sess.Data[key], nil
}

func (sm *StoreBasedStateManager) SetValue(ctx context.Context, userID int64, key models.DataKey, value string) error {
	return sm.update(userID, func(sess *models.Session) {
		if value == "" {
			delete(sess.Data, key)
			return
		}
		sess.Data[key] = value
	})
}

func (sm *StoreBasedStateManager) Reset(ctx context.Context, userID int64) error {
	if err := sm.sessions.DeleteSession(userID, sm.flow); err != nil {
		slog.Error("StateManager.Reset failed", "error", err, "userID", userID)
		return err
	}
	slog.Debug("StateManager.Reset", "userID", userID)
	return nil
}

// update loads the session of userID, creating it if needed, applies fn and
// saves the result. Callers are serialized per user by the Dispatcher.
func (sm *StoreBasedStateManager) update(userID int64, fn func(*models.Session)) error {
	sess, err := sm.sessions.GetSession(userID, sm.flow)
	if err != nil {
		slog.Error("StateManager.update: load failed", "error", err, "userID", userID)
		return err
	}
	now := sm.now()
	if sess == nil {
		sess = &models.Session{UserID: userID, Flow: sm.flow, CreatedAt: now}
	}
	if sess.Data == nil {
		sess.Data = make(map[models.DataKey]string)
	}
	fn(sess)
	sess.UpdatedAt = now
	if err := sm.sessions.SaveSession(*sess); err != nil {
		slog.Error("StateManager.update: save failed", "error", err, "userID", userID, "state", sess.State)
		return err
	}
	return nil
}
