package flow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
	"github.com/BTreeMap/DietCoach/internal/store"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(store.WithSQLiteDSN(filepath.Join(t.TempDir(), "flow.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreBasedStateManager(t *testing.T) {
	sm := NewMockStateManager()
	ctx := context.Background()
	const user = 42

	state, err := sm.CurrentState(ctx, user)
	if err != nil || state != models.StateNone {
		t.Fatalf("unknown user should have no state, got %q, %v", state, err)
	}
	if v, err := sm.Value(ctx, user, models.DataKeyCurrentDay); err != nil || v != "" {
		t.Fatalf("unknown user should have no values, got %q, %v", v, err)
	}

	if err := sm.Transition(ctx, user, models.StateMainMenu); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := sm.SetValue(ctx, user, models.DataKeyCurrentDay, "2"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if state, _ := sm.CurrentState(ctx, user); state != models.StateMainMenu {
		t.Errorf("expected MAIN_MENU, got %q", state)
	}

	// A transition keeps values; an empty value removes its key.
	if err := sm.Transition(ctx, user, models.StateViewingPlan); err != nil {
		t.Fatal(err)
	}
	if v, _ := sm.Value(ctx, user, models.DataKeyCurrentDay); v != "2" {
		t.Errorf("transition dropped a value: %q", v)
	}
	if err := sm.SetValue(ctx, user, models.DataKeyCurrentDay, ""); err != nil {
		t.Fatal(err)
	}
	if v, _ := sm.Value(ctx, user, models.DataKeyCurrentDay); v != "" {
		t.Errorf("expected key removed, got %q", v)
	}

	if state, _ := sm.CurrentState(ctx, user+1); state != models.StateNone {
		t.Errorf("state leaked to another user: %q", state)
	}

	if err := sm.Reset(ctx, user); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state, _ := sm.CurrentState(ctx, user); state != models.StateNone {
		t.Errorf("expected no state after reset, got %q", state)
	}
}

func TestStoreBasedStateManager_Timestamps(t *testing.T) {
	st := store.NewInMemoryStore()
	sm := NewStoreBasedStateManager(st)
	clock := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return clock }
	ctx := context.Background()

	sm.Transition(ctx, 5, models.StateCollectingParameters)
	clock = clock.Add(time.Minute)
	sm.SetValue(ctx, 5, models.DataKeyFieldCursor, "1")

	sess, err := st.GetSession(5, models.FlowTypeConversation)
	if err != nil || sess == nil {
		t.Fatalf("GetSession: %+v, %v", sess, err)
	}
	if !sess.CreatedAt.Equal(clock.Add(-time.Minute)) || !sess.UpdatedAt.Equal(clock) {
		t.Errorf("unexpected timestamps created=%v updated=%v", sess.CreatedAt, sess.UpdatedAt)
	}
}

func TestStoreBasedStateManager_SQLite(t *testing.T) {
	st := newSQLiteStore(t)
	sm := NewStoreBasedStateManager(st)
	ctx := context.Background()

	if err := sm.Transition(ctx, 7, models.StateCollectingParameters); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := sm.SetValue(ctx, 7, models.DataKeyFieldCursor, "3"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	reopened := NewStoreBasedStateManager(st)
	state, _ := reopened.CurrentState(ctx, 7)
	cursor, _ := reopened.Value(ctx, 7, models.DataKeyFieldCursor)
	if state != models.StateCollectingParameters || cursor != "3" {
		t.Errorf("session not persisted: %q cursor %q", state, cursor)
	}
}
