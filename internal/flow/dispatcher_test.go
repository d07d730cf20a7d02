package flow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type handlerFunc func(ctx context.Context, userID int64, ev Event) ([]Reply, error)

func (f handlerFunc) Handle(ctx context.Context, userID int64, ev Event) ([]Reply, error) {
	return f(ctx, userID, ev)
}

func echoHandler(ctx context.Context, userID int64, ev Event) ([]Reply, error) {
	if t, ok := ev.(TextEvent); ok {
		return []Reply{plain(t.Text)}, nil
	}
	return nil, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(handlerFunc(func(ctx context.Context, userID int64, ev Event) ([]Reply, error) {
		time.Sleep(time.Millisecond)
		return echoHandler(ctx, userID, ev)
	}), sender)
	defer d.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, user := range []int64{1, 2} {
			wg.Add(1)
			if !d.Dispatch(context.Background(), user, TextEvent{Text: fmt.Sprint(i)}, wg.Done) {
				t.Fatalf("event %d for user %d rejected", i, user)
			}
		}
	}
	wg.Wait()

	for _, user := range []int64{1, 2} {
		got := sender.replies(user)
		if len(got) != 10 {
			t.Fatalf("user %d: expected 10 replies, got %d", user, len(got))
		}
		for i, r := range got {
			if r.Text != fmt.Sprint(i) {
				t.Errorf("user %d: reply %d = %q, out of order", user, i, r.Text)
			}
		}
	}
}

func TestDispatcher_BusyWhenMailboxFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	sender := &recordingSender{}
	d := NewDispatcher(handlerFunc(func(ctx context.Context, userID int64, ev Event) ([]Reply, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	}), sender, WithMailboxSize(1))
	defer d.Stop()

	ctx := context.Background()
	if !d.Dispatch(ctx, 1, TextEvent{Text: "first"}, nil) {
		t.Fatal("first event rejected")
	}
	<-started
	if !d.Dispatch(ctx, 1, TextEvent{Text: "queued"}, nil) {
		t.Fatal("second event should be queued")
	}

	doneCalled := false
	if d.Dispatch(ctx, 1, TextEvent{Text: "overflow"}, func() { doneCalled = true }) {
		t.Fatal("third event should be rejected")
	}
	if !doneCalled {
		t.Error("done must run for a rejected event")
	}
	if got := sender.replies(1); len(got) != 1 || got[0].Text != msgBusy {
		t.Errorf("expected a busy reply, got %+v", got)
	}

	// Other users are not affected.
	if !d.Dispatch(ctx, 2, TextEvent{Text: "other"}, nil) {
		t.Error("another user's event should be accepted")
	}
	close(release)
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(handlerFunc(func(ctx context.Context, userID int64, ev Event) ([]Reply, error) {
		if te, ok := ev.(TextEvent); ok && te.Text == "boom" {
			panic("handler exploded")
		}
		return echoHandler(ctx, userID, ev)
	}), sender)
	defer d.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	d.Dispatch(context.Background(), 1, TextEvent{Text: "boom"}, wg.Done)
	d.Dispatch(context.Background(), 1, TextEvent{Text: "after"}, wg.Done)
	wg.Wait()

	got := sender.replies(1)
	if len(got) != 2 || got[0].Text != msgInternalError || got[1].Text != "after" {
		t.Errorf("unexpected replies after panic: %+v", got)
	}
}

func TestDispatcher_IdleActorsExit(t *testing.T) {
	d := NewDispatcher(handlerFunc(echoHandler), &recordingSender{}, WithIdleTimeout(20*time.Millisecond))
	defer d.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	d.Dispatch(context.Background(), 1, TextEvent{Text: "hi"}, wg.Done)
	wg.Wait()
	waitFor(t, func() bool { return d.ActiveActors() == 0 })

	// A returning user gets a fresh actor.
	wg.Add(1)
	if !d.Dispatch(context.Background(), 1, TextEvent{Text: "again"}, wg.Done) {
		t.Fatal("event for returning user rejected")
	}
	wg.Wait()
}

func TestDispatcher_RejectsAfterStop(t *testing.T) {
	d := NewDispatcher(handlerFunc(echoHandler), &recordingSender{})
	d.Stop()
	called := false
	if d.Dispatch(context.Background(), 1, TextEvent{Text: "late"}, func() { called = true }) {
		t.Error("stopped dispatcher must reject events")
	}
	if !called {
		t.Error("done must run for a rejected event")
	}
}

func TestDispatcher_WithMachine(t *testing.T) {
	h := newHarness(t)
	sender := &recordingSender{}
	d := NewDispatcher(h.m, sender)
	defer d.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	d.Dispatch(context.Background(), 7, CommandEvent{Command: CommandStart}, wg.Done)
	wg.Wait()

	got := sender.replies(7)
	if len(got) != 2 || got[0].Text != msgWelcome {
		t.Errorf("unexpected replies %+v", got)
	}
}
