package flow

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Defaults for NewDispatcher.
const (
	DefaultMailboxSize = 16
	DefaultIdleTimeout = 5 * time.Minute
)

// Sender delivers a reply to a user.
type Sender interface {
	Send(ctx context.Context, userID int64, r Reply) error
}

// Handler turns one event into replies. *Machine implements it.
type Handler interface {
	Handle(ctx context.Context, userID int64, ev Event) ([]Reply, error)
}

var _ Handler = (*Machine)(nil)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMailboxSize sets how many events may wait for one user.
func WithMailboxSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.mailboxSize = n
		}
	}
}

// WithIdleTimeout sets how long an idle user goroutine lingers.
func WithIdleTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.idleTimeout = timeout
		}
	}
}

type job struct {
	ctx  context.Context
	ev   Event
	done func()
}

// Dispatcher serializes events per user: each active user gets one
// goroutine that drains a bounded mailbox in arrival order, so a user never
// has two events (and thus two model calls) in flight. Different users are
// handled concurrently.
type Dispatcher struct {
	handler     Handler
	sender      Sender
	mailboxSize int
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	actors map[int64]chan job
}

// NewDispatcher creates a Dispatcher delivering handler replies via sender.
func NewDispatcher(handler Handler, sender Sender, opts ...DispatcherOption) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		handler:     handler,
		sender:      sender,
		mailboxSize: DefaultMailboxSize,
		idleTimeout: DefaultIdleTimeout,
		ctx:         ctx,
		cancel:      cancel,
		actors:      make(map[int64]chan job),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch queues ev for userID. done, if non-nil, runs once the event has
// been handled or rejected. It returns false when the event was rejected
// because the user's mailbox is full or the dispatcher is stopped; a full
// mailbox is answered with a busy message.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, ev Event, done func()) bool {
	j := job{ctx: context.WithoutCancel(ctx), ev: ev, done: done}

	d.mu.Lock()
	if d.ctx.Err() != nil {
		d.mu.Unlock()
		slog.Warn("Dispatcher.Dispatch: dispatcher stopped, dropping event", "userID", userID)
		if done != nil {
			done()
		}
		return false
	}
	inbox, ok := d.actors[userID]
	if !ok {
		inbox = make(chan job, d.mailboxSize)
		d.actors[userID] = inbox
		d.wg.Add(1)
		go d.run(userID, inbox)
	}
	select {
	case inbox <- j:
		d.mu.Unlock()
		return true
	default:
	}
	d.mu.Unlock()

	slog.Warn("Dispatcher.Dispatch: mailbox full", "userID", userID, "size", d.mailboxSize)
	d.send(j.ctx, userID, plain(msgBusy))
	if done != nil {
		done()
	}
	return false
}

func (d *Dispatcher) run(userID int64, inbox chan job) {
	defer d.wg.Done()
	idle := time.NewTimer(d.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case j := <-inbox:
			d.process(userID, j)
			idle.Reset(d.idleTimeout)
		case <-idle.C:
			d.mu.Lock()
			if len(inbox) > 0 {
				d.mu.Unlock()
				idle.Reset(d.idleTimeout)
				continue
			}
			delete(d.actors, userID)
			d.mu.Unlock()
			slog.Debug("Dispatcher.run: idle, exiting", "userID", userID)
			return
		case <-d.ctx.Done():
			return
		}
	}
}

// process handles one event. A panic in the handler is logged and answered
// with a generic error; it never takes the process down.
func (d *Dispatcher) process(userID int64, j job) {
	if j.done != nil {
		defer j.done()
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher.process: panic recovered", "userID", userID, "panic", r, "stack", string(debug.Stack()))
			d.send(j.ctx, userID, plain(msgInternalError))
		}
	}()

	replies, err := d.handler.Handle(j.ctx, userID, j.ev)
	if err != nil {
		slog.Error("Dispatcher.process: handler error", "userID", userID, "error", err)
	}
	for _, r := range replies {
		d.send(j.ctx, userID, r)
	}
}

func (d *Dispatcher) send(ctx context.Context, userID int64, r Reply) {
	if err := d.sender.Send(ctx, userID, r); err != nil {
		slog.Error("Dispatcher.send: reply not delivered", "userID", userID, "error", err)
	}
}

// ActiveActors returns the number of users with a running goroutine.
func (d *Dispatcher) ActiveActors() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actors)
}

// Stop rejects new events and waits for in-flight events to finish. Events
// still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	slog.Info("Dispatcher.Stop: stopped")
}
