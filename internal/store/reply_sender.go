package store

import (
	"context"
	"log/slog"
	"time"
)

// Reply sender defaults.
const (
	DefaultSendInterval    = 5 * time.Second
	DefaultMaxSendAttempts = 5
	DefaultClaimBatch      = 10
	DefaultStaleClaim      = 5 * time.Minute
	maxRetryDelay          = 10 * time.Minute
)

// DeliverFunc sends one queued reply to its chat.
type DeliverFunc func(ctx context.Context, r QueuedReply) error

// ReplySender drains a ReplyQueue in the background, retrying failed
// deliveries with exponential delay until DefaultMaxSendAttempts is reached.
type ReplySender struct {
	queue       ReplyQueue
	deliver     DeliverFunc
	interval    time.Duration
	staleAfter  time.Duration
	batch       int
	maxAttempts int
	now         func() time.Time
}

// NewReplySender returns a sender polling queue every interval.
func NewReplySender(queue ReplyQueue, deliver DeliverFunc, interval time.Duration) *ReplySender {
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	return &ReplySender{
		queue:       queue,
		deliver:     deliver,
		interval:    interval,
		staleAfter:  DefaultStaleClaim,
		batch:       DefaultClaimBatch,
		maxAttempts: DefaultMaxSendAttempts,
		now:         time.Now,
	}
}

// Recover requeues replies left claimed by a previous process.
func (s *ReplySender) Recover() error {
	n, err := s.queue.ReleaseStaleReplies(s.now().Add(-s.staleAfter))
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("ReplySender.Recover: released stale replies", "count", n)
	}
	return nil
}

// Run delivers due replies until ctx is cancelled. The first pass happens
// immediately so replies queued before a restart go out without waiting.
func (s *ReplySender) Run(ctx context.Context) {
	slog.Info("ReplySender.Run: started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.flush(ctx)
		select {
		case <-ctx.Done():
			slog.Info("ReplySender.Run: stopped")
			return
		case <-ticker.C:
		}
	}
}

// RetryDelay is the wait after the given number of failed attempts:
// 10s, 20s, 40s and so on, capped at ten minutes.
func RetryDelay(failed int) time.Duration {
	if failed > 6 {
		return maxRetryDelay
	}
	d := 10 * time.Second << failed
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// flush claims one batch and delivers it; it returns how many were sent.
func (s *ReplySender) flush(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	now := s.now()
	replies, err := s.queue.ClaimReplies(now, s.batch)
	if err != nil {
		slog.Error("ReplySender.flush: claim failed", "error", err)
		return 0
	}
	sent := 0
	for _, r := range replies {
		if ctx.Err() != nil {
			// Unsent claims are released by Recover on the next start.
			return sent
		}
		if s.send(ctx, now, r) {
			sent++
		}
	}
	return sent
}

func (s *ReplySender) send(ctx context.Context, now time.Time, r QueuedReply) bool {
	err := s.deliver(ctx, r)
	if err == nil {
		if err := s.queue.MarkReplySent(r.ID); err != nil {
			slog.Error("ReplySender.send: mark sent failed", "id", r.ID, "error", err)
		}
		slog.Debug("ReplySender.send: delivered", "id", r.ID, "chatID", r.ChatID)
		return true
	}

	attempt := r.Attempts + 1
	if attempt >= s.maxAttempts {
		slog.Error("ReplySender.send: giving up", "id", r.ID, "chatID", r.ChatID, "attempts", attempt, "error", err)
		if derr := s.queue.DropReply(r.ID, err.Error()); derr != nil {
			slog.Error("ReplySender.send: drop failed", "id", r.ID, "error", derr)
		}
		return false
	}
	slog.Warn("ReplySender.send: delivery failed, will retry", "id", r.ID, "attempts", attempt, "error", err)
	if rerr := s.queue.RetryReply(r.ID, err.Error(), now.Add(RetryDelay(r.Attempts))); rerr != nil {
		slog.Error("ReplySender.send: reschedule failed", "id", r.ID, "error", rerr)
	}
	return false
}
