package store

import (
	"time"

	"github.com/google/uuid"
)

// ReplyStatus is where a queued reply is in its delivery lifecycle.
type ReplyStatus string

const (
	ReplyQueued  ReplyStatus = "queued"
	ReplySending ReplyStatus = "sending"
	ReplySent    ReplyStatus = "sent"
	ReplyFailed  ReplyStatus = "failed"
)

// QueuedReply is a bot reply waiting to be delivered to a Telegram chat.
// Payload is the JSON encoding of the reply as the transport understands it.
type QueuedReply struct {
	ID        string      `json:"id"`
	ChatID    int64       `json:"chat_id"`
	Payload   string      `json:"payload"`
	Status    ReplyStatus `json:"status"`
	Attempts  int         `json:"attempts"`
	NotBefore *time.Time  `json:"not_before,omitempty"`
	DedupeKey string      `json:"dedupe_key,omitempty"`
	ClaimedAt *time.Time  `json:"claimed_at,omitempty"`
	LastError string      `json:"last_error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// active reports whether the reply still occupies its dedupe key.
func (r QueuedReply) active() bool {
	return r.Status == ReplyQueued || r.Status == ReplySending
}

// due reports whether a queued reply may be claimed at now.
func (r QueuedReply) due(now time.Time) bool {
	return r.Status == ReplyQueued && (r.NotBefore == nil || !r.NotBefore.After(now))
}

// ReplyQueue keeps replies that could not be sent inline until they are
// delivered or given up on. It survives restarts for the SQL backends.
type ReplyQueue interface {
	// QueueReply stores a reply for chatID. While a queued or sending reply
	// with the same non-empty dedupeKey exists, its id is returned instead.
	QueueReply(chatID int64, payload, dedupeKey string) (string, error)

	// ClaimReplies moves up to limit due replies, oldest first, to sending.
	ClaimReplies(now time.Time, limit int) ([]QueuedReply, error)

	MarkReplySent(id string) error

	// RetryReply counts a failed attempt and queues the reply again for notBefore.
	RetryReply(id, errMsg string, notBefore time.Time) error

	// DropReply counts a final failed attempt; the reply is not retried.
	DropReply(id, errMsg string) error

	// ReleaseStaleReplies returns replies claimed before claimedBefore to the
	// queue. Claims that old belong to a sender that died mid-delivery.
	ReleaseStaleReplies(claimedBefore time.Time) (int, error)
}

func newReplyID() string {
	return "reply_" + uuid.NewString()
}
