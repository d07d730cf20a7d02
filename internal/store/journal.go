package store

import "time"

// DefaultJournalRetention is how long handled updates are remembered.
// Telegram stops redelivering an update long before that.
const DefaultJournalRetention = 7 * 24 * time.Hour

// JournalEntry records one inbound Telegram update.
type JournalEntry struct {
	UpdateID   int        `json:"update_id"`
	ChatID     int64      `json:"chat_id"`
	ReceivedAt time.Time  `json:"received_at"`
	HandledAt  *time.Time `json:"handled_at,omitempty"`
}

// UpdateJournal remembers which updates were accepted so a redelivered
// update is not answered twice.
type UpdateJournal interface {
	// SeenUpdate reports whether updateID is in the journal.
	SeenUpdate(updateID int) (bool, error)

	// BeginUpdate records updateID for chatID. It returns false when the
	// update was already recorded and must be skipped.
	BeginUpdate(updateID int, chatID int64) (bool, error)

	// FinishUpdate stamps the time the conversation finished with updateID.
	FinishUpdate(updateID int) error

	// PruneUpdates forgets updates received before cutoff.
	PruneUpdates(cutoff time.Time) (int, error)
}
