package store

import (
	"sort"
	"time"
)

var (
	_ ReplyQueue    = (*InMemoryStore)(nil)
	_ UpdateJournal = (*InMemoryStore)(nil)
)

func (s *InMemoryStore) QueueReply(chatID int64, payload, dedupeKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dedupeKey != "" {
		for id, r := range s.replies {
			if r.DedupeKey == dedupeKey && r.active() {
				return id, nil
			}
		}
	}
	now := time.Now()
	r := &QueuedReply{
		ID:        newReplyID(),
		ChatID:    chatID,
		Payload:   payload,
		Status:    ReplyQueued,
		DedupeKey: dedupeKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.replies[r.ID] = r
	return r.ID, nil
}

func (s *InMemoryStore) ClaimReplies(now time.Time, limit int) ([]QueuedReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*QueuedReply
	for _, r := range s.replies {
		if r.due(now) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	claimed := make([]QueuedReply, len(due))
	for i, r := range due {
		at := now
		r.Status = ReplySending
		r.ClaimedAt = &at
		r.UpdatedAt = now
		claimed[i] = *r
	}
	return claimed, nil
}

func (s *InMemoryStore) MarkReplySent(id string) error {
	s.withReply(id, func(r *QueuedReply) {
		r.Status = ReplySent
	})
	return nil
}

func (s *InMemoryStore) RetryReply(id, errMsg string, notBefore time.Time) error {
	s.withReply(id, func(r *QueuedReply) {
		r.Status = ReplyQueued
		r.Attempts++
		r.LastError = errMsg
		r.NotBefore = &notBefore
		r.ClaimedAt = nil
	})
	return nil
}

func (s *InMemoryStore) DropReply(id, errMsg string) error {
	s.withReply(id, func(r *QueuedReply) {
		r.Status = ReplyFailed
		r.Attempts++
		r.LastError = errMsg
	})
	return nil
}

func (s *InMemoryStore) ReleaseStaleReplies(claimedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	released := 0
	for _, r := range s.replies {
		if r.Status != ReplySending || r.ClaimedAt == nil || !r.ClaimedAt.Before(claimedBefore) {
			continue
		}
		r.Status = ReplyQueued
		r.ClaimedAt = nil
		released++
	}
	return released, nil
}

// Reply returns a copy of the queued reply with id.
func (s *InMemoryStore) Reply(id string) (QueuedReply, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.replies[id]; ok {
		return *r, true
	}
	return QueuedReply{}, false
}

func (s *InMemoryStore) withReply(id string, fn func(*QueuedReply)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.replies[id]; ok {
		fn(r)
		r.UpdatedAt = time.Now()
	}
}

func (s *InMemoryStore) SeenUpdate(updateID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.journal[updateID]
	return ok, nil
}

func (s *InMemoryStore) BeginUpdate(updateID int, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.journal[updateID]; ok {
		return false, nil
	}
	s.journal[updateID] = &JournalEntry{UpdateID: updateID, ChatID: chatID, ReceivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) FinishUpdate(updateID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.journal[updateID]; ok {
		now := time.Now()
		e.HandledAt = &now
	}
	return nil
}

func (s *InMemoryStore) PruneUpdates(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, e := range s.journal {
		if e.ReceivedAt.Before(cutoff) {
			delete(s.journal, id)
			pruned++
		}
	}
	return pruned, nil
}
