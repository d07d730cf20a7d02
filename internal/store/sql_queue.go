package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dialect adapts the statements shared by the SQLite and Postgres backends.
type dialect struct {
	name       string // log prefix
	numbered   bool   // $1-style placeholders
	skipLocked bool   // supports FOR UPDATE SKIP LOCKED
}

var (
	sqliteDialect   = dialect{name: "SQLiteStore"}
	postgresDialect = dialect{name: "PostgresStore", numbered: true, skipLocked: true}
)

// bind rewrites ? placeholders for drivers that number them.
func (d dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlBackend implements the parts of Store whose SQL is the same for every
// driver. The SQL stores embed it.
type sqlBackend struct {
	db *sql.DB
	d  dialect
}

var (
	_ ReplyQueue    = sqlBackend{}
	_ UpdateJournal = sqlBackend{}
	_ SessionStore  = sqlBackend{}
)

const replyColumns = `id, chat_id, payload, status, attempts, not_before, dedupe_key, claimed_at, last_error, created_at, updated_at`

func (b sqlBackend) exec(query string, args ...interface{}) (int64, error) {
	res, err := b.db.Exec(b.d.bind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (b sqlBackend) QueueReply(chatID int64, payload, dedupeKey string) (string, error) {
	now := time.Now().UTC()
	id := newReplyID()
	n, err := b.exec(
		`INSERT INTO pending_replies (id, chat_id, payload, status, attempts, dedupe_key, created_at, updated_at)
		 VALUES (?, ?, ?, 'queued', 0, ?, ?, ?)
		 ON CONFLICT (dedupe_key) WHERE status IN ('queued', 'sending') DO NOTHING`,
		id, chatID, payload, nilIfEmpty(dedupeKey), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("queue reply failed: %w", err)
	}
	if n == 0 {
		var existing string
		err := b.db.QueryRow(
			b.d.bind(`SELECT id FROM pending_replies WHERE dedupe_key = ? AND status IN ('queued', 'sending')`),
			dedupeKey,
		).Scan(&existing)
		if err != nil {
			return "", fmt.Errorf("lookup of queued reply %q failed: %w", dedupeKey, err)
		}
		slog.Debug(b.d.name+".QueueReply: already queued", "dedupeKey", dedupeKey, "id", existing)
		return existing, nil
	}
	slog.Debug(b.d.name+".QueueReply", "id", id, "chatID", chatID)
	return id, nil
}

// ClaimReplies tags the due rows with a fresh claim token in one UPDATE and
// reads them back by that token, so concurrent claimers never share a row.
func (b sqlBackend) ClaimReplies(now time.Time, limit int) ([]QueuedReply, error) {
	now = now.UTC()
	token := uuid.NewString()
	pick := `SELECT id FROM pending_replies
		WHERE status = 'queued' AND (not_before IS NULL OR not_before <= ?)
		ORDER BY created_at LIMIT ?`
	if b.d.skipLocked {
		pick += ` FOR UPDATE SKIP LOCKED`
	}
	n, err := b.exec(
		`UPDATE pending_replies SET status = 'sending', claim_token = ?, claimed_at = ?, updated_at = ?
		 WHERE id IN (`+pick+`)`,
		token, now, now, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim replies failed: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := b.db.Query(
		b.d.bind(`SELECT `+replyColumns+` FROM pending_replies WHERE claim_token = ? ORDER BY created_at`),
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("read claimed replies failed: %w", err)
	}
	defer rows.Close()

	claimed := make([]QueuedReply, 0, n)
	for rows.Next() {
		r, err := scanQueuedReply(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, r)
	}
	return claimed, rows.Err()
}

func (b sqlBackend) MarkReplySent(id string) error {
	_, err := b.exec(
		`UPDATE pending_replies SET status = 'sent', claim_token = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark reply %s sent failed: %w", id, err)
	}
	return nil
}

func (b sqlBackend) RetryReply(id, errMsg string, notBefore time.Time) error {
	_, err := b.exec(
		`UPDATE pending_replies
		 SET status = 'queued', attempts = attempts + 1, last_error = ?, not_before = ?, claim_token = NULL, claimed_at = NULL, updated_at = ?
		 WHERE id = ?`,
		errMsg, notBefore.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("retry reply %s failed: %w", id, err)
	}
	return nil
}

func (b sqlBackend) DropReply(id, errMsg string) error {
	_, err := b.exec(
		`UPDATE pending_replies
		 SET status = 'failed', attempts = attempts + 1, last_error = ?, claim_token = NULL, updated_at = ?
		 WHERE id = ?`,
		errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("drop reply %s failed: %w", id, err)
	}
	return nil
}

func (b sqlBackend) ReleaseStaleReplies(claimedBefore time.Time) (int, error) {
	n, err := b.exec(
		`UPDATE pending_replies SET status = 'queued', claim_token = NULL, claimed_at = NULL, updated_at = ?
		 WHERE status = 'sending' AND claimed_at < ?`,
		time.Now().UTC(), claimedBefore.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("release stale replies failed: %w", err)
	}
	if n > 0 {
		slog.Info(b.d.name+".ReleaseStaleReplies", "released", n)
	}
	return int(n), nil
}

func (b sqlBackend) SeenUpdate(updateID int) (bool, error) {
	var n int
	err := b.db.QueryRow(b.d.bind(`SELECT COUNT(*) FROM telegram_updates WHERE update_id = ?`), updateID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("journal lookup failed: %w", err)
	}
	return n > 0, nil
}

func (b sqlBackend) BeginUpdate(updateID int, chatID int64) (bool, error) {
	n, err := b.exec(
		`INSERT INTO telegram_updates (update_id, chat_id, received_at) VALUES (?, ?, ?)
		 ON CONFLICT (update_id) DO NOTHING`,
		updateID, chatID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("journal insert failed: %w", err)
	}
	if n == 0 {
		slog.Debug(b.d.name+".BeginUpdate: already journaled", "updateID", updateID, "chatID", chatID)
	}
	return n > 0, nil
}

func (b sqlBackend) FinishUpdate(updateID int) error {
	if _, err := b.exec(`UPDATE telegram_updates SET handled_at = ? WHERE update_id = ?`, time.Now().UTC(), updateID); err != nil {
		return fmt.Errorf("journal update failed: %w", err)
	}
	return nil
}

func (b sqlBackend) PruneUpdates(cutoff time.Time) (int, error) {
	n, err := b.exec(`DELETE FROM telegram_updates WHERE received_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("journal prune failed: %w", err)
	}
	return int(n), nil
}
