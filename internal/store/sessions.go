package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// SessionStore persists conversation sessions keyed by user and flow.
type SessionStore interface {
	// SaveSession inserts or replaces the session; CreatedAt of an existing
	// row is kept.
	SaveSession(sess models.Session) error
	// GetSession returns nil when the user has no session in flow.
	GetSession(userID int64, flow models.FlowType) (*models.Session, error)
	DeleteSession(userID int64, flow models.FlowType) error
}

func (b sqlBackend) SaveSession(sess models.Session) error {
	var data interface{}
	if len(sess.Data) > 0 {
		raw, err := json.Marshal(sess.Data)
		if err != nil {
			return fmt.Errorf("failed to encode session data: %w", err)
		}
		data = string(raw)
	}
	created, updated := sess.CreatedAt, sess.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	if created.IsZero() {
		created = updated
	}
	_, err := b.exec(
		`INSERT INTO sessions (user_id, flow, state, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, flow) DO UPDATE SET state = excluded.state, data = excluded.data, updated_at = excluded.updated_at`,
		sess.UserID, string(sess.Flow), string(sess.State), data, created.UTC(), updated.UTC(),
	)
	if err != nil {
		slog.Error(b.d.name+".SaveSession failed", "error", err, "userID", sess.UserID, "state", sess.State)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (b sqlBackend) GetSession(userID int64, flow models.FlowType) (*models.Session, error) {
	sess := models.Session{UserID: userID, Flow: flow, Data: make(map[models.DataKey]string)}
	var state string
	var data sql.NullString
	err := b.db.QueryRow(
		b.d.bind(`SELECT state, data, created_at, updated_at FROM sessions WHERE user_id = ? AND flow = ?`),
		userID, string(flow),
	).Scan(&state, &data, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error(b.d.name+".GetSession failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.State = models.StateType(state)
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &sess.Data); err != nil {
			// A corrupt blob is treated as empty; the flow re-asks what it needs.
			slog.Warn(b.d.name+".GetSession: discarding unreadable data", "error", err, "userID", userID)
			sess.Data = make(map[models.DataKey]string)
		}
	}
	return &sess, nil
}

func (b sqlBackend) DeleteSession(userID int64, flow models.FlowType) error {
	if _, err := b.exec(`DELETE FROM sessions WHERE user_id = ? AND flow = ?`, userID, string(flow)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
