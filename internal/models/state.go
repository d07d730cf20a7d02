package models

import "time"

// Session is where one user is in a conversation flow, plus the values the
// flow keeps between messages.
type Session struct {
	UserID    int64              `json:"user_id"`
	Flow      FlowType           `json:"flow"`
	State     StateType          `json:"state"`
	Data      map[DataKey]string `json:"data,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Clone returns a copy of s that shares no map with it.
func (s Session) Clone() Session {
	data := make(map[DataKey]string, len(s.Data))
	for k, v := range s.Data {
		data[k] = v
	}
	s.Data = data
	return s
}
