package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const profileColumns = `id, user_id, username, first_name, last_name, sport_type, gender, age, weight, height, goal, competition_date, created_at, updated_at`

func scanProfile(row rowScanner) (*models.AthleteProfile, error) {
	var p models.AthleteProfile
	var username, firstName, lastName sql.NullString
	var gender string
	var competition sql.NullTime
	err := row.Scan(
		&p.ID, &p.UserID, &username, &firstName, &lastName, &p.SportType, &gender,
		&p.Age, &p.Weight, &p.Height, &p.Goal, &competition, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Username = username.String
	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.Gender = models.Gender(gender)
	if competition.Valid {
		d := competition.Time
		p.CompetitionDate = &d
	}
	return &p, nil
}

func competitionArg(p models.AthleteProfile) interface{} {
	if p.CompetitionDate == nil {
		return nil
	}
	return *p.CompetitionDate
}

const planColumns = `id, user_id, plan_type, duration_days, plan_data, created_at`

func scanStoredPlan(row rowScanner) (*models.StoredPlan, error) {
	var sp models.StoredPlan
	var data []byte
	if err := row.Scan(&sp.ID, &sp.UserID, &sp.PlanType, &sp.DurationDays, &data, &sp.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &sp.Plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan %d: %w", sp.ID, err)
	}
	return &sp, nil
}

func scanPlanSummary(rows *sql.Rows) (models.PlanSummary, error) {
	var s models.PlanSummary
	err := rows.Scan(&s.ID, &s.PlanType, &s.DurationDays, &s.TotalCalories, &s.CreatedAt)
	return s, err
}

func encodeActivity(a models.Activity) (interface{}, error) {
	if len(a.Payload) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode activity payload: %w", err)
	}
	return string(data), nil
}

func scanQueuedReply(rows *sql.Rows) (QueuedReply, error) {
	var r QueuedReply
	var dedupeKey, lastError sql.NullString
	var notBefore, claimedAt sql.NullTime
	if err := rows.Scan(
		&r.ID, &r.ChatID, &r.Payload, &r.Status, &r.Attempts,
		&notBefore, &dedupeKey, &claimedAt, &lastError, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return r, fmt.Errorf("failed to scan queued reply: %w", err)
	}
	r.DedupeKey = dedupeKey.String
	r.LastError = lastError.String
	if notBefore.Valid {
		t := notBefore.Time
		r.NotBefore = &t
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		r.ClaimedAt = &t
	}
	return r, nil
}
