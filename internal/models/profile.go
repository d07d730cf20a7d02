package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Gender is the athlete's gender as used for energy estimates.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Accepted ranges for numeric profile fields.
const (
	MinAge    = 10
	MaxAge    = 100
	MinWeight = 30.0
	MaxWeight = 200.0
	MinHeight = 100.0
	MaxHeight = 250.0
)

// CompetitionDateLayout is the user-facing date format (DD.MM.YYYY).
const CompetitionDateLayout = "02.01.2006"

// AthleteProfile is the persisted demographic and goal record of a user.
type AthleteProfile struct {
	ID              int64      `json:"id,omitempty"`
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username,omitempty"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	SportType       string     `json:"sport_type"`
	Gender          Gender     `json:"gender"`
	Age             int        `json:"age"`
	Weight          float64    `json:"weight"`
	Height          float64    `json:"height"`
	Goal            string     `json:"goal"`
	CompetitionDate *time.Time `json:"competition_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Validate checks every field constraint. A competition date, if set, must
// fall strictly after the calendar day of now.
func (p *AthleteProfile) Validate(now time.Time) error {
	if strings.TrimSpace(p.SportType) == "" {
		return fmt.Errorf("%w: sport type is required", ErrValidation)
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return fmt.Errorf("%w: invalid gender %q", ErrValidation, p.Gender)
	}
	if p.Age < MinAge || p.Age > MaxAge {
		return fmt.Errorf("%w: age %d outside %d-%d", ErrValidation, p.Age, MinAge, MaxAge)
	}
	if p.Weight < MinWeight || p.Weight > MaxWeight {
		return fmt.Errorf("%w: weight %.1f outside %.0f-%.0f", ErrValidation, p.Weight, MinWeight, MaxWeight)
	}
	if p.Height < MinHeight || p.Height > MaxHeight {
		return fmt.Errorf("%w: height %.1f outside %.0f-%.0f", ErrValidation, p.Height, MinHeight, MaxHeight)
	}
	if strings.TrimSpace(p.Goal) == "" {
		return fmt.Errorf("%w: goal is required", ErrValidation)
	}
	if p.CompetitionDate != nil && !isAfterDay(*p.CompetitionDate, now) {
		return fmt.Errorf("%w: competition date must be in the future", ErrValidation)
	}
	return nil
}

// ParseGender maps free-form input onto a Gender.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "мужской", "муж", "м", "male", "m":
		return GenderMale, nil
	case "женский", "жен", "ж", "female", "f":
		return GenderFemale, nil
	}
	return "", fmt.Errorf("%w: unknown gender %q", ErrValidation, s)
}

// ParseAge parses an integer age within [MinAge, MaxAge].
func ParseAge(s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: age is not a number", ErrValidation)
	}
	if age < MinAge || age > MaxAge {
		return 0, fmt.Errorf("%w: age %d outside %d-%d", ErrValidation, age, MinAge, MaxAge)
	}
	return age, nil
}

// ParseWeight parses a weight in kilograms; a comma decimal separator is accepted.
func ParseWeight(s string) (float64, error) {
	return parseRange(s, "weight", MinWeight, MaxWeight)
}

// ParseHeight parses a height in centimetres; a comma decimal separator is accepted.
func ParseHeight(s string) (float64, error) {
	return parseRange(s, "height", MinHeight, MaxHeight)
}

func parseRange(s, field string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", ErrValidation, field)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s %.1f outside %.0f-%.0f", ErrValidation, field, v, lo, hi)
	}
	return v, nil
}

// IsNoCompetition reports whether s is the sentinel for "no competitions planned".
func IsNoCompetition(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "нет", "no", "none", "-":
		return true
	}
	return false
}

// ParseCompetitionDate parses a DD.MM.YYYY date that must fall after today.
func ParseCompetitionDate(s string, now time.Time) (time.Time, error) {
	d, err := time.ParseInLocation(CompetitionDateLayout, strings.TrimSpace(s), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be DD.MM.YYYY", ErrValidation)
	}
	if !isAfterDay(d, now) {
		return time.Time{}, fmt.Errorf("%w: competition date must be in the future", ErrValidation)
	}
	return d, nil
}

func isAfterDay(d, now time.Time) bool {
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	return !d.Before(today.AddDate(0, 0, 1))
}
