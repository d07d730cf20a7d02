package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// fieldStep is one step of parameter collection. apply validates text and
// writes it into the draft; an error leaves the draft untouched.
type fieldStep struct {
	name    string
	prompt  string
	invalid string
	apply   func(p *models.AthleteProfile, text string, now time.Time) error
}

// profileFields is the ordered parameter collection sub-machine.
var profileFields = []fieldStep{
	{
		name:    "sport_type",
		prompt:  promptSportType,
		invalid: invalidSportType,
		apply: func(p *models.AthleteProfile, text string, _ time.Time) error {
			v, err := required(text, "sport type")
			if err != nil {
				return err
			}
			p.SportType = v
			return nil
		},
	},
	{
		name:    "gender",
		prompt:  promptGender,
		invalid: invalidGender,
		apply: func(p *models.AthleteProfile, text string, _ time.Time) error {
			g, err := models.ParseGender(text)
			if err != nil {
				return err
			}
			p.Gender = g
			return nil
		},
	},
	{
		name:    "age",
		prompt:  promptAge,
		invalid: invalidAge,
		apply: func(p *models.AthleteProfile, text string, _ time.Time) error {
			age, err := models.ParseAge(text)
			if err != nil {
				return err
			}
			p.Age = age
			return nil
		},
	},
	{
		name:    "weight",
		prompt:  promptWeight,
		invalid: invalidWeight,
		apply: func(p *models.AthleteProfile, text string, _ time.Time) error {
			w, err := models.ParseWeight(text)
			if err != nil {
				return err
			}
			p.Weight = w
			return nil
		},
	},
	{
		name:    "height",
		prompt:  promptHeight,
		invalid: invalidHeight,
		apply: func(p *models.AthleteProfile, text string, _ time.Time) error {
			h, err := models.ParseHeight(text)
			if err != nil {
				return err
			}
			p.Height = h
			return nil
		},
	},
	{
		name:    "goal",
		prompt:  promptGoal,
		invalid: invalidGoal,
		apply: func(p *models.AthleteProfile, text string, _ time.Time) error {
			v, err := required(text, "goal")
			if err != nil {
				return err
			}
			p.Goal = v
			return nil
		},
	},
	{
		name:    "competition_date",
		prompt:  promptCompDate,
		invalid: invalidCompDate,
		apply: func(p *models.AthleteProfile, text string, now time.Time) error {
			if models.IsNoCompetition(text) {
				p.CompetitionDate = nil
				return nil
			}
			d, err := models.ParseCompetitionDate(text, now)
			if err != nil {
				return err
			}
			p.CompetitionDate = &d
			return nil
		},
	},
}

func required(text, field string) (string, error) {
	v := strings.TrimSpace(text)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", models.ErrValidation, field)
	}
	return v, nil
}
