// Package parser turns raw model text into interview questions or a
// structured meal plan. Malformed input never panics: question parsing
// degrades to canned questions, plan parsing returns an error wrapping
// models.ErrParse.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
)

var enumerated = regexp.MustCompile(`^[1-9]\.(.*)$`)

var fallbackQuestions = map[models.Phase][]string{
	models.PhaseTraining: {
		"Сколько раз в неделю вы тренируетесь?",
		"Какова продолжительность одной тренировки?",
		"Какова интенсивность ваших тренировок (низкая/средняя/высокая)?",
		"В какое время суток вы обычно тренируетесь?",
		"Какие типы тренировок преобладают (силовые/кардио/смешанные)?",
	},
	models.PhaseActivity: {
		"Опишите ваш обычный уровень повседневной активности (сидячий/умеренный/активный)?",
		"Есть ли у вас пищевые аллергии или непереносимости?",
		"Какие продукты вы предпочитаете избегать в питании?",
		"Сколько часов в сутки вы обычно спите?",
		"Испытываете ли вы регулярный стресс?",
	},
}

// FallbackQuestions returns a copy of the canned questions for phase.
func FallbackQuestions(phase models.Phase) []string {
	qs, ok := fallbackQuestions[phase]
	if !ok {
		qs = fallbackQuestions[models.PhaseTraining]
	}
	return append([]string(nil), qs...)
}

// ParseQuestions extracts the lines that start with "1." to "9." in order,
// with the marker stripped. Multi-digit markers such as years are not
// questions. When none are found the canned questions for phase are
// returned, so the result is never empty.
func ParseQuestions(raw string, phase models.Phase) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		m := enumerated.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if q := strings.TrimSpace(m[1]); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return FallbackQuestions(phase)
	}
	return out
}

// ParsePlan decodes the substring between the first '{' and the last '}' of
// raw as a MealPlan and stamps it with the requesting user and time.
func ParsePlan(raw string, userID int64, now time.Time) (*models.MealPlan, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in model output", models.ErrParse)
	}

	var plan models.MealPlan
	if err := json.Unmarshal([]byte(raw[start:end+1]), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParse, err)
	}
	plan.Normalize()
	plan.GeneratedFor = &models.GeneratedFor{UserID: userID, GeneratedAt: now}
	return &plan, nil
}
