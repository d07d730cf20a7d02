package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// Profile renders the athlete's profile card.
func Profile(p *models.AthleteProfile) string {
	if p == nil {
		return "👤 Профиль не заполнен"
	}
	var b strings.Builder
	b.WriteString("👤 <b>Ваш профиль:</b>\n\n")
	fmt.Fprintf(&b, "🏃 <b>Вид спорта:</b> %s\n", orDash(Escape(p.SportType)))
	fmt.Fprintf(&b, "⚧ <b>Пол:</b> %s\n", genderTitle(p.Gender))
	fmt.Fprintf(&b, "🎂 <b>Возраст:</b> %d лет\n", p.Age)
	fmt.Fprintf(&b, "⚖️ <b>Вес:</b> %s кг\n", strconv.FormatFloat(p.Weight, 'f', -1, 64))
	fmt.Fprintf(&b, "📏 <b>Рост:</b> %s см\n", strconv.FormatFloat(p.Height, 'f', -1, 64))
	fmt.Fprintf(&b, "🎯 <b>Цель:</b> %s\n", orDash(Escape(p.Goal)))
	if p.CompetitionDate != nil {
		fmt.Fprintf(&b, "🏆 <b>Соревнования:</b> %s\n", p.CompetitionDate.Format(models.CompetitionDateLayout))
	} else {
		b.WriteString("🏆 <b>Соревнования:</b> не планируются\n")
	}
	return b.String()
}

func genderTitle(g models.Gender) string {
	switch g {
	case models.GenderMale:
		return "мужской"
	case models.GenderFemale:
		return "женский"
	}
	return "—"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
