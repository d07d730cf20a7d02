// Package prompt builds the natural-language requests sent to the language
// model. Every function is pure and total: missing profile fields are
// rendered as a placeholder instead of failing.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// NotSpecified replaces any profile field that has no value.
const NotSpecified = "не указано"

// System prompts for the two request kinds.
const (
	QuestionsSystemPrompt = "Ты опытный спортивный диетолог. Генерируй конкретные, четкие вопросы для сбора информации о питании и тренировках спортсменов."
	PlanSystemPrompt      = "Ты эксперт по спортивному питанию. Создавай детальные, персонализированные планы питания для спортсменов с учетом их целей, вида спорта и индивидуальных особенностей."
)

// QuestionsMaxTokens is the completion budget for a question list.
const QuestionsMaxTokens = 1000

var phaseTopics = map[models.Phase]struct {
	subject string
	topics  string
}{
	models.PhaseTraining: {
		subject: "о тренировочном процессе этого спортсмена",
		topics:  "частоты тренировок, продолжительности, интенсивности, типа тренировок, времени суток для тренировок, восстановления",
	},
	models.PhaseActivity: {
		subject: "о повседневной активности и образе жизни",
		topics:  "уровня повседневной активности, работы, хобби, сна, стресса, пищевых привычек, аллергий и предпочтений в еде",
	},
}

// Questions asks the model for 5-7 numbered interview questions for phase.
// An unknown phase is treated as the training phase.
func Questions(p *models.AthleteProfile, phase models.Phase) string {
	t, ok := phaseTopics[phase]
	if !ok {
		t = phaseTopics[models.PhaseTraining]
	}
	var b strings.Builder
	writeProfile(&b, p)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Сгенерируй 5-7 конкретных вопросов %s.\n", t.subject)
	fmt.Fprintf(&b, "Вопросы должны касаться: %s.\n", t.topics)
	b.WriteString("Верни только вопросы, пронумерованные через точку (1. 2. 3.), каждый с новой строки, без дополнительного текста.\n")
	return b.String()
}

// Plan asks the model for a structured plan covering days days (7 when
// days <= 0), using the profile and both interview phases.
func Plan(p *models.AthleteProfile, s *models.InterviewSession, days int) string {
	if days <= 0 {
		days = models.DefaultPlanDays
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Создай детальный %d-дневный план питания для спортсмена.\n\n", days)
	writeProfile(&b, p)
	b.WriteString(fieldLine("Дата соревнований", competitionDate(p)))

	b.WriteString("\nТренировочные данные:\n")
	writeAnswers(&b, s, models.PhaseTraining)
	b.WriteString("\nДанные об активности:\n")
	writeAnswers(&b, s, models.PhaseActivity)

	b.WriteString("\nТребования к плану:\n")
	fmt.Fprintf(&b, "1. %d дней питания с завтраком (breakfast), обедом (lunch), ужином (dinner) и 2 перекусами (snack)\n", days)
	b.WriteString("2. Указать точные порции в граммах/мл\n")
	b.WriteString("3. Рассчитать белки, жиры, углеводы и калории для каждого продукта и каждого приема пищи\n")
	b.WriteString("4. Учесть время тренировок и соревнований\n")
	b.WriteString("5. Предложить варианты замены для аллергиков\n")
	b.WriteString("6. Учесть пищевые предпочтения из интервью\n")
	b.WriteString("7. Добавить рекомендации по гидратации\n")
	b.WriteString("8. Указать тайминг питания вокруг тренировок\n")

	b.WriteString("\nВерни ответ строго в формате JSON без пояснений и без markdown, со структурой:\n")
	b.WriteString(planSchema(days))
	b.WriteString("\nВсе числовые поля должны быть неотрицательными числами. ")
	fmt.Fprintf(&b, "Массив days должен содержать ровно %d элементов с day_number от 1 до %d.\n", days, days)
	return b.String()
}

func planSchema(days int) string {
	return `{
  "plan_type": "` + strconv.Itoa(days) + `_day_meal_plan",
  "total_calories": number,
  "protein_grams": number,
  "carbs_grams": number,
  "fat_grams": number,
  "days": [
    {
      "day_number": 1,
      "date": "YYYY-MM-DD",
      "meals": [
        {
          "meal_type": "breakfast|lunch|dinner|snack",
          "time": "HH:MM",
          "food_items": [
            {"name": "Название продукта", "portion": "100г", "calories": number, "protein": number, "carbs": number, "fat": number}
          ],
          "total_calories": number,
          "total_protein": number,
          "total_carbs": number,
          "total_fat": number,
          "recommendations": "Текст рекомендаций"
        }
      ],
      "training_schedule": "Описание тренировки",
      "hydration": "Рекомендации по воде",
      "general_recommendations": "Рекомендации на день"
    }
  ],
  "general_recommendations": "Общие рекомендации",
  "shopping_list": ["продукт"]
}
`
}

func writeProfile(b *strings.Builder, p *models.AthleteProfile) {
	if p == nil {
		p = &models.AthleteProfile{}
	}
	name := p.FirstName
	if strings.TrimSpace(name) == "" {
		name = "Спортсмен"
	}
	b.WriteString("Основная информация:\n")
	b.WriteString(fieldLine("Имя", name))
	b.WriteString(fieldLine("Пол", genderLabel(p.Gender)))
	b.WriteString(fieldLine("Возраст", unit(intOrEmpty(p.Age), "лет")))
	b.WriteString(fieldLine("Вес", unit(floatOrEmpty(p.Weight), "кг")))
	b.WriteString(fieldLine("Рост", unit(floatOrEmpty(p.Height), "см")))
	b.WriteString(fieldLine("Вид спорта", p.SportType))
	b.WriteString(fieldLine("Цель", p.Goal))
}

func writeAnswers(b *strings.Builder, s *models.InterviewSession, phase models.Phase) {
	if s == nil || len(s.Phase(phase).Answers) == 0 {
		b.WriteString("- " + NotSpecified + "\n")
		return
	}
	for _, a := range s.Phase(phase).Answers {
		fmt.Fprintf(b, "- %s (%s): %s\n", a.Key, strings.TrimSpace(a.Question), orPlaceholder(a.Text))
	}
}

func fieldLine(label, value string) string {
	return fmt.Sprintf("- %s: %s\n", label, orPlaceholder(value))
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

func unit(v, suffix string) string {
	if v == "" {
		return ""
	}
	return v + " " + suffix
}

func intOrEmpty(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func floatOrEmpty(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func genderLabel(g models.Gender) string {
	switch g {
	case models.GenderMale:
		return "мужской"
	case models.GenderFemale:
		return "женский"
	}
	return ""
}

func competitionDate(p *models.AthleteProfile) string {
	if p == nil || p.CompetitionDate == nil {
		return "не планируются"
	}
	return p.CompetitionDate.Format(models.CompetitionDateLayout)
}
