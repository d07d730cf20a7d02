// Package render formats profiles and meal plans as Telegram HTML messages.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// DayNotFound is returned in place of a day that does not exist in the plan.
const DayNotFound = "❌ Информация о дне плана не найдена"

// Energy densities in kcal per gram.
const (
	KcalPerGramProtein = 4.0
	KcalPerGramCarbs   = 4.0
	KcalPerGramFat     = 9.0
)

// ShoppingListPreview is how many shopping list items Stats prints.
const ShoppingListPreview = 10

var mealTitles = map[models.MealType]string{
	models.MealBreakfast: "Завтрак",
	models.MealLunch:     "Обед",
	models.MealDinner:    "Ужин",
	models.MealSnack:     "Перекус",
}

// Escape makes free text safe for HTML parse mode.
func Escape(s string) string { return html.EscapeString(s) }

// Day renders day n (1-based) of plan. The second result is false, and the
// text is DayNotFound, when the plan has no days section or n is out of range.
func Day(plan *models.MealPlan, n int) (string, bool) {
	if !plan.Renderable() || n < 1 || n > len(plan.Days) {
		return DayNotFound, false
	}
	d := plan.Days[n-1]

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>День %d</b>", n)
	if d.Date != "" {
		fmt.Fprintf(&b, " • %s", Escape(string(d.Date)))
	}
	b.WriteString("\n\n")

	if d.TrainingSchedule != "" {
		fmt.Fprintf(&b, "🏋️ <b>Тренировка:</b> %s\n\n", Escape(string(d.TrainingSchedule)))
	}

	if len(d.Meals) > 0 {
		b.WriteString("🍽 <b>Питание:</b>\n")
	}
	for _, m := range d.Meals {
		writeMeal(&b, m)
	}

	if d.Hydration != "" {
		fmt.Fprintf(&b, "\n💧 <b>Гидратация:</b> %s\n", Escape(string(d.Hydration)))
	}
	if d.GeneralRecommendations != "" {
		fmt.Fprintf(&b, "\n🌟 <b>Рекомендации на день:</b> %s\n", Escape(string(d.GeneralRecommendations)))
	}
	return b.String(), true
}

func writeMeal(b *strings.Builder, m models.Meal) {
	b.WriteString("\n<b>" + mealTitle(m.MealType) + "</b>")
	if m.Time != "" {
		fmt.Fprintf(b, " (%s)", Escape(string(m.Time)))
	}
	b.WriteString("\n")

	for _, item := range m.FoodItems {
		b.WriteString("• " + Escape(string(item.Name)))
		if item.Portion != "" {
			b.WriteString(" - " + Escape(string(item.Portion)))
		}
		b.WriteString("\n")
		if n := nutrients(item.Calories, item.Protein, item.Carbs, item.Fat); n != "" {
			fmt.Fprintf(b, "  (%s)\n", n)
		}
	}

	if m.TotalCalories != nil {
		fmt.Fprintf(b, "<b>Итого:</b> %s ккал", m.TotalCalories)
		if macros := nutrients(nil, m.TotalProtein, m.TotalCarbs, m.TotalFat); macros != "" {
			fmt.Fprintf(b, " (%s)", macros)
		}
		b.WriteString("\n")
	}
	if m.Recommendations != "" {
		fmt.Fprintf(b, "💡 <b>Рекомендации:</b> %s\n", Escape(string(m.Recommendations)))
	}
}

func mealTitle(t models.MealType) string {
	if title, ok := mealTitles[t.Canonical()]; ok {
		return title
	}
	if t == "" {
		return "Прием пищи"
	}
	return Escape(string(t))
}

func nutrients(kcal, protein, carbs, fat *models.Number) string {
	var parts []string
	if kcal != nil {
		parts = append(parts, kcal.String()+" ккал")
	}
	if protein != nil {
		parts = append(parts, "Б: "+protein.String()+"г")
	}
	if carbs != nil {
		parts = append(parts, "У: "+carbs.String()+"г")
	}
	if fat != nil {
		parts = append(parts, "Ж: "+fat.String()+"г")
	}
	return strings.Join(parts, ", ")
}

// MacroSplit returns the share of energy, in percent, contributed by protein,
// carbohydrate and fat. ok is false when the grams carry no energy at all.
func MacroSplit(protein, carbs, fat float64) (proteinPct, carbsPct, fatPct float64, ok bool) {
	pk := protein * KcalPerGramProtein
	ck := carbs * KcalPerGramCarbs
	fk := fat * KcalPerGramFat
	total := pk + ck + fk
	if total <= 0 {
		return 0, 0, 0, false
	}
	return pk / total * 100, ck / total * 100, fk / total * 100, true
}

// Stats renders plan-wide targets, the macro split, general recommendations
// and the head of the shopping list.
func Stats(plan *models.MealPlan) string {
	var b strings.Builder
	b.WriteString("📊 <b>Общая статистика плана:</b>\n\n")
	if plan == nil {
		return b.String()
	}

	if plan.TotalCalories > 0 {
		fmt.Fprintf(&b, "• <b>Калории:</b> %s ккал/день\n", plan.TotalCalories)
	}
	if plan.ProteinGrams > 0 {
		fmt.Fprintf(&b, "• <b>Белки:</b> %s г/день\n", plan.ProteinGrams)
	}
	if plan.CarbsGrams > 0 {
		fmt.Fprintf(&b, "• <b>Углеводы:</b> %s г/день\n", plan.CarbsGrams)
	}
	if plan.FatGrams > 0 {
		fmt.Fprintf(&b, "• <b>Жиры:</b> %s г/день\n", plan.FatGrams)
	}

	if p, c, f, ok := MacroSplit(plan.ProteinGrams.Float(), plan.CarbsGrams.Float(), plan.FatGrams.Float()); ok {
		b.WriteString("\n<b>Распределение макросов:</b>\n")
		fmt.Fprintf(&b, "• Белки: %.1f%%\n", p)
		fmt.Fprintf(&b, "• Углеводы: %.1f%%\n", c)
		fmt.Fprintf(&b, "• Жиры: %.1f%%\n", f)
	}

	if plan.GeneralRecommendations != "" {
		fmt.Fprintf(&b, "\n🌟 <b>Общие рекомендации:</b>\n%s\n", Escape(string(plan.GeneralRecommendations)))
	}

	if len(plan.ShoppingList) > 0 {
		b.WriteString("\n🛒 <b>Список покупок:</b>\n")
		for i, item := range plan.ShoppingList {
			if i == ShoppingListPreview {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, Escape(string(item)))
		}
		if rest := len(plan.ShoppingList) - ShoppingListPreview; rest > 0 {
			fmt.Fprintf(&b, "... и еще %d позиций\n", rest)
		}
	}
	return b.String()
}

// PlanLabel is the button caption for a saved plan.
func PlanLabel(s models.PlanSummary) string {
	label := "План от " + s.CreatedAt.Format("02.01.2006")
	if s.PlanType != "" {
		label += " (" + s.PlanType + ")"
	}
	return label
}
