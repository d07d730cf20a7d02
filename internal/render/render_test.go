package render

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
)

func num(v float64) *models.Number {
	n := models.Number(v)
	return &n
}

func weekPlan() *models.MealPlan {
	p := &models.MealPlan{PlanType: "7_day_meal_plan", TotalCalories: 2600, ProteinGrams: 150, CarbsGrams: 200, FatGrams: 70}
	for i := 1; i <= 7; i++ {
		p.Days = append(p.Days, models.Day{
			DayNumber:        i,
			Date:             models.Text(fmt.Sprintf("2026-05-%02d", i)),
			TrainingSchedule: "Интервалы 6x400м",
			Meals: []models.Meal{{
				MealType:      models.MealBreakfast,
				Time:          "07:30",
				FoodItems:     []models.FoodItem{{Name: "Овсянка <с ягодами>", Portion: "80г", Calories: num(300), Protein: num(10.5)}},
				TotalCalories: num(300),
				TotalProtein:  num(10.5),
			}},
			Hydration: "2.5 л воды",
		})
	}
	return p
}

func TestDay_RoundTrip(t *testing.T) {
	p := weekPlan()
	for d := 1; d <= 7; d++ {
		out, ok := Day(p, d)
		if !ok {
			t.Fatalf("day %d should render", d)
		}
		if !strings.Contains(out, fmt.Sprintf("День %d", d)) {
			t.Errorf("day %d header missing:\n%s", d, out)
		}
	}
	for _, d := range []int{0, 8, -1} {
		out, ok := Day(p, d)
		if ok || out != DayNotFound {
			t.Errorf("day %d: expected not-found marker, got %q", d, out)
		}
	}
}

func TestDay_ContentAndEscaping(t *testing.T) {
	out, _ := Day(weekPlan(), 1)
	for _, want := range []string{
		"<b>Завтрак</b> (07:30)",
		"• Овсянка &lt;с ягодами&gt; - 80г",
		"(300 ккал, Б: 10.5г)",
		"<b>Итого:</b> 300 ккал (Б: 10.5г)",
		"Интервалы 6x400м",
		"2.5 л воды",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDay_OptionalFieldsOmitted(t *testing.T) {
	p := &models.MealPlan{Days: []models.Day{{Meals: []models.Meal{{MealType: "snack", FoodItems: []models.FoodItem{{Name: "Яблоко"}}}}}}}
	out, ok := Day(p, 1)
	if !ok {
		t.Fatal("expected day to render")
	}
	for _, absent := range []string{"Тренировка", "Гидратация", "Итого", "ккал", "Рекомендации"} {
		if strings.Contains(out, absent) {
			t.Errorf("did not expect %q in:\n%s", absent, out)
		}
	}
	if !strings.Contains(out, "Перекус") {
		t.Errorf("expected snack title in:\n%s", out)
	}
}

func TestDay_MissingDaysKey(t *testing.T) {
	if out, ok := Day(&models.MealPlan{TotalCalories: 2000}, 1); ok || out != DayNotFound {
		t.Errorf("plan without days must be unrenderable, got %q", out)
	}
	if _, ok := Day(nil, 1); ok {
		t.Error("nil plan must be unrenderable")
	}
}

func TestMacroSplit(t *testing.T) {
	p, c, f, ok := MacroSplit(150, 200, 70)
	if !ok {
		t.Fatal("expected split")
	}
	check := func(name string, got, want float64) {
		if math.Abs(got-want) > 0.05 {
			t.Errorf("%s = %.2f, want ≈%.1f", name, got, want)
		}
	}
	// 600 + 800 + 630 kcal
	check("protein", p, 29.6)
	check("carbs", c, 39.4)
	check("fat", f, 31.0)
	if math.Abs(p+c+f-100) > 1e-9 {
		t.Errorf("shares must sum to 100, got %v", p+c+f)
	}

	p, c, f, ok = MacroSplit(0, 0, 0)
	if ok || p != 0 || c != 0 || f != 0 {
		t.Errorf("zero grams must not split: %v %v %v %v", p, c, f, ok)
	}
	if math.IsNaN(p) || math.IsNaN(c) || math.IsNaN(f) {
		t.Error("zero grams produced NaN")
	}
}

func TestStats(t *testing.T) {
	p := weekPlan()
	p.GeneralRecommendations = "Пейте воду"
	for i := 0; i < 13; i++ {
		p.ShoppingList = append(p.ShoppingList, models.Text(fmt.Sprintf("продукт %d", i+1)))
	}
	out := Stats(p)
	for _, want := range []string{"2600 ккал/день", "Белки: 29.6%", "Углеводы: 39.4%", "Жиры: 31.0%", "Пейте воду", "10. продукт 10", "... и еще 3 позиций"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "продукт 11") {
		t.Error("shopping list preview must stop at 10 items")
	}

	empty := Stats(&models.MealPlan{})
	if strings.Contains(empty, "Распределение") {
		t.Error("empty plan must not print a macro split")
	}
}

func TestProfileAndLabel(t *testing.T) {
	d := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	out := Profile(&models.AthleteProfile{SportType: "бокс", Gender: models.GenderMale, Age: 28, Weight: 75.5, Height: 180, Goal: "сушка", CompetitionDate: &d})
	for _, want := range []string{"бокс", "мужской", "28 лет", "75.5 кг", "180 см", "15.01.2027"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	label := PlanLabel(models.PlanSummary{PlanType: "7_day_meal_plan", CreatedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)})
	if label != "План от 04.03.2026 (7_day_meal_plan)" {
		t.Errorf("unexpected label %q", label)
	}
}
