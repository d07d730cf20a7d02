package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultPlanDays is the nominal plan length.
const DefaultPlanDays = 7

// MealType is the slot a meal occupies in a day.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Canonical folds model spellings ("snack_1", "Afternoon snack", "Завтрак")
// onto the four known slots. Unknown values are returned unchanged.
func (m MealType) Canonical() MealType {
	s := strings.ToLower(strings.TrimSpace(string(m)))
	switch {
	case strings.Contains(s, "breakfast"), strings.Contains(s, "завтрак"):
		return MealBreakfast
	case strings.Contains(s, "lunch"), strings.Contains(s, "обед"):
		return MealLunch
	case strings.Contains(s, "dinner"), strings.Contains(s, "ужин"):
		return MealDinner
	case strings.Contains(s, "snack"), strings.Contains(s, "перекус"):
		return MealSnack
	}
	return m
}

// Number is a nutrient quantity. It decodes from JSON numbers as well as
// numeric strings such as "150" or "150 г", since model output mixes both.
// A string with no leading number ("~300", "много") decodes as zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := leadingFloat(s)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// String formats n without a trailing ".0" for whole values.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func leadingFloat(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.' || (end == 0 && s[end] == '-')) {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("no leading digits")
	}
	return strconv.ParseFloat(s[:end], 64)
}

// Text is a free-text field that may arrive as a JSON string, number or list.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '[':
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*t = Text(strings.Join(parts, "\n"))
	default:
		*t = Text(data)
	}
	return nil
}

// ItemList is a list of free-text entries. Besides a JSON list it accepts a
// single string and an object of lists keyed by category, which is flattened
// in key order.
type ItemList []Text

// UnmarshalJSON implements json.Unmarshaler.
func (l *ItemList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = nil
	case data[0] == '[':
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
	case data[0] == '{':
		items, err := flattenObject(data)
		if err != nil {
			return err
		}
		*l = items
	default:
		var t Text
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		*l = nil
		if t != "" {
			*l = ItemList{t}
		}
	}
	return nil
}

func flattenObject(data []byte) (ItemList, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out ItemList
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		var group ItemList
		if err := group.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("shopping list group: %w", err)
		}
		out = append(out, group...)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// FoodItem is a single food with its portion and nutrients.
type FoodItem struct {
	Name     Text    `json:"name"`
	Portion  Text    `json:"portion,omitempty"`
	Calories *Number `json:"calories,omitempty"`
	Protein  *Number `json:"protein,omitempty"`
	Carbs    *Number `json:"carbs,omitempty"`
	Fat      *Number `json:"fat,omitempty"`
}

// Meal is one eating occasion within a day.
type Meal struct {
	MealType        MealType   `json:"meal_type"`
	Time            Text       `json:"time,omitempty"`
	FoodItems       []FoodItem `json:"food_items,omitempty"`
	TotalCalories   *Number    `json:"total_calories,omitempty"`
	TotalProtein    *Number    `json:"total_protein,omitempty"`
	TotalCarbs      *Number    `json:"total_carbs,omitempty"`
	TotalFat        *Number    `json:"total_fat,omitempty"`
	Recommendations Text       `json:"recommendations,omitempty"`
}

// Day is one day of a plan. DayNumber is 1-based and matches its position.
type Day struct {
	DayNumber              int    `json:"day_number"`
	Date                   Text   `json:"date,omitempty"`
	Meals                  []Meal `json:"meals,omitempty"`
	TrainingSchedule       Text   `json:"training_schedule,omitempty"`
	Hydration              Text   `json:"hydration,omitempty"`
	GeneralRecommendations Text   `json:"general_recommendations,omitempty"`
}

// UnmarshalJSON accepts day_number as a number or a string; a string that is
// not numeric leaves it zero. Normalize renumbers days by position anyway.
func (d *Day) UnmarshalJSON(data []byte) error {
	type plain Day
	aux := struct {
		*plain
		DayNumber Number `json:"day_number"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.DayNumber = int(aux.DayNumber)
	return nil
}

// GeneratedFor stamps a plan with the request it answered.
type GeneratedFor struct {
	UserID      int64     `json:"user_id"`
	GeneratedAt time.Time `json:"generated_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

// MealPlan is the structured nutrition schedule produced by the model.
// Days is nil when the payload had no "days" key; such a plan is stored but
// cannot be rendered.
type MealPlan struct {
	PlanType               Text          `json:"plan_type,omitempty"`
	TotalCalories          Number        `json:"total_calories"`
	ProteinGrams           Number        `json:"protein_grams"`
	CarbsGrams             Number        `json:"carbs_grams"`
	FatGrams               Number        `json:"fat_grams"`
	Days                   []Day         `json:"days"`
	GeneralRecommendations Text          `json:"general_recommendations,omitempty"`
	ShoppingList           ItemList      `json:"shopping_list,omitempty"`
	GeneratedFor           *GeneratedFor `json:"generated_for,omitempty"`
}

// Normalize enforces the plan invariants after decoding: negative quantities
// become zero, meal types are folded onto known slots and day numbers match
// positions.
func (p *MealPlan) Normalize() {
	clamp(&p.TotalCalories)
	clamp(&p.ProteinGrams)
	clamp(&p.CarbsGrams)
	clamp(&p.FatGrams)
	for i := range p.Days {
		d := &p.Days[i]
		d.DayNumber = i + 1
		for j := range d.Meals {
			m := &d.Meals[j]
			m.MealType = m.MealType.Canonical()
			clampPtr(m.TotalCalories)
			clampPtr(m.TotalProtein)
			clampPtr(m.TotalCarbs)
			clampPtr(m.TotalFat)
			for k := range m.FoodItems {
				f := &m.FoodItems[k]
				clampPtr(f.Calories)
				clampPtr(f.Protein)
				clampPtr(f.Carbs)
				clampPtr(f.Fat)
			}
		}
	}
}

// Renderable reports whether the plan carries a days section.
func (p *MealPlan) Renderable() bool {
	return p != nil && p.Days != nil
}

func clamp(n *Number) {
	if *n < 0 {
		*n = 0
	}
}

func clampPtr(n *Number) {
	if n != nil {
		clamp(n)
	}
}

// StoredPlan is a persisted plan together with its storage metadata.
type StoredPlan struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	PlanType     string    `json:"plan_type"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
	Plan         MealPlan  `json:"plan"`
}

// PlanSummary is the listing view of a stored plan.
type PlanSummary struct {
	ID            int64     `json:"id"`
	PlanType      string    `json:"plan_type"`
	DurationDays  int       `json:"duration_days"`
	TotalCalories float64   `json:"total_calories"`
	CreatedAt     time.Time `json:"created_at"`
}
