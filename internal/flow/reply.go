package flow

import (
	"fmt"

	"github.com/BTreeMap/DietCoach/internal/models"
	"github.com/BTreeMap/DietCoach/internal/render"
)

// Button is one inline button.
type Button struct {
	Label string
	Token string
}

// Reply is an outbound message with an optional inline keyboard, one slice
// per row.
type Reply struct {
	Text    string
	Buttons [][]Button
}

func button(label string, cb Callback) Button {
	return Button{Label: label, Token: cb.Token()}
}

func row(buttons ...Button) []Button { return buttons }

func plain(s string) Reply { return Reply{Text: s} }

var (
	backToMenuRow = row(button("🏠 Главное меню", Callback{Kind: CallbackBackToMenu}))

	mainMenuKeyboard = [][]Button{
		row(button("🍽 Создать план питания", Callback{Kind: CallbackGeneratePlan})),
		row(button("📋 Мои планы", Callback{Kind: CallbackViewSavedPlans})),
		row(button("👤 Мой профиль", Callback{Kind: CallbackProfile})),
	}
)

func mainMenu() Reply {
	return Reply{Text: msgMainMenu, Buttons: mainMenuKeyboard}
}

func planKeyboard(planID int64, day, total int) [][]Button {
	var nav []Button
	if day > 1 {
		nav = append(nav, button("◀️", Callback{Kind: CallbackDay, PlanID: planID, Day: day - 1}))
	}
	nav = append(nav, button(fmt.Sprintf("День %d/%d", day, total), Callback{Kind: CallbackDayInfo}))
	if day < total {
		nav = append(nav, button("▶️", Callback{Kind: CallbackDay, PlanID: planID, Day: day + 1}))
	}
	return [][]Button{
		nav,
		row(
			button("📊 Статистика", Callback{Kind: CallbackStats, PlanID: planID}),
			button("💾 Сохранить", Callback{Kind: CallbackSavePlan, PlanID: planID}),
		),
		backToMenuRow,
	}
}

func savedPlansKeyboard(plans []models.PlanSummary) [][]Button {
	rows := make([][]Button, 0, len(plans)+1)
	for _, p := range plans {
		rows = append(rows, row(button(render.PlanLabel(p), Callback{Kind: CallbackViewPlan, PlanID: p.ID})))
	}
	return append(rows, backToMenuRow)
}
