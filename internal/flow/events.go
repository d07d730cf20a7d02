package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Event is an inbound chat event. The set is closed: CommandEvent,
// TextEvent and CallbackEvent.
type Event interface {
	isEvent()
}

// Command is a slash command understood by the bot.
type Command string

const (
	CommandStart  Command = "start"
	CommandCancel Command = "cancel"
)

// ParseCommand recognises "/start" and "/cancel", with or without a
// "@botname" suffix.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	switch Command(strings.ToLower(name)) {
	case CommandStart:
		return CommandStart, true
	case CommandCancel:
		return CommandCancel, true
	}
	return "", false
}

type CommandEvent struct {
	Command Command
}

type TextEvent struct {
	Text string
}

type CallbackEvent struct {
	Callback Callback
}

func (CommandEvent) isEvent()  {}
func (TextEvent) isEvent()     {}
func (CallbackEvent) isEvent() {}

// CallbackKind enumerates the button actions.
type CallbackKind int

const (
	CallbackUnknown CallbackKind = iota
	CallbackGeneratePlan
	CallbackStartInterview
	CallbackContinueActivity
	CallbackViewSavedPlans
	CallbackViewPlan
	CallbackDay
	CallbackDayInfo
	CallbackStats
	CallbackSavePlan
	CallbackRetryPlan
	CallbackProfile
	CallbackUpdateProfile
	CallbackBackToMenu
	CallbackCancel
)

var callbackNames = map[CallbackKind]string{
	CallbackGeneratePlan:     "generate_plan",
	CallbackStartInterview:   "start_interview",
	CallbackContinueActivity: "continue_activity",
	CallbackViewSavedPlans:   "view_saved_plans",
	CallbackViewPlan:         "view_plan",
	CallbackDay:              "day",
	CallbackDayInfo:          "day_info",
	CallbackStats:            "stats",
	CallbackSavePlan:         "save_plan",
	CallbackRetryPlan:        "retry_plan",
	CallbackProfile:          "profile",
	CallbackUpdateProfile:    "update_profile",
	CallbackBackToMenu:       "back_to_menu",
	CallbackCancel:           "cancel",
}

var callbackKinds = func() map[string]CallbackKind {
	m := make(map[string]CallbackKind, len(callbackNames))
	for k, name := range callbackNames {
		m[name] = k
	}
	return m
}()

func (k CallbackKind) String() string {
	if name, ok := callbackNames[k]; ok {
		return name
	}
	return "unknown"
}

// takesPlan reports whether tokens of kind carry a plan id.
func (k CallbackKind) takesPlan() bool {
	switch k {
	case CallbackViewPlan, CallbackDay, CallbackStats, CallbackSavePlan:
		return true
	}
	return false
}

// Callback is a parsed button token.
type Callback struct {
	Kind   CallbackKind
	PlanID int64
	Day    int
}

// Token encodes c as opaque callback data: "kind", "kind:{plan}" or
// "day:{plan}:{n}".
func (c Callback) Token() string {
	name := c.Kind.String()
	switch {
	case c.Kind == CallbackDay:
		return fmt.Sprintf("%s:%d:%d", name, c.PlanID, c.Day)
	case c.Kind.takesPlan():
		return fmt.Sprintf("%s:%d", name, c.PlanID)
	}
	return name
}

// ParseCallback decodes a token produced by Callback.Token. Anything
// malformed yields CallbackUnknown.
func ParseCallback(token string) Callback {
	parts := strings.Split(strings.TrimSpace(token), ":")
	kind, ok := callbackKinds[parts[0]]
	if !ok {
		return Callback{Kind: CallbackUnknown}
	}

	want := 1
	if kind == CallbackDay {
		want = 3
	} else if kind.takesPlan() {
		want = 2
	}
	if len(parts) != want {
		return Callback{Kind: CallbackUnknown}
	}

	cb := Callback{Kind: kind}
	if want >= 2 {
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return Callback{Kind: CallbackUnknown}
		}
		cb.PlanID = id
	}
	if want == 3 {
		day, err := strconv.Atoi(parts[2])
		if err != nil {
			return Callback{Kind: CallbackUnknown}
		}
		cb.Day = day
	}
	return cb
}

// User carries the chat identity of the sender of an event.
type User struct {
	Username  string
	FirstName string
	LastName  string
}

type contextKey string

const userContextKey contextKey = "chat_user"

// WithUser attaches the sender identity to ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the sender identity stored by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey).(User)
	return u, ok
}
