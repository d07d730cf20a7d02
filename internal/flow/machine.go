package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/DietCoach/internal/interview"
	"github.com/BTreeMap/DietCoach/internal/models"
	"github.com/BTreeMap/DietCoach/internal/render"
)

// SavedPlansLimit is how many plans the saved plans list shows.
const SavedPlansLimit = 5

// Storage is the persistence the machine needs; store.Store satisfies it.
type Storage interface {
	GetProfile(userID int64) (*models.AthleteProfile, error)
	CreateProfile(p models.AthleteProfile) (int64, error)
	SavePlan(userID int64, plan models.MealPlan) (int64, error)
	ListPlans(userID int64, limit int) ([]models.PlanSummary, error)
	GetPlan(id int64) (*models.StoredPlan, error)
	SaveActivity(a models.Activity) error
}

// Interviewer is the interview engine as seen by the machine.
type Interviewer interface {
	StartTraining(ctx context.Context, userID int64, profile *models.AthleteProfile) (string, error)
	StartActivity(ctx context.Context, userID int64, profile *models.AthleteProfile) (string, error)
	RecordAnswer(userID int64, phase models.Phase, text string) (interview.NextStep, error)
	Abandon(userID int64)
	Session(userID int64) (models.InterviewSession, bool)
	GeneratePlan(ctx context.Context, userID int64, profile *models.AthleteProfile, days int) (*models.MealPlan, error)
}

var _ Interviewer = (*interview.Engine)(nil)

// Machine is the conversation state machine. It keeps no per-user state of
// its own: the current state lives in the StateManager and interview
// sessions live in the Interviewer.
type Machine struct {
	states   StateManager
	store    Storage
	engine   Interviewer
	notifier Sender
	planDays int
	now      func() time.Time
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithPlanDays sets the plan length requested from the model.
func WithPlanDays(days int) MachineOption {
	return func(m *Machine) {
		if days > 0 {
			m.planDays = days
		}
	}
}

// WithNotifier sets the sender used for progress messages sent ahead of
// slow model calls.
func WithNotifier(s Sender) MachineOption {
	return func(m *Machine) {
		m.notifier = s
	}
}

// WithClock overrides the clock used for date validation.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) {
		m.now = now
	}
}

// NewMachine creates a Machine.
func NewMachine(states StateManager, st Storage, engine Interviewer, opts ...MachineOption) *Machine {
	m := &Machine{
		states:   states,
		store:    st,
		engine:   engine,
		planDays: models.DefaultPlanDays,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle processes one inbound event of userID and returns the replies to
// send, in order. Collaborator failures are converted into user-facing
// replies; the returned error is informational and only set for failures
// worth logging by the caller.
func (m *Machine) Handle(ctx context.Context, userID int64, ev Event) ([]Reply, error) {
	switch e := ev.(type) {
	case CommandEvent:
		if e.Command == CommandCancel {
			return m.guard(ctx, userID, m.cancel)
		}
		return m.guard(ctx, userID, m.start)
	case CallbackEvent:
		if e.Callback.Kind == CallbackCancel {
			return m.guard(ctx, userID, m.cancel)
		}
	}

	state, err := m.states.CurrentState(ctx, userID)
	if err != nil {
		return m.fail(ctx, userID, fmt.Errorf("%w: load state: %v", models.ErrTransport, err))
	}

	var replies []Reply
	switch state {
	case models.StateNone:
		replies, err = m.start(ctx, userID)
	case models.StateAwaitingRestart:
		replies = []Reply{plain(msgAwaitRestart)}
	case models.StateCollectingParameters:
		replies, err = m.handleCollecting(ctx, userID, ev)
	case models.StateTrainingInterview:
		replies, err = m.handleInterview(ctx, userID, models.PhaseTraining, ev)
	case models.StateActivityInterview:
		replies, err = m.handleInterview(ctx, userID, models.PhaseActivity, ev)
	case models.StateMainMenu, models.StateViewingPlan, models.StateViewingSavedPlans:
		replies, err = m.handleMenu(ctx, userID, state, ev)
	default:
		slog.Warn("Machine.Handle: unknown state, restarting", "userID", userID, "state", state)
		replies, err = m.start(ctx, userID)
	}
	if err != nil {
		return m.fail(ctx, userID, err)
	}
	return replies, nil
}

func (m *Machine) guard(ctx context.Context, userID int64, fn func(context.Context, int64) ([]Reply, error)) ([]Reply, error) {
	replies, err := fn(ctx, userID)
	if err != nil {
		return m.fail(ctx, userID, err)
	}
	return replies, nil
}

// fail converts err into a reply. A StateError forces the conversation back
// to the initial state.
func (m *Machine) fail(ctx context.Context, userID int64, err error) ([]Reply, error) {
	if errors.Is(err, models.ErrState) {
		slog.Warn("Machine.Handle: session lost", "userID", userID, "error", err)
		m.engine.Abandon(userID)
		if rerr := m.states.Reset(ctx, userID); rerr != nil {
			slog.Error("Machine.Handle: reset after lost session failed", "userID", userID, "error", rerr)
		}
		return []Reply{plain(msgSessionLost)}, nil
	}
	slog.Error("Machine.Handle: request failed", "userID", userID, "error", err)
	return []Reply{plain(msgUnavailable)}, err
}

func (m *Machine) setState(ctx context.Context, userID int64, state models.StateType) error {
	return m.states.Transition(ctx, userID, state)
}

func (m *Machine) setData(ctx context.Context, userID int64, key models.DataKey, value string) error {
	return m.states.SetValue(ctx, userID, key, value)
}

func (m *Machine) notify(ctx context.Context, userID int64, r Reply) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, userID, r); err != nil {
		slog.Warn("Machine.notify: progress message not sent", "userID", userID, "error", err)
	}
}

// start handles /start and first contact.
func (m *Machine) start(ctx context.Context, userID int64) ([]Reply, error) {
	m.engine.Abandon(userID)
	if err := m.states.Reset(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: reset state: %v", models.ErrTransport, err)
	}

	profile, err := m.store.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %v", models.ErrTransport, err)
	}
	if profile != nil {
		if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
			return nil, err
		}
		slog.Info("Machine.start: returning user", "userID", userID)
		return []Reply{plain(msgWelcomeBack), mainMenu()}, nil
	}

	if err := m.beginCollecting(ctx, userID, models.AthleteProfile{UserID: userID}); err != nil {
		return nil, err
	}
	slog.Info("Machine.start: new user, collecting parameters", "userID", userID)
	return []Reply{plain(msgWelcome), plain(profileFields[0].prompt)}, nil
}

// cancel clears every piece of transient state of userID.
func (m *Machine) cancel(ctx context.Context, userID int64) ([]Reply, error) {
	m.engine.Abandon(userID)
	if err := m.states.Reset(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: reset state: %v", models.ErrTransport, err)
	}
	if err := m.setState(ctx, userID, models.StateAwaitingRestart); err != nil {
		return nil, err
	}
	slog.Info("Machine.cancel: conversation cancelled", "userID", userID)
	return []Reply{plain(msgCancelled)}, nil
}

// requireProfile loads the stored profile. A missing profile means the
// conversation no longer matches the store.
func (m *Machine) requireProfile(userID int64) (*models.AthleteProfile, error) {
	profile, err := m.store.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %v", models.ErrTransport, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: user %d has no profile", models.ErrState, userID)
	}
	return profile, nil
}

// Parameter collection.

func (m *Machine) beginCollecting(ctx context.Context, userID int64, draft models.AthleteProfile) error {
	if err := m.saveDraft(ctx, userID, draft, 0); err != nil {
		return err
	}
	return m.setState(ctx, userID, models.StateCollectingParameters)
}

func (m *Machine) saveDraft(ctx context.Context, userID int64, draft models.AthleteProfile, cursor int) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode profile draft: %w", err)
	}
	if err := m.setData(ctx, userID, models.DataKeyProfileDraft, string(data)); err != nil {
		return err
	}
	return m.setData(ctx, userID, models.DataKeyFieldCursor, strconv.Itoa(cursor))
}

func (m *Machine) loadDraft(ctx context.Context, userID int64) (models.AthleteProfile, int, error) {
	var draft models.AthleteProfile

	raw, err := m.states.Value(ctx, userID, models.DataKeyProfileDraft)
	if err != nil {
		return draft, 0, fmt.Errorf("%w: load profile draft: %v", models.ErrTransport, err)
	}
	if raw == "" {
		return draft, 0, fmt.Errorf("%w: no profile draft for user %d", models.ErrState, userID)
	}
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return draft, 0, fmt.Errorf("%w: corrupt profile draft: %v", models.ErrState, err)
	}

	rawCursor, err := m.states.Value(ctx, userID, models.DataKeyFieldCursor)
	if err != nil {
		return draft, 0, fmt.Errorf("%w: load field cursor: %v", models.ErrTransport, err)
	}
	cursor, err := strconv.Atoi(rawCursor)
	if err != nil || cursor < 0 || cursor >= len(profileFields) {
		return draft, 0, fmt.Errorf("%w: bad field cursor %q", models.ErrState, rawCursor)
	}
	return draft, cursor, nil
}

func (m *Machine) handleCollecting(ctx context.Context, userID int64, ev Event) ([]Reply, error) {
	if e, ok := ev.(TextEvent); ok {
		return m.collectField(ctx, userID, e.Text)
	}

	if e, ok := ev.(CallbackEvent); ok && e.Callback.Kind == CallbackBackToMenu {
		profile, err := m.store.GetProfile(userID)
		if err != nil {
			return nil, fmt.Errorf("%w: get profile: %v", models.ErrTransport, err)
		}
		if profile != nil {
			return m.backToMenu(ctx, userID)
		}
	}

	_, cursor, err := m.loadDraft(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []Reply{plain(profileFields[cursor].prompt)}, nil
}

func (m *Machine) collectField(ctx context.Context, userID int64, text string) ([]Reply, error) {
	draft, cursor, err := m.loadDraft(ctx, userID)
	if err != nil {
		return nil, err
	}

	step := profileFields[cursor]
	if err := step.apply(&draft, text, m.now()); err != nil {
		if !errors.Is(err, models.ErrValidation) {
			return nil, err
		}
		slog.Debug("Machine.collectField: invalid input", "userID", userID, "field", step.name, "error", err)
		return []Reply{plain(step.invalid + "\n\n" + step.prompt)}, nil
	}

	cursor++
	if cursor < len(profileFields) {
		if err := m.saveDraft(ctx, userID, draft, cursor); err != nil {
			return nil, err
		}
		return []Reply{plain(profileFields[cursor].prompt)}, nil
	}
	return m.finishProfile(ctx, userID, draft)
}

func (m *Machine) finishProfile(ctx context.Context, userID int64, draft models.AthleteProfile) ([]Reply, error) {
	draft.UserID = userID
	if u, ok := UserFromContext(ctx); ok {
		draft.Username = u.Username
		draft.FirstName = u.FirstName
		draft.LastName = u.LastName
	}
	if err := draft.Validate(m.now()); err != nil {
		return nil, err
	}

	id, err := m.store.CreateProfile(draft)
	if err != nil {
		// The cursor stays on the last field so the answer can be resent.
		slog.Error("Machine.finishProfile: profile not saved", "userID", userID, "error", err)
		return []Reply{plain(msgProfileFailed)}, nil
	}
	slog.Info("Machine.finishProfile: profile saved", "userID", userID, "profileID", id)

	if err := m.store.SaveActivity(models.Activity{
		UserID:  userID,
		Kind:    models.ActivityProfileCreated,
		Payload: map[string]interface{}{"profile_id": id, "sport_type": draft.SportType, "goal": draft.Goal},
	}); err != nil {
		slog.Warn("Machine.finishProfile: activity not recorded", "userID", userID, "error", err)
	}

	if err := m.setData(ctx, userID, models.DataKeyProfileDraft, ""); err != nil {
		return nil, err
	}
	if err := m.setData(ctx, userID, models.DataKeyFieldCursor, ""); err != nil {
		return nil, err
	}
	if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
		return nil, err
	}
	return []Reply{plain(msgProfileSaved + "\n\n" + render.Profile(&draft)), mainMenu()}, nil
}

// Interview.

func (m *Machine) askReply(userID int64, phase models.Phase, question string) Reply {
	text := "❓ " + render.Escape(question)
	if s, ok := m.engine.Session(userID); ok {
		ps := s.Phase(phase)
		text = fmt.Sprintf("❓ <b>Вопрос %d из %d</b>\n\n%s", ps.Cursor+1, len(ps.Questions), render.Escape(question))
	}
	return Reply{Text: text, Buttons: [][]Button{row(button("❌ Отменить", Callback{Kind: CallbackCancel}))}}
}

func (m *Machine) handleInterview(ctx context.Context, userID int64, phase models.Phase, ev Event) ([]Reply, error) {
	e, ok := ev.(TextEvent)
	if ok && strings.TrimSpace(e.Text) != "" {
		return m.answer(ctx, userID, phase, e.Text)
	}
	if cb, ok := ev.(CallbackEvent); ok && cb.Callback.Kind == CallbackBackToMenu {
		m.engine.Abandon(userID)
		return m.backToMenu(ctx, userID)
	}

	s, ok := m.engine.Session(userID)
	if !ok {
		return nil, fmt.Errorf("%w: no interview in progress for user %d", models.ErrState, userID)
	}
	q, ok := s.Phase(phase).Current()
	if !ok {
		return nil, fmt.Errorf("%w: %s phase of user %d has no pending question", models.ErrState, phase, userID)
	}
	return []Reply{plain(msgFinishFirst), m.askReply(userID, phase, q)}, nil
}

func (m *Machine) answer(ctx context.Context, userID int64, phase models.Phase, text string) ([]Reply, error) {
	step, err := m.engine.RecordAnswer(userID, phase, strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}

	switch step.Kind {
	case interview.StepAsk:
		return []Reply{m.askReply(userID, phase, step.Question)}, nil
	case interview.StepPhaseComplete:
		if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
			return nil, err
		}
		return []Reply{{
			Text: msgTrainingDone,
			Buttons: [][]Button{
				row(button("▶️ Продолжить", Callback{Kind: CallbackContinueActivity})),
				backToMenuRow,
			},
		}}, nil
	case interview.StepInterviewComplete:
		return m.generatePlan(ctx, userID)
	}
	return nil, fmt.Errorf("unexpected interview step %s", step.Kind)
}

func (m *Machine) startPhase(ctx context.Context, userID int64, phase models.Phase) ([]Reply, error) {
	profile, err := m.requireProfile(userID)
	if err != nil {
		return nil, err
	}

	m.notify(ctx, userID, plain(msgQuestionsLoading))
	var q string
	next := models.StateTrainingInterview
	if phase == models.PhaseActivity {
		next = models.StateActivityInterview
		q, err = m.engine.StartActivity(ctx, userID, profile)
	} else {
		q, err = m.engine.StartTraining(ctx, userID, profile)
	}
	if errors.Is(err, interview.ErrNoQuestions) {
		if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
			return nil, err
		}
		return []Reply{plain(msgNoQuestions), mainMenu()}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := m.setState(ctx, userID, next); err != nil {
		return nil, err
	}
	return []Reply{m.askReply(userID, phase, q)}, nil
}

// generatePlan turns the completed interview into a persisted plan and shows
// its first day. On failure the interview is kept so the user can retry.
func (m *Machine) generatePlan(ctx context.Context, userID int64) ([]Reply, error) {
	profile, err := m.requireProfile(userID)
	if err != nil {
		return nil, err
	}

	m.notify(ctx, userID, plain(msgPlanLoading))
	plan, err := m.engine.GeneratePlan(ctx, userID, profile, m.planDays)
	if err != nil {
		if errors.Is(err, models.ErrState) {
			return nil, err
		}
		slog.Error("Machine.generatePlan: plan unavailable", "userID", userID, "error", err)
		return m.planFailed(ctx, userID)
	}

	planID, err := m.store.SavePlan(userID, *plan)
	if err != nil {
		slog.Error("Machine.generatePlan: plan not saved", "userID", userID, "error", err)
		return m.planFailed(ctx, userID)
	}

	payload := map[string]interface{}{"plan_id": planID}
	if s, ok := m.engine.Session(userID); ok {
		payload["training_answers"] = s.Training.AnswerMap()
		payload["activity_answers"] = s.Activity.AnswerMap()
	}
	if err := m.store.SaveActivity(models.Activity{
		UserID:  userID,
		Kind:    models.ActivityInterviewCompleted,
		Payload: payload,
	}); err != nil {
		slog.Warn("Machine.generatePlan: activity not recorded", "userID", userID, "error", err)
	}
	m.engine.Abandon(userID)

	slog.Info("Machine.generatePlan: plan saved", "userID", userID, "planID", planID, "days", len(plan.Days))
	replies, err := m.showPlan(ctx, userID, planID, plan, 1)
	if err != nil {
		return nil, err
	}
	return append([]Reply{plain(msgPlanReady)}, replies...), nil
}

func (m *Machine) planFailed(ctx context.Context, userID int64) ([]Reply, error) {
	if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
		return nil, err
	}
	return []Reply{{
		Text: msgPlanFailed,
		Buttons: [][]Button{
			row(button("🔄 Повторить", Callback{Kind: CallbackRetryPlan})),
			backToMenuRow,
		},
	}}, nil
}

// Menu and plan viewing.

func (m *Machine) backToMenu(ctx context.Context, userID int64) ([]Reply, error) {
	for _, key := range []models.DataKey{models.DataKeyProfileDraft, models.DataKeyFieldCursor, models.DataKeyCurrentPlan, models.DataKeyCurrentDay} {
		if err := m.setData(ctx, userID, key, ""); err != nil {
			return nil, err
		}
	}
	if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
		return nil, err
	}
	return []Reply{mainMenu()}, nil
}

func (m *Machine) handleMenu(ctx context.Context, userID int64, state models.StateType, ev Event) ([]Reply, error) {
	cb, ok := ev.(CallbackEvent)
	if !ok {
		if state == models.StateMainMenu {
			return []Reply{mainMenu()}, nil
		}
		return []Reply{{Text: msgUseButtons, Buttons: [][]Button{backToMenuRow}}}, nil
	}
	return m.dispatchMenu(ctx, userID, cb.Callback)
}

func (m *Machine) dispatchMenu(ctx context.Context, userID int64, cb Callback) ([]Reply, error) {
	switch cb.Kind {
	case CallbackGeneratePlan:
		if _, err := m.requireProfile(userID); err != nil {
			return nil, err
		}
		if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
			return nil, err
		}
		return []Reply{{
			Text: msgGeneratePlan,
			Buttons: [][]Button{
				row(button("▶️ Начать опрос", Callback{Kind: CallbackStartInterview})),
				backToMenuRow,
			},
		}}, nil

	case CallbackStartInterview:
		return m.startPhase(ctx, userID, models.PhaseTraining)

	case CallbackContinueActivity:
		return m.startPhase(ctx, userID, models.PhaseActivity)

	case CallbackRetryPlan:
		return m.generatePlan(ctx, userID)

	case CallbackViewSavedPlans:
		plans, err := m.store.ListPlans(userID, SavedPlansLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: list plans: %v", models.ErrTransport, err)
		}
		if len(plans) == 0 {
			if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
				return nil, err
			}
			return []Reply{{Text: msgNoPlans, Buttons: mainMenuKeyboard}}, nil
		}
		if err := m.setState(ctx, userID, models.StateViewingSavedPlans); err != nil {
			return nil, err
		}
		return []Reply{{Text: msgSavedPlans, Buttons: savedPlansKeyboard(plans)}}, nil

	case CallbackViewPlan, CallbackDay:
		stored, err := m.ownedPlan(userID, cb.PlanID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return []Reply{{Text: msgPlanNotFound, Buttons: [][]Button{backToMenuRow}}}, nil
		}
		day := 1
		if cb.Kind == CallbackDay {
			day = cb.Day
		}
		return m.showPlan(ctx, userID, stored.ID, &stored.Plan, day)

	case CallbackDayInfo:
		return nil, nil

	case CallbackStats:
		stored, err := m.ownedPlan(userID, cb.PlanID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return []Reply{{Text: msgPlanNotFound, Buttons: [][]Button{backToMenuRow}}}, nil
		}
		day := m.currentDay(ctx, userID)
		return []Reply{{
			Text: render.Stats(&stored.Plan),
			Buttons: [][]Button{
				row(button("⬅️ Назад к плану", Callback{Kind: CallbackDay, PlanID: stored.ID, Day: day})),
				backToMenuRow,
			},
		}}, nil

	case CallbackSavePlan:
		return []Reply{plain(msgPlanAlreadySaved)}, nil

	case CallbackProfile:
		profile, err := m.requireProfile(userID)
		if err != nil {
			return nil, err
		}
		return []Reply{{
			Text: render.Profile(profile),
			Buttons: [][]Button{
				row(button("✏️ Изменить профиль", Callback{Kind: CallbackUpdateProfile})),
				backToMenuRow,
			},
		}}, nil

	case CallbackUpdateProfile:
		profile, err := m.requireProfile(userID)
		if err != nil {
			return nil, err
		}
		if err := m.beginCollecting(ctx, userID, *profile); err != nil {
			return nil, err
		}
		return []Reply{plain(msgUpdateProfile), plain(profileFields[0].prompt)}, nil

	case CallbackBackToMenu:
		return m.backToMenu(ctx, userID)

	case CallbackCancel:
		return m.cancel(ctx, userID)

	case CallbackUnknown:
		slog.Debug("Machine.dispatchMenu: unknown callback", "userID", userID)
		return []Reply{mainMenu()}, nil
	}
	return []Reply{mainMenu()}, nil
}

// ownedPlan returns plan id if it belongs to userID, nil otherwise.
func (m *Machine) ownedPlan(userID, id int64) (*models.StoredPlan, error) {
	stored, err := m.store.GetPlan(id)
	if err != nil {
		return nil, fmt.Errorf("%w: get plan: %v", models.ErrTransport, err)
	}
	if stored == nil || stored.UserID != userID {
		return nil, nil
	}
	return stored, nil
}

func (m *Machine) currentDay(ctx context.Context, userID int64) int {
	raw, err := m.states.Value(ctx, userID, models.DataKeyCurrentDay)
	if err != nil {
		return 1
	}
	day, err := strconv.Atoi(raw)
	if err != nil || day < 1 {
		return 1
	}
	return day
}

// showPlan renders day of plan and moves the user into ViewingPlan.
func (m *Machine) showPlan(ctx context.Context, userID, planID int64, plan *models.MealPlan, day int) ([]Reply, error) {
	text, ok := render.Day(plan, day)
	if !ok {
		slog.Warn("Machine.showPlan: day not renderable", "userID", userID, "planID", planID, "day", day)
		if err := m.setState(ctx, userID, models.StateMainMenu); err != nil {
			return nil, err
		}
		return []Reply{{Text: text, Buttons: [][]Button{backToMenuRow}}}, nil
	}

	if err := m.setData(ctx, userID, models.DataKeyCurrentPlan, strconv.FormatInt(planID, 10)); err != nil {
		return nil, err
	}
	if err := m.setData(ctx, userID, models.DataKeyCurrentDay, strconv.Itoa(day)); err != nil {
		return nil, err
	}
	if err := m.setState(ctx, userID, models.StateViewingPlan); err != nil {
		return nil, err
	}
	return []Reply{{Text: text, Buttons: planKeyboard(planID, day, len(plan.Days))}}, nil
}
