// Package interview runs the two-phase athlete interview (training, then
// activity) and turns a completed interview into a meal plan.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/DietCoach/internal/genai"
	"github.com/BTreeMap/DietCoach/internal/models"
	"github.com/BTreeMap/DietCoach/internal/parser"
	"github.com/BTreeMap/DietCoach/internal/prompt"
)

// ErrNoQuestions is returned when an interview phase cannot be started
// because no questions are available, not even the fallback set.
var ErrNoQuestions = errors.New("no interview questions available")

// Completer is the language model call the engine depends on.
type Completer interface {
	Complete(ctx context.Context, messages []genai.Message, maxTokens int) (string, error)
}

// StepKind tells the caller what to do after an answer was recorded.
type StepKind int

const (
	// StepAsk means Question holds the next question of the same phase.
	StepAsk StepKind = iota
	// StepPhaseComplete means the training phase is exhausted.
	StepPhaseComplete
	// StepInterviewComplete means the activity phase is exhausted and a plan
	// can be generated.
	StepInterviewComplete
)

func (k StepKind) String() string {
	switch k {
	case StepAsk:
		return "ask"
	case StepPhaseComplete:
		return "phase_complete"
	case StepInterviewComplete:
		return "interview_complete"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// NextStep is the outcome of RecordAnswer.
type NextStep struct {
	Kind     StepKind
	Question string
}

// Session sweeping defaults.
const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Engine holds the in-progress interview sessions keyed by user id.
// The session lock is never held during a model call.
type Engine struct {
	llm Completer
	now func() time.Time

	mu       sync.Mutex
	sessions map[int64]*models.InterviewSession
	touched  map[int64]time.Time
}

// NewEngine creates an Engine that asks llm for questions and plans.
func NewEngine(llm Completer) *Engine {
	return &Engine{
		llm:      llm,
		now:      time.Now,
		sessions: make(map[int64]*models.InterviewSession),
		touched:  make(map[int64]time.Time),
	}
}

// questions asks the model for phase questions and falls back to the canned
// set when the call fails or yields nothing usable.
func (e *Engine) questions(ctx context.Context, userID int64, profile *models.AthleteProfile, phase models.Phase) []string {
	raw, err := e.llm.Complete(ctx, []genai.Message{
		{Role: genai.RoleSystem, Content: prompt.QuestionsSystemPrompt},
		{Role: genai.RoleUser, Content: prompt.Questions(profile, phase)},
	}, prompt.QuestionsMaxTokens)
	if err != nil {
		slog.Warn("Engine.questions: model unavailable, using fallback questions", "userID", userID, "phase", phase, "error", err)
		return parser.FallbackQuestions(phase)
	}
	qs := parser.ParseQuestions(raw, phase)
	slog.Debug("Engine.questions: questions ready", "userID", userID, "phase", phase, "count", len(qs))
	return qs
}

// StartTraining seeds a new session for userID with training questions and
// returns the first one. Any previous session of the user is discarded.
func (e *Engine) StartTraining(ctx context.Context, userID int64, profile *models.AthleteProfile) (string, error) {
	e.Abandon(userID)

	qs := e.questions(ctx, userID, profile, models.PhaseTraining)
	if len(qs) == 0 {
		slog.Warn("Engine.StartTraining: cannot start interview", "userID", userID)
		return "", ErrNoQuestions
	}

	e.mu.Lock()
	e.sessions[userID] = &models.InterviewSession{
		UserID:   userID,
		Training: models.PhaseSession{Questions: qs},
	}
	e.touched[userID] = e.now()
	e.mu.Unlock()

	slog.Info("Engine.StartTraining: interview started", "userID", userID, "questions", len(qs))
	return qs[0], nil
}

// StartActivity fetches the activity questions once the training phase is
// complete and returns the first one.
func (e *Engine) StartActivity(ctx context.Context, userID int64, profile *models.AthleteProfile) (string, error) {
	e.mu.Lock()
	s, ok := e.sessions[userID]
	ready := ok && s.Training.Done()
	e.mu.Unlock()
	if !ready {
		return "", fmt.Errorf("%w: training phase of user %d is not complete", models.ErrState, userID)
	}

	qs := e.questions(ctx, userID, profile, models.PhaseActivity)
	if len(qs) == 0 {
		return "", ErrNoQuestions
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok = e.sessions[userID]
	if !ok {
		// Cancelled while the questions were being generated.
		return "", fmt.Errorf("%w: interview of user %d was abandoned", models.ErrState, userID)
	}
	s.Activity = models.PhaseSession{Questions: qs}
	e.touched[userID] = e.now()
	slog.Info("Engine.StartActivity: activity phase started", "userID", userID, "questions", len(qs))
	return qs[0], nil
}

// RecordAnswer stores text as the answer to the current question of phase.
func (e *Engine) RecordAnswer(userID int64, phase models.Phase, text string) (NextStep, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[userID]
	if !ok {
		return NextStep{}, fmt.Errorf("%w: no interview in progress for user %d", models.ErrState, userID)
	}
	ps := s.Phase(phase)
	if !ps.Started() {
		return NextStep{}, fmt.Errorf("%w: %s phase of user %d has not started", models.ErrState, phase, userID)
	}
	if err := ps.Record(text); err != nil {
		return NextStep{}, err
	}
	e.touched[userID] = e.now()

	if q, ok := ps.Current(); ok {
		return NextStep{Kind: StepAsk, Question: q}, nil
	}
	slog.Debug("Engine.RecordAnswer: phase exhausted", "userID", userID, "phase", phase, "answers", len(ps.Answers))
	if phase == models.PhaseTraining {
		return NextStep{Kind: StepPhaseComplete}, nil
	}
	return NextStep{Kind: StepInterviewComplete}, nil
}

// Abandon discards the session of userID. It is a no-op when none exists.
func (e *Engine) Abandon(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[userID]; ok {
		delete(e.sessions, userID)
		delete(e.touched, userID)
		slog.Debug("Engine.Abandon: session discarded", "userID", userID)
	}
}

// Sweep discards the sessions not advanced for longer than ttl and returns
// how many were dropped. A user coming back later finds the interview gone
// and is sent back to the start.
func (e *Engine) Sweep(ttl time.Duration) int {
	cutoff := e.now().Add(-ttl)
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for userID, at := range e.touched {
		if at.Before(cutoff) {
			delete(e.sessions, userID)
			delete(e.touched, userID)
			n++
		}
	}
	if n > 0 {
		slog.Info("Engine.Sweep: stale sessions discarded", "count", n, "ttl", ttl)
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (e *Engine) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sweep(ttl)
		}
	}
}

// Len returns the number of sessions held.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Session returns a copy of the session of userID.
func (e *Engine) Session(userID int64) (models.InterviewSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok {
		return models.InterviewSession{}, false
	}
	return s.Clone(), true
}

// GeneratePlan requests a days-day plan from the completed interview of
// userID. The session is kept whatever the outcome; callers Abandon it once
// the plan has been persisted, so a failed generation can be retried.
func (e *Engine) GeneratePlan(ctx context.Context, userID int64, profile *models.AthleteProfile, days int) (*models.MealPlan, error) {
	snapshot, ok := e.Session(userID)
	if !ok || !snapshot.Complete() {
		return nil, fmt.Errorf("%w: no completed interview for user %d", models.ErrState, userID)
	}

	requestID := uuid.NewString()
	slog.Info("Engine.GeneratePlan: requesting plan", "userID", userID, "days", days, "requestID", requestID)
	raw, err := e.llm.Complete(ctx, []genai.Message{
		{Role: genai.RoleSystem, Content: prompt.PlanSystemPrompt},
		{Role: genai.RoleUser, Content: prompt.Plan(profile, &snapshot, days)},
	}, 0)
	if err != nil {
		slog.Error("Engine.GeneratePlan: model call failed", "userID", userID, "requestID", requestID, "error", err)
		return nil, fmt.Errorf("%w: %v", models.ErrTransport, err)
	}

	plan, err := parser.ParsePlan(raw, userID, e.now())
	if err != nil {
		slog.Error("Engine.GeneratePlan: unusable plan", "userID", userID, "requestID", requestID, "error", err, "chars", len(raw))
		return nil, err
	}
	plan.GeneratedFor.RequestID = requestID
	slog.Info("Engine.GeneratePlan: plan ready", "userID", userID, "requestID", requestID, "days", len(plan.Days))
	return plan, nil
}
