package models

import "fmt"

// Phase is one of the two interview sub-sessions.
type Phase string

const (
	PhaseTraining Phase = "training"
	PhaseActivity Phase = "activity"
)

// Answer is a recorded reply to one interview question.
type Answer struct {
	Key      string `json:"key"`
	Question string `json:"question"`
	Text     string `json:"text"`
}

// PhaseSession tracks one phase of an interview. Answers are appended in
// asking order, so Answers[i] always answers Questions[i] and Cursor equals
// len(Answers).
type PhaseSession struct {
	Questions []string `json:"questions"`
	Cursor    int      `json:"cursor"`
	Answers   []Answer `json:"answers"`
}

// Started reports whether questions were seeded for this phase.
func (ps *PhaseSession) Started() bool { return len(ps.Questions) > 0 }

// Done reports whether every question has been answered.
func (ps *PhaseSession) Done() bool { return ps.Started() && ps.Cursor >= len(ps.Questions) }

// Current returns the question at the cursor.
func (ps *PhaseSession) Current() (string, bool) {
	if ps.Cursor < 0 || ps.Cursor >= len(ps.Questions) {
		return "", false
	}
	return ps.Questions[ps.Cursor], true
}

// Record stores text as the answer to the current question and advances the
// cursor. It fails once the phase is exhausted.
func (ps *PhaseSession) Record(text string) error {
	q, ok := ps.Current()
	if !ok {
		return fmt.Errorf("%w: no pending question", ErrState)
	}
	ps.Answers = append(ps.Answers, Answer{Key: AnswerKey(ps.Cursor + 1), Question: q, Text: text})
	ps.Cursor++
	return nil
}

// AnswerMap returns the answers keyed q1..qN.
func (ps *PhaseSession) AnswerMap() map[string]string {
	m := make(map[string]string, len(ps.Answers))
	for _, a := range ps.Answers {
		m[a.Key] = a.Text
	}
	return m
}

// AnswerKey returns the storage key for the n-th (1-based) answer.
func AnswerKey(n int) string { return fmt.Sprintf("q%d", n) }

// InterviewSession is the transient per-user interview state.
type InterviewSession struct {
	UserID   int64        `json:"user_id"`
	Training PhaseSession `json:"training"`
	Activity PhaseSession `json:"activity"`
}

// Phase returns the sub-session for p.
func (s *InterviewSession) Phase(p Phase) *PhaseSession {
	if p == PhaseActivity {
		return &s.Activity
	}
	return &s.Training
}

// Complete reports whether both phases are exhausted.
func (s *InterviewSession) Complete() bool {
	return s.Training.Done() && s.Activity.Done()
}

// Clone returns a deep copy safe to hand out of a lock.
func (s *InterviewSession) Clone() InterviewSession {
	c := InterviewSession{UserID: s.UserID}
	c.Training = clonePhase(s.Training)
	c.Activity = clonePhase(s.Activity)
	return c
}

func clonePhase(ps PhaseSession) PhaseSession {
	return PhaseSession{
		Questions: append([]string(nil), ps.Questions...),
		Cursor:    ps.Cursor,
		Answers:   append([]Answer(nil), ps.Answers...),
	}
}
