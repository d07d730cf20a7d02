// Package store provides storage backends for DietCoach.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backends with embedded migrations.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// Store is the persistence contract of the conversation core.
type Store interface {
	// GetProfile returns the profile for userID, or nil when none exists.
	GetProfile(userID int64) (*models.AthleteProfile, error)
	// CreateProfile inserts or replaces the profile keyed by UserID and returns its id.
	CreateProfile(p models.AthleteProfile) (int64, error)

	// SavePlan persists plan for userID and returns its id.
	SavePlan(userID int64, plan models.MealPlan) (int64, error)
	// ListPlans returns up to limit plans of userID, most recent first.
	ListPlans(userID int64, limit int) ([]models.PlanSummary, error)
	// GetPlan returns the plan with id, or nil when none exists.
	GetPlan(id int64) (*models.StoredPlan, error)

	// SaveActivity records an audit entry.
	SaveActivity(a models.Activity) error

	SessionStore

	UpdateJournal
	ReplyQueue

	Close() error
}

// planMeta extracts the listing columns stored next to the plan payload.
func planMeta(plan models.MealPlan) (planType string, days int) {
	planType = string(plan.PlanType)
	if planType == "" {
		planType = fmt.Sprintf("%d_day_meal_plan", len(plan.Days))
	}
	return planType, len(plan.Days)
}

// InMemoryStore is a simple in-memory Store.
type InMemoryStore struct {
	mu         sync.RWMutex
	profiles   map[int64]models.AthleteProfile
	plans      []models.StoredPlan
	activities []models.Activity
	sessions   map[sessionKey]models.Session
	journal    map[int]*JournalEntry
	replies    map[string]*QueuedReply
	nextID     int64
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles:   make(map[int64]models.AthleteProfile),
		sessions:   make(map[sessionKey]models.Session),
		journal:    make(map[int]*JournalEntry),
		replies:    make(map[string]*QueuedReply),
	}
}

var _ Store = (*InMemoryStore)(nil)

func (s *InMemoryStore) GetProfile(userID int64) (*models.AthleteProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) CreateProfile(p models.AthleteProfile) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.profiles[p.UserID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		p.ID = s.nextID
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.profiles[p.UserID] = p
	return p.ID, nil
}

func (s *InMemoryStore) SavePlan(userID int64, plan models.MealPlan) (int64, error) {
	// The stored copy must not alias the caller's slices.
	data, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to encode plan: %w", err)
	}
	var stored models.MealPlan
	if err := json.Unmarshal(data, &stored); err != nil {
		return 0, fmt.Errorf("failed to decode plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	planType, days := planMeta(stored)
	s.plans = append(s.plans, models.StoredPlan{
		ID:           s.nextID,
		UserID:       userID,
		PlanType:     planType,
		DurationDays: days,
		CreatedAt:    time.Now(),
		Plan:         stored,
	})
	slog.Debug("InMemoryStore SavePlan succeeded", "userID", userID, "planID", s.nextID)
	return s.nextID, nil
}

func (s *InMemoryStore) ListPlans(userID int64, limit int) ([]models.PlanSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PlanSummary
	for _, p := range s.plans {
		if p.UserID != userID {
			continue
		}
		out = append(out, models.PlanSummary{
			ID:            p.ID,
			PlanType:      p.PlanType,
			DurationDays:  p.DurationDays,
			TotalCalories: p.Plan.TotalCalories.Float(),
			CreatedAt:     p.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) GetPlan(id int64) (*models.StoredPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) SaveActivity(a models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.activities = append(s.activities, a)
	return nil
}

// Activities returns the recorded activities of userID (for tests).
func (s *InMemoryStore) Activities(userID int64) []models.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Activity
	for _, a := range s.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

type sessionKey struct {
	userID int64
	flow   models.FlowType
}

func (s *InMemoryStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{sess.UserID, sess.Flow}
	if prev, ok := s.sessions[key]; ok {
		sess.CreatedAt = prev.CreatedAt
	}
	s.sessions[key] = sess.Clone()
	return nil
}

func (s *InMemoryStore) GetSession(userID int64, flow models.FlowType) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionKey{userID, flow}]
	if !ok {
		return nil, nil
	}
	c := sess.Clone()
	return &c, nil
}

func (s *InMemoryStore) DeleteSession(userID int64, flow models.FlowType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey{userID, flow})
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
