package store

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/BTreeMap/DietCoach/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "sqlite_store_test_")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	s, err := NewSQLiteStore(WithSQLiteDSN(filepath.Join(tempDir, "nested", "test.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}

func samplePlan(days int, kcal float64) models.MealPlan {
	p := models.MealPlan{TotalCalories: models.Number(kcal), ProteinGrams: 150, CarbsGrams: 200, FatGrams: 70, Days: []models.Day{}}
	for i := 1; i <= days; i++ {
		p.Days = append(p.Days, models.Day{DayNumber: i, Meals: []models.Meal{{MealType: models.MealLunch, FoodItems: []models.FoodItem{{Name: "Рис"}}}}})
	}
	return p
}

// exerciseStore runs the behaviour every Store backend must share.
func exerciseStore(t *testing.T, s Store, userID int64) {
	t.Helper()

	p, err := s.GetProfile(userID)
	if err != nil || p != nil {
		t.Fatalf("expected no profile, got %+v, %v", p, err)
	}

	profile := models.AthleteProfile{
		UserID: userID, Username: "runner", SportType: "бег", Gender: models.GenderFemale,
		Age: 25, Weight: 58.5, Height: 168, Goal: "подготовка к марафону",
	}
	id, err := s.CreateProfile(profile)
	if err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	got, err := s.GetProfile(userID)
	if err != nil || got == nil {
		t.Fatalf("GetProfile failed: %+v, %v", got, err)
	}
	if got.ID != id || got.Weight != 58.5 || got.Gender != models.GenderFemale || got.CompetitionDate != nil || got.FirstName != "" {
		t.Errorf("unexpected stored profile: %+v", got)
	}

	comp := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	profile.Weight = 57
	profile.CompetitionDate = &comp
	id2, err := s.CreateProfile(profile)
	if err != nil {
		t.Fatalf("CreateProfile upsert failed: %v", err)
	}
	if id2 != id {
		t.Errorf("upsert must keep the profile id: %d != %d", id2, id)
	}
	got, _ = s.GetProfile(userID)
	if got.Weight != 57 || got.CompetitionDate == nil || got.CompetitionDate.Format("2006-01-02") != "2030-06-01" {
		t.Errorf("upsert not applied: %+v", got)
	}

	first, err := s.SavePlan(userID, samplePlan(7, 2400))
	if err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}
	second, err := s.SavePlan(userID, samplePlan(3, 2100))
	if err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	list, err := s.ListPlans(userID, 10)
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("expected most recent plan first, got %+v", list)
	}
	if list[0].PlanType != "3_day_meal_plan" || list[0].DurationDays != 3 || list[0].TotalCalories != 2100 {
		t.Errorf("unexpected summary: %+v", list[0])
	}
	if list, _ := s.ListPlans(userID, 1); len(list) != 1 {
		t.Errorf("limit not applied, got %d plans", len(list))
	}
	if list, _ := s.ListPlans(userID+1, 10); len(list) != 0 {
		t.Errorf("plans leaked across users: %+v", list)
	}

	stored, err := s.GetPlan(first)
	if err != nil || stored == nil {
		t.Fatalf("GetPlan failed: %+v, %v", stored, err)
	}
	if stored.UserID != userID || len(stored.Plan.Days) != 7 || stored.Plan.TotalCalories != 2400 {
		t.Errorf("unexpected stored plan: %+v", stored)
	}
	if missing, err := s.GetPlan(first + second + 1000); err != nil || missing != nil {
		t.Errorf("expected missing plan, got %+v, %v", missing, err)
	}

	if err := s.SaveActivity(models.Activity{UserID: userID, Kind: models.ActivityInterviewCompleted, Payload: map[string]interface{}{"plan_id": first}}); err != nil {
		t.Errorf("SaveActivity failed: %v", err)
	}

	created := time.Now().Add(-time.Hour)
	sess := models.Session{
		UserID: userID, Flow: models.FlowTypeConversation, State: models.StateViewingPlan,
		Data: map[models.DataKey]string{models.DataKeyCurrentDay: "3"}, CreatedAt: created, UpdatedAt: created,
	}
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	sess.State = models.StateMainMenu
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = time.Now()
	if err := s.SaveSession(sess); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}
	gotSess, err := s.GetSession(userID, models.FlowTypeConversation)
	if err != nil || gotSess == nil {
		t.Fatalf("GetSession failed: %+v, %v", gotSess, err)
	}
	if gotSess.State != models.StateMainMenu || gotSess.Data[models.DataKeyCurrentDay] != "3" {
		t.Errorf("unexpected session: %+v", gotSess)
	}
	if other, _ := s.GetSession(userID+1, models.FlowTypeConversation); other != nil {
		t.Errorf("session leaked to another user: %+v", other)
	}
	if err := s.DeleteSession(userID, models.FlowTypeConversation); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if got, _ := s.GetSession(userID, models.FlowTypeConversation); got != nil {
		t.Errorf("session survived delete: %+v", got)
	}
}

func exerciseJournal(t *testing.T, j UpdateJournal, updateID int) {
	t.Helper()
	if seen, err := j.SeenUpdate(updateID); err != nil || seen {
		t.Fatalf("fresh update reported seen: %v, %v", seen, err)
	}
	if fresh, err := j.BeginUpdate(updateID, 42); err != nil || !fresh {
		t.Fatalf("first BeginUpdate should accept: %v, %v", fresh, err)
	}
	if seen, _ := j.SeenUpdate(updateID); !seen {
		t.Error("journaled update not seen")
	}
	if fresh, _ := j.BeginUpdate(updateID, 42); fresh {
		t.Error("redelivered update accepted")
	}
	if err := j.FinishUpdate(updateID); err != nil {
		t.Errorf("FinishUpdate: %v", err)
	}

	if _, err := j.PruneUpdates(time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("PruneUpdates: %v", err)
	}
	if seen, _ := j.SeenUpdate(updateID); !seen {
		t.Error("recent update pruned")
	}
	if n, err := j.PruneUpdates(time.Now().Add(time.Hour)); err != nil || n < 1 {
		t.Errorf("expected update pruned, got %d, %v", n, err)
	}
	if seen, _ := j.SeenUpdate(updateID); seen {
		t.Error("pruned update still seen")
	}
}

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()
	exerciseStore(t, s, 1001)
	exerciseJournal(t, s, 1)

	acts := s.Activities(1001)
	if len(acts) != 1 || acts[0].Kind != models.ActivityInterviewCompleted {
		t.Errorf("unexpected activities: %+v", acts)
	}
}

func TestInMemoryStore_SavePlanCopies(t *testing.T) {
	s := NewInMemoryStore()
	plan := samplePlan(2, 1800)
	id, _ := s.SavePlan(1, plan)
	plan.Days[0].Meals[0].FoodItems[0].Name = "changed"

	stored, _ := s.GetPlan(id)
	if stored.Plan.Days[0].Meals[0].FoodItems[0].Name != "Рис" {
		t.Error("stored plan aliases the caller's data")
	}
}

func TestSQLiteStore(t *testing.T) {
	s := newTestSQLiteStore(t)
	exerciseStore(t, s, 2002)
	exerciseJournal(t, s, 2)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "reopen.db")

	s1, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if _, err := s1.CreateProfile(models.AthleteProfile{UserID: 5, SportType: "плавание", Gender: models.GenderMale, Age: 30, Weight: 80, Height: 185, Goal: "масса"}); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	p, err := s2.GetProfile(5)
	if err != nil || p == nil || p.SportType != "плавание" {
		t.Errorf("profile lost across restart: %+v, %v", p, err)
	}
}

func TestPostgresStore(t *testing.T) {
	connStr := getenvOrSkip(t, "DATABASE_URL")
	pgStore, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pgStore.Close()

	userID := time.Now().UnixNano() % 1_000_000_000
	pgStore.db.Exec("DELETE FROM athletes WHERE user_id = $1", userID)
	pgStore.db.Exec("DELETE FROM meal_plans WHERE user_id IN ($1, $2)", userID, userID+1)
	pgStore.db.Exec("DELETE FROM sessions WHERE user_id IN ($1, $2)", userID, userID+1)

	exerciseStore(t, pgStore, userID)
	exerciseJournal(t, pgStore, int(userID))
}

func TestDetectDSNType(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost/db":       "postgres",
		"postgresql://localhost/db":         "postgres",
		"host=localhost dbname=diet user=u": "postgres",
		"/var/lib/dietcoach/state.db":       "sqlite3",
		"file:test.db?cache=shared":         "sqlite3",
	}
	for dsn, want := range tests {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Errorf("expected in-memory store without DSN, got %T", s)
	}

	s, err = New(WithDSN(filepath.Join(t.TempDir(), "x.db")))
	if err != nil {
		t.Fatalf("New sqlite failed: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("expected SQLite store, got %T", s)
	}
}
