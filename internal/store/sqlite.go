// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/DietCoach/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	sqlBackend
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// A single writer avoids "database is locked" under concurrent users.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "dsn", dsn)

	return &SQLiteStore{db: db, sqlBackend: sqlBackend{db: db, d: sqliteDialect}}, nil
}

func (s *SQLiteStore) GetProfile(userID int64) (*models.AthleteProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileColumns+` FROM athletes WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetProfile not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load profile of %d: %w", userID, err)
	}
	return p, nil
}

func (s *SQLiteStore) CreateProfile(p models.AthleteProfile) (int64, error) {
	now := time.Now()
	_, err := s.db.Exec(`
		INSERT INTO athletes (user_id, username, first_name, last_name, sport_type, gender, age, weight, height, goal, competition_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			sport_type = excluded.sport_type,
			gender = excluded.gender,
			age = excluded.age,
			weight = excluded.weight,
			height = excluded.height,
			goal = excluded.goal,
			competition_date = excluded.competition_date,
			updated_at = excluded.updated_at`,
		p.UserID, nilIfEmpty(p.Username), nilIfEmpty(p.FirstName), nilIfEmpty(p.LastName),
		p.SportType, string(p.Gender), p.Age, p.Weight, p.Height, p.Goal, competitionArg(p), now, now)
	if err != nil {
		slog.Error("SQLiteStore CreateProfile failed", "error", err, "userID", p.UserID)
		return 0, fmt.Errorf("failed to save profile of %d: %w", p.UserID, err)
	}

	var id int64
	if err := s.db.QueryRow(`SELECT id FROM athletes WHERE user_id = ?`, p.UserID).Scan(&id); err != nil {
		slog.Error("SQLiteStore CreateProfile id lookup failed", "error", err, "userID", p.UserID)
		return 0, fmt.Errorf("failed to read profile id of %d: %w", p.UserID, err)
	}
	slog.Debug("SQLiteStore CreateProfile succeeded", "userID", p.UserID, "id", id)
	return id, nil
}

func (s *SQLiteStore) SavePlan(userID int64, plan models.MealPlan) (int64, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to encode plan: %w", err)
	}
	planType, days := planMeta(plan)
	res, err := s.db.Exec(`
		INSERT INTO meal_plans (user_id, plan_type, duration_days, total_calories, protein_grams, carbs_grams, fat_grams, plan_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, planType, days, plan.TotalCalories.Float(), plan.ProteinGrams.Float(),
		plan.CarbsGrams.Float(), plan.FatGrams.Float(), string(data), time.Now())
	if err != nil {
		slog.Error("SQLiteStore SavePlan failed", "error", err, "userID", userID)
		return 0, fmt.Errorf("failed to save plan for %d: %w", userID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read plan id: %w", err)
	}
	slog.Debug("SQLiteStore SavePlan succeeded", "userID", userID, "planID", id, "days", days)
	return id, nil
}

func (s *SQLiteStore) ListPlans(userID int64, limit int) ([]models.PlanSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, plan_type, duration_days, total_calories, created_at
		FROM meal_plans WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		slog.Error("SQLiteStore ListPlans query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to list plans of %d: %w", userID, err)
	}
	defer rows.Close()

	var out []models.PlanSummary
	for rows.Next() {
		sum, err := scanPlanSummary(rows)
		if err != nil {
			slog.Error("SQLiteStore ListPlans scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plan rows: %w", err)
	}
	slog.Debug("SQLiteStore ListPlans succeeded", "userID", userID, "count", len(out))
	return out, nil
}

func (s *SQLiteStore) GetPlan(id int64) (*models.StoredPlan, error) {
	sp, err := scanStoredPlan(s.db.QueryRow(`SELECT `+planColumns+` FROM meal_plans WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetPlan failed", "error", err, "planID", id)
		return nil, err
	}
	return sp, nil
}

func (s *SQLiteStore) SaveActivity(a models.Activity) error {
	payload, err := encodeActivity(a)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err = s.db.Exec(`INSERT INTO activities (user_id, activity_type, activity_data, created_at) VALUES (?, ?, ?, ?)`,
		a.UserID, string(a.Kind), payload, a.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveActivity failed", "error", err, "userID", a.UserID, "kind", a.Kind)
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
