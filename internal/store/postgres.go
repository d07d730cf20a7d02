// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/DietCoach/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	sqlBackend
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db, sqlBackend: sqlBackend{db: db, d: postgresDialect}}, nil
}

func (s *PostgresStore) GetProfile(userID int64) (*models.AthleteProfile, error) {
	p, err := scanProfile(s.db.QueryRow(`SELECT `+profileColumns+` FROM athletes WHERE user_id = $1`, userID))
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetProfile not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to load profile of %d: %w", userID, err)
	}
	return p, nil
}

func (s *PostgresStore) CreateProfile(p models.AthleteProfile) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO athletes (user_id, username, first_name, last_name, sport_type, gender, age, weight, height, goal, competition_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			sport_type = EXCLUDED.sport_type,
			gender = EXCLUDED.gender,
			age = EXCLUDED.age,
			weight = EXCLUDED.weight,
			height = EXCLUDED.height,
			goal = EXCLUDED.goal,
			competition_date = EXCLUDED.competition_date,
			updated_at = NOW()
		RETURNING id`,
		p.UserID, nilIfEmpty(p.Username), nilIfEmpty(p.FirstName), nilIfEmpty(p.LastName),
		p.SportType, string(p.Gender), p.Age, p.Weight, p.Height, p.Goal, competitionArg(p)).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore CreateProfile failed", "error", err, "userID", p.UserID)
		return 0, fmt.Errorf("failed to save profile of %d: %w", p.UserID, err)
	}
	slog.Debug("PostgresStore CreateProfile succeeded", "userID", p.UserID, "id", id)
	return id, nil
}

func (s *PostgresStore) SavePlan(userID int64, plan models.MealPlan) (int64, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to encode plan: %w", err)
	}
	planType, days := planMeta(plan)
	var id int64
	err = s.db.QueryRow(`
		INSERT INTO meal_plans (user_id, plan_type, duration_days, total_calories, protein_grams, carbs_grams, fat_grams, plan_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		RETURNING id`,
		userID, planType, days, plan.TotalCalories.Float(), plan.ProteinGrams.Float(),
		plan.CarbsGrams.Float(), plan.FatGrams.Float(), string(data)).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore SavePlan failed", "error", err, "userID", userID)
		return 0, fmt.Errorf("failed to save plan for %d: %w", userID, err)
	}
	slog.Debug("PostgresStore SavePlan succeeded", "userID", userID, "planID", id, "days", days)
	return id, nil
}

func (s *PostgresStore) ListPlans(userID int64, limit int) ([]models.PlanSummary, error) {
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.Query(`
		SELECT id, plan_type, duration_days, total_calories, created_at
		FROM meal_plans WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limitArg)
	if err != nil {
		slog.Error("PostgresStore ListPlans query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to list plans of %d: %w", userID, err)
	}
	defer rows.Close()

	var out []models.PlanSummary
	for rows.Next() {
		sum, err := scanPlanSummary(rows)
		if err != nil {
			slog.Error("PostgresStore ListPlans scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plan rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetPlan(id int64) (*models.StoredPlan, error) {
	sp, err := scanStoredPlan(s.db.QueryRow(`SELECT `+planColumns+` FROM meal_plans WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetPlan failed", "error", err, "planID", id)
		return nil, err
	}
	return sp, nil
}

func (s *PostgresStore) SaveActivity(a models.Activity) error {
	payload, err := encodeActivity(a)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err = s.db.Exec(`INSERT INTO activities (user_id, activity_type, activity_data, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
		a.UserID, string(a.Kind), payload, a.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveActivity failed", "error", err, "userID", a.UserID, "kind", a.Kind)
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	}
	return err
}
