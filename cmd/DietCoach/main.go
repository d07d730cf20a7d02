package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/DietCoach/internal/api"
	"github.com/BTreeMap/DietCoach/internal/genai"
	"github.com/BTreeMap/DietCoach/internal/store"
	"github.com/BTreeMap/DietCoach/internal/telegram"
	"github.com/BTreeMap/DietCoach/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for DietCoach state data
	DefaultStateDir = "/var/lib/dietcoach"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "dietcoach.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config, os.Args[1:])
	if err := validateFlags(flags); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(2)
	}

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	tgOpts := buildTelegramOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping DietCoach with configured modules")
	slog.Debug("Module options counts", "telegram", len(tgOpts), "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "env", *flags.environment)
	if err := api.Run(tgOpts, storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("DietCoach failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("DietCoach exited successfully")
}

// Config holds environment configuration
type Config struct {
	BotToken       string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration
	DatabaseDSN    string
	StateDir       string
	WebhookURL     string
	WebhookSecret  string
	AdminToken     string
	Environment    string
	APIAddr        string
	PlanDays       int
	GenAIDebug     bool
	TelegramDebug  bool
}

// Flags holds command line flag values
type Flags struct {
	botToken       *string
	llmAPIKey      *string
	llmBaseURL     *string
	llmModel       *string
	llmTemperature *float64
	llmMaxTokens   *int
	llmTimeout     *time.Duration
	dbDSN          *string
	stateDir       *string
	webhookURL     *string
	webhookSecret  *string
	adminToken     *string
	environment    *string
	apiAddr        *string
	planDays       *int
	genaiDebug     *bool
	telegramDebug  *bool
}

// initializeLogger sets up structured logging at the level named by
// $LOG_LEVEL; DEBUG=true forces debug.
func initializeLogger() {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	if util.ParseBoolEnv("DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// firstEnv returns the first non-empty environment variable of keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		BotToken:       os.Getenv("BOT_TOKEN"),
		LLMAPIKey:      firstEnv("DEEPSEEK_API_KEY", "OPENAI_API_KEY"),
		LLMBaseURL:     firstEnv("DEEPSEEK_BASE_URL"),
		LLMModel:       firstEnv("DEEPSEEK_MODEL"),
		LLMTemperature: util.ParseFloatEnv("DEEPSEEK_TEMPERATURE", genai.DefaultTemperature),
		LLMMaxTokens:   util.ParseIntEnv("DEEPSEEK_MAX_TOKENS", genai.DefaultMaxTokens),
		LLMTimeout:     util.ParseDurationEnv("LLM_TIMEOUT", genai.DefaultTimeout),
		DatabaseDSN:    firstEnv("DATABASE_DSN", "DATABASE_URL"),
		StateDir:       os.Getenv("DIETCOACH_STATE_DIR"),
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		Environment:    os.Getenv("ENVIRONMENT"),
		APIAddr:        os.Getenv("API_ADDR"),
		PlanDays:       util.ParseIntEnv("PLAN_DAYS", api.DefaultPlanDays),
		GenAIDebug:     util.ParseBoolEnv("GENAI_DEBUG", false),
		TelegramDebug:  util.ParseBoolEnv("TELEGRAM_DEBUG", false),
	}

	if config.LLMBaseURL == "" {
		config.LLMBaseURL = genai.DefaultBaseURL
	}
	if config.LLMModel == "" {
		config.LLMModel = genai.DefaultModel
	}
	if config.Environment == "" {
		config.Environment = api.DefaultEnvironment
	}

	// PORT is what most container platforms inject
	if config.APIAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			config.APIAddr = ":" + port
		} else {
			config.APIAddr = api.DefaultAddr
		}
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No DIETCOACH_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database DSN is provided, default to SQLite in the state directory
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}

	slog.Debug("environment variables loaded",
		"BOT_TOKEN_SET", config.BotToken != "",
		"LLM_API_KEY_SET", config.LLMAPIKey != "",
		"DEEPSEEK_BASE_URL", config.LLMBaseURL,
		"DEEPSEEK_MODEL", config.LLMModel,
		"LLM_TIMEOUT", config.LLMTimeout,
		"DATABASE_DSN_SET", config.DatabaseDSN != "",
		"DIETCOACH_STATE_DIR", config.StateDir,
		"WEBHOOK_URL", config.WebhookURL,
		"ADMIN_TOKEN_SET", config.AdminToken != "",
		"ENVIRONMENT", config.Environment,
		"API_ADDR", config.APIAddr,
		"PLAN_DAYS", config.PlanDays)

	return config
}

// parseCommandLineFlags parses args with environment defaults
func parseCommandLineFlags(config Config, args []string) Flags {
	fs := flag.NewFlagSet("dietcoach", flag.ExitOnError)
	flags := Flags{
		botToken:       fs.String("bot-token", config.BotToken, "Telegram bot token (overrides $BOT_TOKEN)"),
		llmAPIKey:      fs.String("llm-api-key", config.LLMAPIKey, "LLM API key (overrides $DEEPSEEK_API_KEY or $OPENAI_API_KEY)"),
		llmBaseURL:     fs.String("llm-base-url", config.LLMBaseURL, "OpenAI-compatible API base URL (overrides $DEEPSEEK_BASE_URL)"),
		llmModel:       fs.String("llm-model", config.LLMModel, "model name (overrides $DEEPSEEK_MODEL)"),
		llmTemperature: fs.Float64("llm-temperature", config.LLMTemperature, "sampling temperature (overrides $DEEPSEEK_TEMPERATURE)"),
		llmMaxTokens:   fs.Int("llm-max-tokens", config.LLMMaxTokens, "completion token budget (overrides $DEEPSEEK_MAX_TOKENS)"),
		llmTimeout:     fs.Duration("llm-timeout", config.LLMTimeout, "timeout of one LLM request (overrides $LLM_TIMEOUT)"),
		dbDSN:          fs.String("db-dsn", config.DatabaseDSN, "database DSN, PostgreSQL URL or SQLite path (overrides $DATABASE_DSN or $DATABASE_URL)"),
		stateDir:       fs.String("state-dir", config.StateDir, "state directory for DietCoach data (overrides $DIETCOACH_STATE_DIR)"),
		webhookURL:     fs.String("webhook-url", config.WebhookURL, "public base URL for webhook mode (overrides $WEBHOOK_URL)"),
		webhookSecret:  fs.String("webhook-secret", config.WebhookSecret, "secret path segment of the webhook route (overrides $WEBHOOK_SECRET)"),
		adminToken:     fs.String("admin-token", config.AdminToken, "bearer token for the admin endpoints (overrides $ADMIN_TOKEN)"),
		environment:    fs.String("env", config.Environment, "deployment environment; production uses the webhook (overrides $ENVIRONMENT)"),
		apiAddr:        fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR or $PORT)"),
		planDays:       fs.Int("plan-days", config.PlanDays, "days covered by a generated plan (overrides $PLAN_DAYS)"),
		genaiDebug:     fs.Bool("genai-debug", config.GenAIDebug, "write LLM requests and responses under <state-dir>/debug (overrides $GENAI_DEBUG)"),
		telegramDebug:  fs.Bool("telegram-debug", config.TelegramDebug, "log Bot API traffic (overrides $TELEGRAM_DEBUG)"),
	}

	fs.Parse(args)

	slog.Debug("flags parsed",
		"botTokenSet", *flags.botToken != "",
		"llmKeySet", *flags.llmAPIKey != "",
		"llmBaseURL", *flags.llmBaseURL,
		"llmModel", *flags.llmModel,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"env", *flags.environment,
		"apiAddr", *flags.apiAddr,
		"planDays", *flags.planDays)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseDSN && config.DatabaseDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// validateFlags rejects configurations the bot cannot start with
func validateFlags(flags Flags) error {
	if *flags.botToken == "" {
		return fmt.Errorf("bot token is required (set $BOT_TOKEN or -bot-token)")
	}
	if *flags.llmAPIKey == "" {
		return fmt.Errorf("LLM API key is required (set $DEEPSEEK_API_KEY or -llm-api-key)")
	}
	if *flags.planDays < 1 {
		return fmt.Errorf("plan days must be at least 1, got %d", *flags.planDays)
	}
	if *flags.environment == api.EnvironmentProduction && *flags.webhookURL == "" {
		return fmt.Errorf("webhook URL is required in production (set $WEBHOOK_URL or -webhook-url)")
	}
	return nil
}

// ensureDirectoriesExist creates the state directory and, for a file-based
// DSN, the directory holding the database file
func ensureDirectoriesExist(flags Flags) error {
	dirs := []string{*flags.stateDir}
	if store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		dirs = append(dirs, filepath.Dir(*flags.dbDSN))
	}
	for _, dir := range dirs {
		slog.Debug("Creating directory", "dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create directory", "error", err, "dir", dir)
			return err
		}
	}
	return nil
}

// buildTelegramOptions constructs Telegram client options
func buildTelegramOptions(flags Flags) []telegram.Option {
	var tgOpts []telegram.Option
	if *flags.telegramDebug {
		tgOpts = append(tgOpts, telegram.WithDebug(true))
	}
	return tgOpts
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		// Check if it's a PostgreSQL DSN using the shared detection function
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			// Assume SQLite for file paths
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	genaiOpts := []genai.Option{
		genai.WithBaseURL(*flags.llmBaseURL),
		genai.WithModel(*flags.llmModel),
		genai.WithTemperature(*flags.llmTemperature),
		genai.WithMaxTokens(*flags.llmMaxTokens),
		genai.WithTimeout(*flags.llmTimeout),
	}
	if *flags.llmAPIKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.llmAPIKey))
	}
	if *flags.genaiDebug {
		genaiOpts = append(genaiOpts, genai.WithDebug(*flags.stateDir))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	apiOpts := []api.Option{
		api.WithBotToken(*flags.botToken),
		api.WithEnvironment(*flags.environment),
		api.WithPlanDays(*flags.planDays),
		api.WithStateDir(*flags.stateDir),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.webhookURL != "" {
		apiOpts = append(apiOpts, api.WithWebhookURL(*flags.webhookURL))
	}
	if *flags.webhookSecret != "" {
		apiOpts = append(apiOpts, api.WithWebhookSecret(*flags.webhookSecret))
	}
	if *flags.adminToken != "" {
		apiOpts = append(apiOpts, api.WithAdminToken(*flags.adminToken))
	}
	return apiOpts
}
