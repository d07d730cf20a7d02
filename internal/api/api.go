// Package api wires the DietCoach modules together and serves the HTTP
// surface of the bot.
//
// Run builds the store, the language model client, the interview engine, the
// conversation state machine and the Telegram transport, then receives
// updates by long polling or by webhook until SIGINT or SIGTERM.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/BTreeMap/DietCoach/internal/flow"
	"github.com/BTreeMap/DietCoach/internal/genai"
	"github.com/BTreeMap/DietCoach/internal/interview"
	"github.com/BTreeMap/DietCoach/internal/lockfile"
	"github.com/BTreeMap/DietCoach/internal/store"
	"github.com/BTreeMap/DietCoach/internal/telegram"
)

// Defaults for Run.
const (
	DefaultAddr        = ":8080"
	DefaultPlanDays    = 7
	DefaultEnvironment = "development"
	ShutdownTimeout    = 10 * time.Second
	ReplySendInterval  = 5 * time.Second
)

// EnvironmentProduction switches Run from long polling to webhook mode.
const EnvironmentProduction = "production"

// Opts holds configuration options for the API server and the bot runtime.
type Opts struct {
	Addr          string // listen address, e.g. ":8080"
	BotToken      string // Telegram bot token
	Environment   string // "production" receives updates by webhook
	WebhookURL    string // public base URL Telegram posts to
	WebhookSecret string // last path segment of the webhook route
	AdminToken    string // bearer token for the /users endpoints; empty disables them
	PlanDays      int    // length of generated plans
	StateDir      string // directory locked against a second instance
	MailboxSize   int    // events queued per user
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithBotToken sets the Telegram bot token.
func WithBotToken(token string) Option {
	return func(o *Opts) {
		o.BotToken = token
	}
}

// WithEnvironment sets the deployment environment.
func WithEnvironment(env string) Option {
	return func(o *Opts) {
		o.Environment = env
	}
}

// WithWebhookURL sets the public base URL used in webhook mode.
func WithWebhookURL(url string) Option {
	return func(o *Opts) {
		o.WebhookURL = url
	}
}

// WithWebhookSecret sets the secret path segment of the webhook route.
// Run generates one when none is given.
func WithWebhookSecret(secret string) Option {
	return func(o *Opts) {
		o.WebhookSecret = secret
	}
}

// WithAdminToken enables the read-only admin endpoints.
func WithAdminToken(token string) Option {
	return func(o *Opts) {
		o.AdminToken = token
	}
}

// WithPlanDays sets how many days a generated plan covers.
func WithPlanDays(days int) Option {
	return func(o *Opts) {
		o.PlanDays = days
	}
}

// WithStateDir sets the state directory that is locked for the process lifetime.
func WithStateDir(dir string) Option {
	return func(o *Opts) {
		o.StateDir = dir
	}
}

// WithMailboxSize sets how many events may wait for one user.
func WithMailboxSize(n int) Option {
	return func(o *Opts) {
		o.MailboxSize = n
	}
}

func newOpts(opts ...Option) Opts {
	cfg := Opts{
		Addr:        DefaultAddr,
		Environment: DefaultEnvironment,
		PlanDays:    DefaultPlanDays,
		MailboxSize: flow.DefaultMailboxSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// webhookMode reports whether updates arrive by webhook. Production requires
// a webhook URL.
func (o Opts) webhookMode() (bool, error) {
	if o.Environment != EnvironmentProduction {
		return false, nil
	}
	if o.WebhookURL == "" {
		return false, fmt.Errorf("webhook URL is required in %s", EnvironmentProduction)
	}
	return true, nil
}

// webhookEndpoint joins the public base URL with the webhook route.
func webhookEndpoint(baseURL, secret string) string {
	return strings.TrimRight(baseURL, "/") + WebhookPath + secret
}

// Run starts the bot with the given module options and blocks until it is
// stopped by a signal or a fatal error.
func Run(tgOpts []telegram.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := newOpts(apiOpts...)
	slog.Debug("api.Run: configuration", "addr", cfg.Addr, "environment", cfg.Environment, "planDays", cfg.PlanDays, "stateDir", cfg.StateDir)

	webhook, err := cfg.webhookMode()
	if err != nil {
		return err
	}
	if webhook && cfg.WebhookSecret == "" {
		cfg.WebhookSecret = uuid.NewString()
		apiOpts = append(apiOpts, WithWebhookSecret(cfg.WebhookSecret))
	}
	if cfg.Environment == EnvironmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.StateDir != "" {
		lock, err := lockfile.AcquireLock(cfg.StateDir)
		if err != nil {
			return fmt.Errorf("failed to acquire state directory lock: %w", err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				slog.Error("api.Run: failed to release lock", "error", err)
			}
		}()
	}

	st, err := store.New(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("api.Run: failed to close store", "error", err)
		}
	}()

	llm, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	engine := interview.NewEngine(llm)

	tgOpts = append(tgOpts, telegram.WithReplyQueue(st), telegram.WithUpdateJournal(st))
	client, err := telegram.NewClient(cfg.BotToken, tgOpts...)
	if err != nil {
		return err
	}

	machine := flow.NewMachine(flow.NewStoreBasedStateManager(st), st, engine,
		flow.WithPlanDays(cfg.PlanDays),
		flow.WithNotifier(client),
	)
	dispatcher := flow.NewDispatcher(machine, client, flow.WithMailboxSize(cfg.MailboxSize))
	client.SetDispatcher(dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if n, err := st.PruneUpdates(time.Now().Add(-store.DefaultJournalRetention)); err != nil {
		slog.Warn("api.Run: update journal prune failed", "error", err)
	} else if n > 0 {
		slog.Info("api.Run: pruned update journal", "removed", n)
	}

	sender := store.NewReplySender(st, client.Deliver, ReplySendInterval)
	if err := sender.Recover(); err != nil {
		slog.Warn("api.Run: reply queue recovery failed", "error", err)
	}
	go sender.Run(ctx)
	go engine.RunSweeper(ctx, interview.DefaultSweepInterval, interview.DefaultSessionTTL)

	srv := NewServer(st, client, dispatcher, apiOpts...)
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("API server listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	if webhook {
		if err := client.SetWebhook(webhookEndpoint(cfg.WebhookURL, cfg.WebhookSecret)); err != nil {
			errCh <- err
		} else {
			slog.Info("DietCoach receiving updates by webhook", "baseURL", cfg.WebhookURL)
		}
	} else {
		go func() {
			if err := client.Poll(ctx); err != nil {
				errCh <- fmt.Errorf("polling failed: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping DietCoach")
	case runErr = <-errCh:
		slog.Error("DietCoach stopping after fatal error", "error", runErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server forced to shut down", "error", err)
	}
	dispatcher.Stop()
	slog.Info("DietCoach stopped")
	return runErr
}
