package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/DietCoach/internal/models"
	"github.com/BTreeMap/DietCoach/internal/store"
	"github.com/BTreeMap/DietCoach/internal/telegram"
)

// WebhookPath is the route prefix Telegram posts updates to; the webhook
// secret is the last path segment.
const WebhookPath = "/telegram/webhook/"

// Store is the read side of store.Store served by the admin endpoints.
type Store interface {
	GetProfile(userID int64) (*models.AthleteProfile, error)
	ListPlans(userID int64, limit int) ([]models.PlanSummary, error)
	GetPlan(id int64) (*models.StoredPlan, error)
}

var _ Store = (store.Store)(nil)

// UpdateHandler consumes Telegram updates; *telegram.Client implements it.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

var _ UpdateHandler = (*telegram.Client)(nil)

// ActorCounter reports how many users currently have a running conversation
// goroutine; *flow.Dispatcher implements it.
type ActorCounter interface {
	ActiveActors() int
}

// Server holds the HTTP surface of the bot.
type Server struct {
	store         Store
	updates       UpdateHandler
	actors        ActorCounter
	webhookSecret string
	adminToken    string
	started       time.Time
	router        *gin.Engine
}

// NewServer creates a Server. updates and actors may be nil: the webhook
// route is only registered when both updates and a webhook secret are set,
// and the admin routes only when an admin token is set.
func NewServer(st Store, updates UpdateHandler, actors ActorCounter, opts ...Option) *Server {
	cfg := newOpts(opts...)
	s := &Server{
		store:         st,
		updates:       updates,
		actors:        actors,
		webhookSecret: cfg.WebhookSecret,
		adminToken:    cfg.AdminToken,
		started:       time.Now(),
	}
	s.router = s.setupRoutes()
	slog.Debug("Server created", "webhook", s.webhookEnabled(), "admin", s.adminToken != "")
	return s
}

func (s *Server) webhookEnabled() bool {
	return s.updates != nil && s.webhookSecret != ""
}

func (s *Server) setupRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", s.healthHandler)

	if s.webhookEnabled() {
		r.POST(WebhookPath+":secret", s.webhookHandler)
	}

	if s.adminToken != "" {
		users := r.Group("/users", adminAuth(s.adminToken))
		users.GET("/:id/profile", s.getProfileHandler)
		users.GET("/:id/plans", s.listPlansHandler)
		users.GET("/:id/plans/:planID", s.getPlanHandler)
	}
	return r
}

// Handler returns the router serving every route.
func (s *Server) Handler() *gin.Engine {
	return s.router
}
