package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// DefaultPlanListLimit is the page size of GET /users/:id/plans.
const DefaultPlanListLimit = 20

// MaxPlanListLimit caps the limit query parameter.
const MaxPlanListLimit = 100

func (s *Server) healthHandler(c *gin.Context) {
	result := gin.H{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if s.actors != nil {
		result["active_users"] = s.actors.ActiveActors()
	}
	writeJSONResponse(c, http.StatusOK, models.Success(result))
}

// webhookHandler accepts an update pushed by Telegram. The update is handed
// to the dispatcher and acknowledged immediately; Telegram retries anything
// that is not answered with 200.
func (s *Server) webhookHandler(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(s.webhookSecret)) != 1 {
		slog.Warn("Server.webhookHandler: wrong secret", "remote", c.ClientIP())
		abortWithError(c, http.StatusNotFound, "Not found")
		return
	}
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		slog.Warn("Server.webhookHandler: failed to decode update", "error", err)
		abortWithError(c, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	slog.Debug("Server.webhookHandler: update received", "updateID", update.UpdateID)
	s.updates.HandleUpdate(context.WithoutCancel(c.Request.Context()), update)
	c.Status(http.StatusOK)
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}

func (s *Server) getProfileHandler(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		slog.Error("Server.getProfileHandler: store error", "userID", userID, "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	if profile == nil {
		abortWithError(c, http.StatusNotFound, "Profile not found")
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(profile))
}

func (s *Server) listPlansHandler(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	limit := DefaultPlanListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, MaxPlanListLimit)
	}

	plans, err := s.store.ListPlans(userID, limit)
	if err != nil {
		slog.Error("Server.listPlansHandler: store error", "userID", userID, "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to list plans")
		return
	}
	if plans == nil {
		plans = []models.PlanSummary{}
	}
	writeJSONResponse(c, http.StatusOK, models.Success(plans))
}

func (s *Server) getPlanHandler(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	planID, err := strconv.ParseInt(c.Param("planID"), 10, 64)
	if err != nil || planID <= 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid plan id")
		return
	}

	plan, err := s.store.GetPlan(planID)
	if err != nil {
		slog.Error("Server.getPlanHandler: store error", "planID", planID, "error", err)
		abortWithError(c, http.StatusInternalServerError, "Failed to load plan")
		return
	}
	if plan == nil || plan.UserID != userID {
		abortWithError(c, http.StatusNotFound, "Plan not found")
		return
	}
	writeJSONResponse(c, http.StatusOK, models.Success(plan))
}
