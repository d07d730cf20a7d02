package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BTreeMap/DietCoach/internal/models"
)

// writeJSONResponse writes response with the given status code.
func writeJSONResponse(c *gin.Context, statusCode int, response models.APIResponse) {
	c.JSON(statusCode, response)
}

// abortWithError stops the handler chain and writes an error envelope.
func abortWithError(c *gin.Context, statusCode int, message string) {
	if statusCode >= http.StatusInternalServerError {
		slog.Error("Server: request failed", "path", c.FullPath(), "status", statusCode, "message", message)
	}
	c.AbortWithStatusJSON(statusCode, models.Error(message))
}
