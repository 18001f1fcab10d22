package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campus-events/internal/helpers"
	"github.com/joshua-takyi/campus-events/internal/middleware"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/services"
)

// Logout clears the auth cookies and drops the session's report cache.
func Logout(registry *services.ReportCacheRegistry, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID := middleware.SessionID(c); sessionID != "" {
			registry.Drop(sessionID)
		} else if sessionID, err := c.Cookie(helpers.SessionCookie); err == nil {
			registry.Drop(sessionID)
		}
		helpers.ClearAuthCookies(c, secureCookies)

		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Logged out successfully"))
	}
}
