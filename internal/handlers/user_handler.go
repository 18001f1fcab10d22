package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campus-events/internal/helpers"
	"github.com/joshua-takyi/campus-events/internal/middleware"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/services"
)

func AuthenticateUser(u *services.UserService, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ApiResponse{Error: err.Error(), Message: "invalid request payload"})
			return
		}

		tokenRes, err := u.AuthenticateUser(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusUnauthorized, models.ApiResponse{Error: "invalid email or password"})
			return
		}
		if tokenRes == nil || tokenRes.AccessToken == "" {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse("invalid token response"))
			return
		}

		helpers.SetAuthCookies(c, tokenRes, secureCookies)
		// Return user info but not tokens
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"user": tokenRes.User}, "logged in"))
	}
}

// Profile echoes the resolved caller.
func Profile() gin.HandlerFunc {
	return func(c *gin.Context) {
		who := middleware.Identity(c)
		if who == nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse("Unauthorized"))
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"user_id":  who.ID,
			"email":    who.Email,
			"role":     who.Role,
			"is_admin": who.IsAdmin(),
		}, ""))
	}
}
