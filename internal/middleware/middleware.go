package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/campus-events/internal/helpers"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/services"
)

const (
	userKey        = "user"
	identityKey    = "identity"
	reportCacheKey = "report_cache"
	requestIDKey   = "request_id"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get(requestIDKey)

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if who := Identity(c); who != nil {
			attrs = append(attrs, "user_id", who.ID)
		}
		logger.Info("HTTP Request", attrs...)
	}
}

// ErrorHandler renders errors handlers attached with c.Error when no
// response was written.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		requestID, _ := c.Get(requestIDKey)
		status := helpers.StatusFor(err)

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "Request error",
			"request_id", requestID,
			"error", err.Error(),
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		if c.Writer.Written() {
			return
		}
		c.JSON(status, models.ErrorResponse(helpers.PublicMessage(err)))
	}
}

// Authenticator resolves the caller from the access_token cookie, rotating
// it with the refresh_token cookie when it has expired.
type Authenticator struct {
	verifier      *helpers.TokenVerifier
	users         *services.UserService
	logger        *slog.Logger
	secureCookies bool
}

func NewAuthenticator(verifier *helpers.TokenVerifier, users *services.UserService, logger *slog.Logger, secureCookies bool) *Authenticator {
	return &Authenticator{
		verifier:      verifier,
		users:         users,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

func unauthorized(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ApiResponse{
		Success: false,
		Message: "Unauthorized access",
		Error:   reason,
	})
}

// resolve returns nil claims and an empty reason when no token is present.
func (a *Authenticator) resolve(c *gin.Context) (*helpers.EnhancedClaims, string) {
	token, err := c.Cookie(helpers.AccessTokenCookie)
	if err != nil || token == "" {
		return nil, ""
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		refreshToken, refreshErr := c.Cookie(helpers.RefreshTokenCookie)
		if refreshErr != nil || refreshToken == "" {
			return nil, err.Error()
		}

		tokenRes, refreshErr := a.users.RefreshToken(c.Request.Context(), refreshToken)
		if refreshErr != nil || tokenRes == nil || tokenRes.AccessToken == "" {
			a.logger.Warn("Token refresh failed", "error", refreshErr)
			return nil, "Token expired and refresh failed"
		}
		a.logger.Info("Token refreshed successfully",
			"user_id", tokenRes.User.ID,
			"expires_in", tokenRes.ExpiresIn,
		)
		helpers.SetAuthCookies(c, tokenRes, a.secureCookies)

		token = tokenRes.AccessToken
		claims, err = a.verifier.Verify(token)
		if err != nil {
			return nil, "Refreshed token validation failed"
		}
	}

	role := models.RoleGuest
	var username, fullname string
	if userID, parseErr := uuid.Parse(claims.Subject); parseErr != nil {
		a.logger.Warn("Invalid user ID in token", "user_id", claims.Subject, "error", parseErr)
	} else if profile, err := a.users.GetProfile(c.Request.Context(), userID, token); err != nil {
		a.logger.Info("Profile not found, using default role",
			"user_id", claims.Subject,
			"error", err,
		)
	} else {
		role = profile.SafeRole()
		username = profile.Username
		fullname = profile.FullName
	}

	return &helpers.EnhancedClaims{
		CustomClaims: claims,
		Role:         role,
		UserID:       claims.Subject,
		Email:        claims.Email,
		Username:     username,
		Fullname:     fullname,
	}, ""
}

func setClaims(c *gin.Context, claims *helpers.EnhancedClaims) {
	c.Set(userKey, claims)
	if who := claims.Identity(); who != nil {
		c.Set(identityKey, who)
	}
}

// Required rejects requests without a valid session.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, reason := a.resolve(c)
		if claims == nil {
			if reason == "" {
				reason = "JWT token not found in cookie"
			}
			unauthorized(c, reason)
			return
		}
		setClaims(c, claims)
		if Identity(c) == nil {
			unauthorized(c, "invalid user ID in token")
			return
		}
		c.Next()
	}
}

// Optional identifies the caller when it can and lets anonymous requests
// through.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, _ := a.resolve(c); claims != nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireAdmin must run after Required.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Identity(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse("admin role required"))
			return
		}
		c.Next()
	}
}

// SessionCache issues a session_id cookie when missing and attaches that
// session's report cache to the request.
func SessionCache(registry *services.ReportCacheRegistry, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(helpers.SessionCookie)
		if err != nil || uuid.Validate(sessionID) != nil {
			sessionID = uuid.New().String()
			c.SetCookie(helpers.SessionCookie, sessionID, 0, "/", "", secureCookies, true)
		}
		c.Set(helpers.SessionCookie, sessionID)
		c.Set(reportCacheKey, registry.ForSession(sessionID))
		c.Next()
	}
}

// Identity returns the authenticated caller, or nil.
func Identity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	who, _ := v.(*models.Identity)
	return who
}

// ReportCache returns the session's report cache, or nil outside
// SessionCache.
func ReportCache(c *gin.Context) *services.ReportStatusCache {
	v, ok := c.Get(reportCacheKey)
	if !ok {
		return nil
	}
	cache, _ := v.(*services.ReportStatusCache)
	return cache
}

func SessionID(c *gin.Context) string {
	return c.GetString(helpers.SessionCookie)
}
