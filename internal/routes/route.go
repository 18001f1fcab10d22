package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campus-events/internal/container"
	"github.com/joshua-takyi/campus-events/internal/handlers"
	"github.com/joshua-takyi/campus-events/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     container.Config.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	auth := container.Authenticator
	secure := container.Config.IsProduction()
	throttle := middleware.RateLimit(container.WriteLimiter)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.SessionCache(container.ReportCaches, secure))
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "campus-events-api",
			})
		})

		v1.POST("/login", handlers.AuthenticateUser(container.UserService, secure))
		v1.POST("/logout", handlers.Logout(container.ReportCaches, secure))
	}

	public := v1.Group("/")
	public.Use(auth.Optional())
	{
		public.GET("/events", handlers.ListEvents(container.EventService))
	}

	protected := v1.Group("/")
	protected.Use(auth.Required())
	{
		protected.GET("/profile", handlers.Profile())

		protected.POST("/events", throttle, handlers.CreateEvent(container.EventService))
		protected.PATCH("/events/:id", throttle, handlers.UpdateEvent(container.EventService))
		protected.DELETE("/events/:id", handlers.DeleteEvent(container.EventService))

		protected.POST("/events/:id/reports", throttle, handlers.SubmitReport(container.ReportService))
		protected.GET("/events/:id/reports/me", handlers.HasReported(container.ReportService))

		protected.GET("/me/events", handlers.ListMyEvents(container.EventService))
		protected.GET("/me/reported", handlers.FetchReportedIDs(container.ReportService))
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/events/review", handlers.ListUnderReview(container.ModerationService, container.Config.DefaultPageSize))
		admin.POST("/events/:id/approve", handlers.ApproveEvent(container.ModerationService))
		admin.POST("/events/:id/reject", handlers.RejectEvent(container.ModerationService))
	}

	return r
}
