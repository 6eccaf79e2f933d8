package api

import (
	"time"

	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/pkg/config"
	"github.com/gin-gonic/gin"
)

// Handlers groups everything SetupRouter mounts
type Handlers struct {
	Auth           *AuthHandler
	Events         *EventHandler
	Classification *ClassificationHandler
	Favorites      *FavoriteHandler
	Notes          *NoteHandler
	Lookup         *LookupHandler
	Notifications  *NotificationHandler
	Settings       *SettingsHandler
	Audit          *AuditHandler
	Health         *HealthHandler
	Stream         *StreamHub
}

func SetupRouter(h Handlers, validator middleware.TokenValidator, cfg *config.Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	globalLimiter := middleware.NewRateLimiter(10*time.Millisecond, 200)
	authLimiter := middleware.NewRateLimiter(6*time.Second, 10)

	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware(globalLimiter))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoints (no auth required)
	router.GET("/health", h.Health.HealthCheck)
	router.HEAD("/health", h.Health.HealthCheck)
	router.GET("/ready", h.Health.ReadinessCheck)
	router.GET("/live", h.Health.LivenessCheck)
	router.GET("/prometheus", h.Health.MetricsEndpoint)

	requireAuth := middleware.AuthMiddleware(validator)

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", middleware.RateLimitMiddleware(authLimiter), h.Auth.Login)
		auth.GET("/profile", requireAuth, h.Auth.GetProfile)
		auth.PUT("/profile", requireAuth, h.Auth.UpdateProfile)
	}

	api := router.Group("/api")
	api.Use(requireAuth)
	{
		events := api.Group("/events")
		{
			events.GET("", h.Events.List)
			events.GET("/queue", h.Events.Queue)
			events.GET("/history", h.Events.History)
			events.GET("/activity/:user_id", h.Events.Activity)
			events.GET("/last", h.Events.Last)
			events.GET("/since", h.Events.Since)
			events.GET("/export", h.Events.Export)
			events.GET("/stream", h.Stream.HandleConnection)
			events.POST("/classify", h.Classification.Classify)
			events.POST("/mass-action", h.Classification.MassAction)
			events.POST("/favorites", h.Favorites.MassCreate)
			events.DELETE("/favorites", h.Favorites.MassDestroy)

			events.GET("/:sid/:cid", h.Events.Show)
			events.DELETE("/:sid/:cid", h.Events.Delete)
			events.POST("/:sid/:cid/favorite", h.Favorites.Toggle)
			events.POST("/:sid/:cid/email", h.Events.Email)
			events.GET("/:sid/:cid/packet-capture", h.Events.PacketCapture)
			events.GET("/:sid/:cid/notes", h.Notes.List)
			events.POST("/:sid/:cid/notes", h.Notes.Create)
		}

		api.DELETE("/notes/:id", h.Notes.Delete)
		api.GET("/classifications", h.Classification.List)
		api.GET("/lookup", h.Lookup.Lookup)

		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.Notifications.List)
			notifications.POST("", h.Notifications.Create)
			notifications.DELETE("/:id", h.Notifications.Delete)
		}

		admin := api.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/settings", h.Settings.List)
			admin.PUT("/settings", h.Settings.Update)
			admin.GET("/audit", h.Audit.List)
		}
	}

	return router
}
