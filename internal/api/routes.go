package api

import (
	"net/http"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/events"
	"streamvault/video-platform/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	production bool,
	authService service.AuthService,
	videoService service.VideoService,
	pipeline *service.ProcessingPipeline,
	streamer *service.StreamService,
	broadcaster *events.Broadcaster,
) {
	includeStack = !production

	authHandler := NewAuthHandler(authService)
	videoHandler := NewVideoHandler(videoService, pipeline, streamer)
	eventsHandler := NewEventsHandler(broadcaster)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/auth/me", authHandler.Me)

		// --- Video Routes ---
		videoGroup := protected.Group("/videos")
		{
			// Uploading and managing require editor or admin; viewing and
			// streaming are open to every role.
			videoGroup.POST("/upload", RoleMiddleware(domain.RoleEditor, domain.RoleAdmin), videoHandler.Upload)
			videoGroup.GET("", videoHandler.List)
			videoGroup.GET("/stats", videoHandler.Stats)
			videoGroup.GET("/:id", videoHandler.Get)
			videoGroup.GET("/:id/stream", PermissionMiddleware(domain.PermStreamVideos), videoHandler.Stream)
			videoGroup.GET("/:id/download", PermissionMiddleware(domain.PermStreamVideos), videoHandler.Download)
			videoGroup.POST("/:id/process", RoleMiddleware(domain.RoleEditor, domain.RoleAdmin), videoHandler.Process)
			videoGroup.DELETE("/:id", RoleMiddleware(domain.RoleEditor, domain.RoleAdmin), videoHandler.Delete)
		}

		// --- Push Channel ---
		// Server-sent events scoped to the caller's tenant.
		protected.GET("/events", eventsHandler.Subscribe)
	}
}
