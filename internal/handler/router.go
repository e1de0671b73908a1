package handler

import (
	"net/http"
	"time"

	"community-backend/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(cfg *config.Config, chatHandler *ChatHandler, communityHandler *CommunityHandler) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(RequestLogger())
	router.Use(gin.Recovery())

	// CORS配置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/assistants", chatHandler.ListAssistants)
		api.POST("/assistants/:assistant/sessions", chatHandler.CreateSession)

		sessions := api.Group("/chat/sessions")
		{
			sessions.GET("", chatHandler.ListSessions)
			sessions.GET("/:session_id", chatHandler.GetSession)
			sessions.DELETE("/:session_id", chatHandler.DeleteSession)
			sessions.PUT("/:session_id/input", chatHandler.SetInput)
			sessions.POST("/:session_id/messages", chatHandler.SendMessage)
			sessions.POST("/:session_id/messages/stream", chatHandler.StreamMessage)
			sessions.POST("/:session_id/messages/:message_id/copy", chatHandler.CopyMessage)
			sessions.POST("/:session_id/prompts/:index", chatHandler.SendPrompt)
		}

		communities := api.Group("/communities")
		{
			communities.GET("", communityHandler.List)
			communities.POST("", communityHandler.Create)
			communities.GET("/:community_id", communityHandler.Get)
			communities.POST("/:community_id/join", communityHandler.Join)
			communities.POST("/:community_id/leave", communityHandler.Leave)
			communities.GET("/:community_id/announcements", communityHandler.Announcements)
			communities.POST("/:community_id/announcements", communityHandler.Announce)
		}
	}

	return router
}
