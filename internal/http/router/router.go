package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/internal/http/handler"
	"github.com/Satokaheni/mythic-plus-bot/internal/http/middleware"
	"github.com/Satokaheni/mythic-plus-bot/internal/queue"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
)

type RouterConfig struct {
	AdminAPIKey     string
	TraceHeaderName string
	// Producer may be nil when the process runs without Redis.
	Producer queue.Producer
}

func SetupRoutes(router *gin.Engine, roster service.RosterService, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
	{
		ParticipantRouter(v1.Group("/participants"), handler.NewParticipantHandler(roster))
		RunRouter(v1, handler.NewRunHandler(roster))
		OutreachRouter(v1, handler.NewOutreachHandler(roster))
		EventRouter(v1.Group("/events"), handler.NewEventIngestHandler(cfg.Producer, cfg.TraceHeaderName))
	}
}
