package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/internal/http/handler"
)

func RunRouter(router *gin.RouterGroup, h *handler.RunHandler) {
	runs := router.Group("/runs")
	runs.POST("", h.Request)
	runs.GET("", h.List)
	runs.GET("/:id", h.Get)
	runs.GET("/:id/text", h.Text)
	runs.POST("/:id/signups", h.Signup)
	runs.DELETE("/:id/signups/:participant_id", h.Withdraw)
	runs.POST("/:id/fill", h.FillNow)
	runs.POST("/:id/reset", h.ResetEscalation)

	router.GET("/conflicts", h.Conflicts)
}
