package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/internal/http/handler"
)

func OutreachRouter(router *gin.RouterGroup, h *handler.OutreachHandler) {
	router.GET("/outreach", h.List)
	router.POST("/outreach/:handle/response", h.Respond)
	router.POST("/maintenance", h.Maintain)
}
