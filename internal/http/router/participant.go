package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/internal/http/handler"
)

func ParticipantRouter(router *gin.RouterGroup, h *handler.ParticipantHandler) {
	router.POST("", h.Register)
	router.GET("", h.List)
	router.GET("/:id", h.Get)
	router.PUT("/:id/availability", h.SetAvailability)
}
