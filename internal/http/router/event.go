package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/internal/http/handler"
)

func EventRouter(router *gin.RouterGroup, handler *handler.EventIngestHandler) {
	router.POST("/ingest", handler.Ingest)
}
