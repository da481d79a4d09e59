package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/internal/http/dto"
	"github.com/Satokaheni/mythic-plus-bot/internal/roster"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
)

type OutreachHandler struct {
	service service.RosterService
}

func NewOutreachHandler(service service.RosterService) *OutreachHandler {
	return &OutreachHandler{service: service}
}

func (h *OutreachHandler) List(c *gin.Context) {
	records, err := h.service.Outreach(c.Request.Context())
	if err != nil {
		writeError(c, err, "list outreach")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *OutreachHandler) Respond(c *gin.Context) {
	handle := c.Param("handle")

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Handle: &handle})
	resp, err := h.service.Respond(ctx, handle, *req.Accept)
	if err != nil {
		writeError(c, err, "record response")
		return
	}

	out := dto.RespondResponse{Outcome: resp.Outcome, RunID: resp.Record.RunID}
	if resp.Outcome == roster.ResponseAccepted {
		a := dto.NewAssignment(resp.Assignment)
		out.Assignment = &a
	}
	c.JSON(http.StatusOK, out)
}

// Maintain runs one maintenance cycle now instead of waiting for the ticker.
func (h *OutreachHandler) Maintain(c *gin.Context) {
	report, err := h.service.Maintain(c.Request.Context())
	if err != nil {
		writeError(c, err, "run maintenance")
		return
	}
	c.JSON(http.StatusOK, report)
}
