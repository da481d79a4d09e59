package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/internal/domain"
	"github.com/Satokaheni/mythic-plus-bot/internal/http/dto"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
)

type ParticipantHandler struct {
	service service.RosterService
}

func NewParticipantHandler(service service.RosterService) *ParticipantHandler {
	return &ParticipantHandler{service: service}
}

func (h *ParticipantHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid register request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{ParticipantID: &req.ID})
	p, created, err := h.service.Register(ctx, service.RegisterParams{
		ID:       req.ID,
		Name:     req.Name,
		Mention:  req.Mention,
		Class:    req.Class,
		Roles:    req.Roles,
		Timezone: req.Timezone,
		Tier:     req.Tier,
	})
	if err != nil {
		writeError(c, err, "register participant")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.RegisterParticipantResponse{Participant: p, Created: created})
}

func (h *ParticipantHandler) List(c *gin.Context) {
	ps, err := h.service.Participants(c.Request.Context())
	if err != nil {
		writeError(c, err, "list participants")
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h *ParticipantHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Participant(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get participant")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ParticipantHandler) SetAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetAvailability(c.Request.Context(), id, tier); err != nil {
		writeError(c, err, "set availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant_id": id, "tier": tier})
}
