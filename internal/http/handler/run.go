package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Satokaheni/mythic-plus-bot/common/logger"
	"github.com/Satokaheni/mythic-plus-bot/internal/http/dto"
	"github.com/Satokaheni/mythic-plus-bot/internal/service"
)

type RunHandler struct {
	service service.RosterService
}

func NewRunHandler(service service.RosterService) *RunHandler {
	return &RunHandler{service: service}
}

func (h *RunHandler) Request(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RequestRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid run request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{ParticipantID: &req.RequesterID})
	res, err := h.service.RequestRun(ctx, req.RequesterID, service.RunRequestParams{
		Dungeon:   req.Dungeon,
		Level:     req.Level,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeError(c, err, "request run")
		return
	}

	status := http.StatusCreated
	if res.Merged {
		status = http.StatusOK
	}
	c.JSON(status, dto.RequestRunResponse{
		Run:        res.Run,
		Merged:     res.Merged,
		Assignment: dto.NewAssignment(res.Assignment),
	})
}

func (h *RunHandler) List(c *gin.Context) {
	runs, err := h.service.Runs(c.Request.Context())
	if err != nil {
		writeError(c, err, "list runs")
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (h *RunHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get run")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Text renders the run post as it appears in the channel. The optional tz
// query parameter selects the time zone.
func (h *RunHandler) Text(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown time zone"})
			return
		}
		loc = l
	}

	summary, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "render run")
		return
	}
	c.String(http.StatusOK, summary.Text(loc))
}

func (h *RunHandler) Signup(c *gin.Context) {
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{RunID: &runID, ParticipantID: &req.ParticipantID})
	res, err := h.service.Signup(ctx, req.ParticipantID, runID)
	if err != nil {
		writeError(c, err, "sign up")
		return
	}
	c.JSON(http.StatusOK, dto.NewAssignment(res))
}

func (h *RunHandler) Withdraw(c *gin.Context) {
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}
	participantID, ok := pathID(c, "participant_id")
	if !ok {
		return
	}

	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{RunID: &runID, ParticipantID: &participantID})
	change, err := h.service.Withdraw(ctx, participantID, runID)
	if err != nil {
		writeError(c, err, "withdraw")
		return
	}
	c.JSON(http.StatusOK, dto.NewWithdrawResponse(change))
}

// FillNow escalates the run one stage and solicits immediately.
func (h *RunHandler) FillNow(c *gin.Context) {
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.FillNow(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err, "fill run")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *RunHandler) ResetEscalation(c *gin.Context) {
	runID, ok := pathID(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.ResetEscalation(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err, "reset escalation")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *RunHandler) Conflicts(c *gin.Context) {
	groups, err := h.service.Conflicts(c.Request.Context())
	if err != nil {
		writeError(c, err, "list conflicts")
		return
	}
	c.JSON(http.StatusOK, groups)
}
