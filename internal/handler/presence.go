package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/queue"
	"github.com/psds-microservice/mentor-queue/internal/service"
)

func callerSession(c *gin.Context) *model.Session {
	return auth.SessionFromContext(c.Request.Context())
}

type PresenceHandler struct {
	svc service.QueueServicer
}

func NewPresenceHandler(svc service.QueueServicer) *PresenceHandler {
	return &PresenceHandler{svc: svc}
}

func (h *PresenceHandler) Get(c *gin.Context) {
	presence, err := h.svc.Presence(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": presence, "anyOnline": queue.AnyMentorOnline(presence)})
}

type presenceRequest struct {
	// nil переключает текущее значение.
	Online *bool `json:"online"`
}

// SetMine меняет флаг ментора текущей сессии.
func (h *PresenceHandler) SetMine(c *gin.Context) {
	var req presenceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
	}
	ctx := c.Request.Context()
	if req.Online == nil {
		online, err := h.svc.TogglePresence(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"online": online})
		return
	}
	if err := h.svc.SetMyPresence(ctx, *req.Online); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": *req.Online})
}

func (h *PresenceHandler) Mentors(c *gin.Context) {
	mentors, err := h.svc.Mentors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentors": mentors})
}
