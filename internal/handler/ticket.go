package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/queue"
	"github.com/psds-microservice/mentor-queue/internal/service"
)

type TicketHandler struct {
	svc service.QueueServicer
}

func NewTicketHandler(svc service.QueueServicer) *TicketHandler {
	return &TicketHandler{svc: svc}
}

type createTicketRequest struct {
	ID           string `json:"id"`
	StudentName  string `json:"studentName" binding:"required"`
	Category     string `json:"category"`
	Details      string `json:"details" binding:"required"`
	Availability string `json:"availability" binding:"required"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "studentName, details and availability are required")
		return
	}
	t, err := h.svc.CreateTicket(c.Request.Context(), service.CreateTicketInput{
		ID:           req.ID,
		StudentName:  req.StudentName,
		Category:     req.Category,
		Details:      req.Details,
		Availability: req.Availability,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

type ticketsResponse struct {
	Tickets []model.Ticket `json:"tickets"`
	queue.Views
	// закрыто ментором текущей сессии
	ResolvedByMe int `json:"resolvedByMe"`
}

// List возвращает весь список (новые первыми) и его разбивку на очередь и историю.
func (h *TicketHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := h.svc.Tickets(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := ticketsResponse{Tickets: items, Views: queue.SplitViews(items)}
	if p := h.svc.MentorProfile(callerSession(c)); p != nil {
		resp.ResolvedByMe = queue.ResolvedBy(items, p.Name)
	}
	c.JSON(http.StatusOK, resp)
}

type availabilityRequest struct {
	Availability string `json:"availability" binding:"required"`
}

func (h *TicketHandler) EditAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "availability is required")
		return
	}
	if err := h.svc.EditAvailability(c.Request.Context(), c.Param("id"), req.Availability); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TicketHandler) Discard(c *gin.Context) {
	if err := h.svc.SelfDiscard(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status model.TicketStatus `json:"status" binding:"required"`
}

func (h *TicketHandler) ChangeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	if err := h.svc.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TicketHandler) ClearHistory(c *gin.Context) {
	n, err := h.svc.ClearHistory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// Categories отдаёт темы для формы заявки.
func (h *TicketHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": service.Categories})
}
