package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Settings — настройки уведомлений (queue.Facade).
type Settings interface {
	IsSystemOnline() bool
	RegisterTelegramID(ctx context.Context, chatID, name string) error
	SaveEmailConfig(ctx context.Context, cfg model.EmailConfig) error
	SendTestNotification(ctx context.Context, chatID string) error
	SendTestEmail(ctx context.Context, cfg model.EmailConfig) error
	DiscoverChatID(ctx context.Context) (string, error)
}

type SettingsHandler struct {
	settings Settings
}

func NewSettingsHandler(settings Settings) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// System сообщает, подключено ли удалённое хранилище.
func (h *SettingsHandler) System(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.settings.IsSystemOnline()})
}

type telegramRequest struct {
	Name string `json:"name"`
}

func (h *SettingsHandler) RegisterTelegram(c *gin.Context) {
	var req telegramRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid body")
			return
		}
	}
	if err := h.settings.RegisterTelegramID(c.Request.Context(), c.Param("chatID"), req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type emailConfigRequest struct {
	ServiceID  string `json:"serviceId" binding:"required"`
	TemplateID string `json:"templateId" binding:"required"`
	PublicKey  string `json:"publicKey" binding:"required"`
}

func (r emailConfigRequest) config() model.EmailConfig {
	return model.EmailConfig{ServiceID: r.ServiceID, TemplateID: r.TemplateID, PublicKey: r.PublicKey}
}

func (h *SettingsHandler) SaveEmail(c *gin.Context) {
	var req emailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "serviceId, templateId and publicKey are required")
		return
	}
	if err := h.settings.SaveEmailConfig(c.Request.Context(), req.config()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type testTelegramRequest struct {
	ChatID string `json:"chatId" binding:"required"`
}

func (h *SettingsHandler) TestTelegram(c *gin.Context) {
	var req testTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "chatId is required")
		return
	}
	if err := h.settings.SendTestNotification(c.Request.Context(), req.ChatID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (h *SettingsHandler) TestEmail(c *gin.Context) {
	var req emailConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "serviceId, templateId and publicKey are required")
		return
	}
	if err := h.settings.SendTestEmail(c.Request.Context(), req.config()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

func (h *SettingsHandler) DiscoverChat(c *gin.Context) {
	id, err := h.settings.DiscoverChatID(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatId": id})
}
