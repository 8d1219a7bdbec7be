package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/mentor"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// SessionHeader — заголовок с id сессии клиента.
const SessionHeader = "X-Session-ID"

// Sessions — выдача и проверка сессий (auth.Authenticator).
type Sessions interface {
	Anonymous(ctx context.Context) (*model.Session, error)
	Login(ctx context.Context, identifier, secret string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Lookup(ctx context.Context, sessionID string) (*model.Session, error)
}

// ProfileResolver сопоставляет сессию с профилем ментора.
type ProfileResolver interface {
	MentorProfile(s *model.Session) *mentor.Profile
}

// WithSession кладёт в контекст запроса сессию из заголовка. Неизвестный id
// игнорируется: запрос выполняется без сессии.
func WithSession(sessions Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(SessionHeader); id != "" {
			if s, err := sessions.Lookup(c.Request.Context(), id); err == nil {
				c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), s))
			}
		}
		c.Next()
	}
}

type SessionHandler struct {
	sessions Sessions
	profiles ProfileResolver
	log      *logrus.Entry
}

func NewSessionHandler(sessions Sessions, profiles ProfileResolver, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{sessions: sessions, profiles: profiles, log: logging.Component(log, "http-session")}
}

type sessionResponse struct {
	Session *model.Session  `json:"session"`
	Mentor  *mentor.Profile `json:"mentor"`
}

func (h *SessionHandler) respond(c *gin.Context, status int, s *model.Session) {
	c.JSON(status, sessionResponse{Session: s, Mentor: h.profiles.MentorProfile(s)})
}

// Current возвращает сессию из заголовка.
func (h *SessionHandler) Current(c *gin.Context) {
	s := auth.SessionFromContext(c.Request.Context())
	if s == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}
	h.respond(c, http.StatusOK, s)
}

// Anonymous открывает анонимную сессию студента.
func (h *SessionHandler) Anonymous(c *gin.Context) {
	if s := auth.SessionFromContext(c.Request.Context()); s != nil {
		h.respond(c, http.StatusOK, s)
		return
	}
	s, err := h.sessions.Anonymous(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, s)
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// Login открывает сессию ментора; анонимная сессия из заголовка закрывается.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "identifier and secret are required")
		return
	}
	ctx := c.Request.Context()
	s, err := h.sessions.Login(ctx, req.Identifier, req.Secret)
	if err != nil {
		respondError(c, err)
		return
	}
	if prev := auth.SessionFromContext(ctx); prev != nil && prev.IsAnonymous {
		if err := h.sessions.Logout(ctx, prev.ID); err != nil {
			h.log.WithError(err).WithField("session_id", prev.ID).Warn("session: drop anonymous session")
		}
	}
	h.respond(c, http.StatusOK, s)
}

// Logout закрывает сессию и сразу выдаёт новую анонимную.
func (h *SessionHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if prev := auth.SessionFromContext(ctx); prev != nil {
		if err := h.sessions.Logout(ctx, prev.ID); err != nil {
			respondError(c, err)
			return
		}
	}
	s, err := h.sessions.Anonymous(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, s)
}
