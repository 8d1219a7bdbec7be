package auth

import (
	"context"

	"github.com/psds-microservice/mentor-queue/internal/model"
)

type sessionKey struct{}

// WithSession кладёт сессию вызывающего в контекст.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext возвращает сессию из контекста или nil.
func SessionFromContext(ctx context.Context) *model.Session {
	s, _ := ctx.Value(sessionKey{}).(*model.Session)
	return s
}
