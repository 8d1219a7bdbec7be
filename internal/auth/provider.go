// Package auth выдаёт сессии клиентов: анонимные для студентов и по паролю для менторов.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Ошибки провайдера. Authenticator переводит их в ошибки errs.
var (
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrInvalidCredential  = errors.New("auth: invalid credential")
	ErrWrongPassword      = errors.New("auth: wrong password")
	ErrEmailInUse         = errors.New("auth: email already in use")
	ErrWeakPassword       = errors.New("auth: weak password")
	ErrTooManyRequests    = errors.New("auth: too many requests")
	ErrSessionNotFound    = errors.New("auth: session not found")
	ErrProviderNotEnabled = errors.New("auth: provider not configured")
)

// MinSecretLength — минимальная длина пароля.
const MinSecretLength = 6

// Provider выдаёт и проверяет сессии.
type Provider interface {
	SignInAnonymously(ctx context.Context) (*model.Session, error)
	SignInWithPassword(ctx context.Context, email, secret string) (*model.Session, error)
	CreateAccount(ctx context.Context, email, secret string) (*model.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	Lookup(ctx context.Context, sessionID string) (*model.Session, error)
}

// SessionRecord хранит выданную сессию.
type SessionRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Email     string `gorm:"type:varchar(255);index"`
	Anonymous bool   `gorm:"not null"`
	CreatedAt time.Time
}

func (SessionRecord) TableName() string { return "auth_sessions" }

func (r SessionRecord) Session() *model.Session {
	return &model.Session{ID: r.ID, Email: r.Email, IsAnonymous: r.Anonymous}
}

// SessionTable хранит выданные сессии в базе очереди.
type SessionTable struct {
	db *gorm.DB
}

func NewSessionTable(db *gorm.DB) *SessionTable {
	return &SessionTable{db: db}
}

func (t *SessionTable) Issue(ctx context.Context, email string, anonymous bool) (*model.Session, error) {
	rec := SessionRecord{ID: uuid.NewString(), Email: email, Anonymous: anonymous, CreatedAt: time.Now()}
	if err := t.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return rec.Session(), nil
}

func (t *SessionTable) Lookup(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	var rec SessionRecord
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return rec.Session(), nil
}

func (t *SessionTable) Revoke(ctx context.Context, id string) error {
	return t.db.WithContext(ctx).Where("id = ?", id).Delete(&SessionRecord{}).Error
}
