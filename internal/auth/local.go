package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/psds-microservice/mentor-queue/internal/model"
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// Account — учётная запись для входа по паролю.
type Account struct {
	Email          string `gorm:"primaryKey;type:varchar(255)"`
	SecretHash     string `gorm:"type:varchar(255);not null"`
	FailedAttempts int    `gorm:"not null;default:0"`
	LockedUntil    int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (Account) TableName() string { return "auth_accounts" }

// LocalProvider хранит учётные записи с bcrypt-хешами в базе очереди.
// После maxFailedAttempts неудачных входов учётная запись блокируется на lockoutDuration.
type LocalProvider struct {
	db       *gorm.DB
	sessions *SessionTable
	now      func() time.Time
}

func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{db: db, sessions: NewSessionTable(db), now: time.Now}
}

// AutoMigrate создаёт таблицы провайдера (для sqlite; Postgres мигрирует goose).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{}, &SessionRecord{})
}

func (p *LocalProvider) SignInAnonymously(ctx context.Context) (*model.Session, error) {
	return p.sessions.Issue(ctx, "", true)
}

func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, secret string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var acc Account
	if err := p.db.WithContext(ctx).Where("email = ?", email).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	now := p.now()
	if acc.LockedUntil > now.UnixMilli() {
		return nil, ErrTooManyRequests
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.SecretHash), []byte(secret)); err != nil {
		acc.FailedAttempts++
		changes := map[string]interface{}{"failed_attempts": acc.FailedAttempts}
		if acc.FailedAttempts >= maxFailedAttempts {
			changes["failed_attempts"] = 0
			changes["locked_until"] = now.Add(lockoutDuration).UnixMilli()
		}
		if err := p.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email).Updates(changes).Error; err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredential
	}
	if acc.FailedAttempts > 0 || acc.LockedUntil > 0 {
		err := p.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email).
			Updates(map[string]interface{}{"failed_attempts": 0, "locked_until": 0}).Error
		if err != nil {
			return nil, err
		}
	}
	return p.sessions.Issue(ctx, email, false)
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, secret string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(secret) < MinSecretLength {
		return nil, ErrWeakPassword
	}
	var count int64
	if err := p.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailInUse
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acc := Account{Email: email, SecretHash: string(hash), CreatedAt: p.now()}
	if err := p.db.WithContext(ctx).Create(&acc).Error; err != nil {
		return nil, err
	}
	return p.sessions.Issue(ctx, email, false)
}

func (p *LocalProvider) SignOut(ctx context.Context, sessionID string) error {
	return p.sessions.Revoke(ctx, sessionID)
}

func (p *LocalProvider) Lookup(ctx context.Context, sessionID string) (*model.Session, error) {
	return p.sessions.Lookup(ctx, sessionID)
}
