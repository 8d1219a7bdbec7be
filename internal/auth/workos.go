package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/workos/workos-go/v6/pkg/usermanagement"
	"github.com/workos/workos-go/v6/pkg/workos_errors"
	"gorm.io/gorm"

	"github.com/psds-microservice/mentor-queue/internal/model"
)

// WorkOSConfig — ключи WorkOS User Management.
type WorkOSConfig struct {
	APIKey   string
	ClientID string
}

// workosAPI: используемая часть usermanagement.
type workosAPI interface {
	AuthenticateWithPassword(ctx context.Context, opts usermanagement.AuthenticateWithPasswordOpts) (usermanagement.AuthenticateResponse, error)
	CreateUser(ctx context.Context, opts usermanagement.CreateUserOpts) (usermanagement.User, error)
}

type workosPackage struct{}

func (workosPackage) AuthenticateWithPassword(ctx context.Context, opts usermanagement.AuthenticateWithPasswordOpts) (usermanagement.AuthenticateResponse, error) {
	return usermanagement.AuthenticateWithPassword(ctx, opts)
}

func (workosPackage) CreateUser(ctx context.Context, opts usermanagement.CreateUserOpts) (usermanagement.User, error) {
	return usermanagement.CreateUser(ctx, opts)
}

// WorkOSProvider проверяет пароли менторов в WorkOS, а сессии выдаёт сам.
// Анонимные сессии WorkOS не участвуют.
type WorkOSProvider struct {
	cfg      WorkOSConfig
	api      workosAPI
	sessions *SessionTable
}

func NewWorkOSProvider(cfg WorkOSConfig, db *gorm.DB) *WorkOSProvider {
	usermanagement.SetAPIKey(cfg.APIKey)
	return &WorkOSProvider{cfg: cfg, api: workosPackage{}, sessions: NewSessionTable(db)}
}

func (p *WorkOSProvider) SignInAnonymously(ctx context.Context) (*model.Session, error) {
	return p.sessions.Issue(ctx, "", true)
}

func (p *WorkOSProvider) SignInWithPassword(ctx context.Context, email, secret string) (*model.Session, error) {
	resp, err := p.api.AuthenticateWithPassword(ctx, usermanagement.AuthenticateWithPasswordOpts{
		ClientID: p.cfg.ClientID,
		Email:    email,
		Password: secret,
	})
	if err != nil {
		return nil, mapWorkOSError(err, false)
	}
	return p.sessions.Issue(ctx, strings.ToLower(resp.User.Email), false)
}

func (p *WorkOSProvider) CreateAccount(ctx context.Context, email, secret string) (*model.Session, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakPassword
	}
	if _, err := p.api.CreateUser(ctx, usermanagement.CreateUserOpts{Email: email, Password: secret}); err != nil {
		return nil, mapWorkOSError(err, true)
	}
	return p.SignInWithPassword(ctx, email, secret)
}

func (p *WorkOSProvider) SignOut(ctx context.Context, sessionID string) error {
	return p.sessions.Revoke(ctx, sessionID)
}

func (p *WorkOSProvider) Lookup(ctx context.Context, sessionID string) (*model.Session, error) {
	return p.sessions.Lookup(ctx, sessionID)
}

// mapWorkOSError переводит HTTP-ошибку WorkOS в ошибку провайдера.
func mapWorkOSError(err error, creating bool) error {
	var httpErr workos_errors.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	msg := strings.ToLower(httpErr.Message)
	switch {
	case httpErr.Code == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case creating && strings.Contains(msg, "password"):
		return ErrWeakPassword
	case creating && (httpErr.Code == http.StatusConflict || httpErr.Code == http.StatusUnprocessableEntity):
		return ErrEmailInUse
	case httpErr.Code == http.StatusNotFound:
		return ErrUserNotFound
	case httpErr.Code == http.StatusBadRequest, httpErr.Code == http.StatusUnauthorized, httpErr.Code == http.StatusForbidden:
		return ErrInvalidCredential
	}
	return err
}
