package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/mentor"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Authenticator реализует вход ментора: нормализация логина, вход по паролю
// и однократное создание учётной записи при первом входе.
type Authenticator struct {
	provider Provider
	dir      *mentor.Directory
	log      *logrus.Entry
}

func NewAuthenticator(provider Provider, dir *mentor.Directory, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{provider: provider, dir: dir, log: logging.Component(log, "auth")}
}

func (a *Authenticator) Provider() Provider { return a.provider }

// needsProvisioning сообщает, стоит ли после такой ошибки входа создать учётную запись.
func needsProvisioning(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredential) || errors.Is(err, ErrWrongPassword)
}

// Login входит под логином или адресом ментора.
func (a *Authenticator) Login(ctx context.Context, identifier, secret string) (*model.Session, error) {
	if identifier == "" || secret == "" {
		return nil, errs.Invalid("credentials", "login and password are required")
	}
	email := a.dir.NormalizeLogin(identifier)

	s, err := a.provider.SignInWithPassword(ctx, email, secret)
	if err == nil {
		return s, nil
	}
	if errors.Is(err, ErrTooManyRequests) {
		return nil, errs.ErrTooManyAttempts
	}
	if !needsProvisioning(err) {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	a.log.WithField("email", email).Info("auth: provisioning account on first login")
	s, err = a.provider.CreateAccount(ctx, email, secret)
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, ErrEmailInUse):
		return nil, errs.ErrWrongCredentials
	case errors.Is(err, ErrWeakPassword):
		return nil, errs.ErrWeakSecret
	case errors.Is(err, ErrTooManyRequests):
		return nil, errs.ErrTooManyAttempts
	default:
		a.log.WithError(err).WithField("email", email).Warn("auth: create account")
		return nil, errs.ErrProvisioningFailed
	}
}

// Anonymous выдаёт анонимную сессию.
func (a *Authenticator) Anonymous(ctx context.Context) (*model.Session, error) {
	return a.provider.SignInAnonymously(ctx)
}

func (a *Authenticator) Logout(ctx context.Context, sessionID string) error {
	return a.provider.SignOut(ctx, sessionID)
}

func (a *Authenticator) Lookup(ctx context.Context, sessionID string) (*model.Session, error) {
	return a.provider.Lookup(ctx, sessionID)
}
