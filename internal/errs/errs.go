// Package errs содержит sentinel-ошибки сервиса и их классификацию для клиентов.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrPermissionDenied  = errors.New("PERMISSION_DENIED: write rejected by backend rules")
	ErrValidation        = errors.New("validation failed")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrBackendOffline    = errors.New("backend offline")
	ErrNotConfigured     = errors.New("not configured")

	ErrWrongCredentials   = errors.New("wrong password")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
	ErrWeakSecret         = errors.New("password must be at least 6 characters")
	ErrNeedsProvisioning  = errors.New("account needs provisioning")
	ErrProvisioningFailed = errors.New("access error, check your credentials")
)

// Kind — категория ошибки, по которой клиент выбирает сообщение.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindPermission
	KindCredentials
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindCredentials:
		return "credentials"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// ValidationError описывает отклонённое поле запроса.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid возвращает ошибку валидации для поля.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Classify относит ошибку к одной из категорий. Всё, что не распознано и не nil,
// считается ошибкой соединения с хранилищем.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrPermissionDenied):
		return KindPermission
	case strings.Contains(strings.ToUpper(err.Error()), "PERMISSION_DENIED"):
		return KindPermission
	case errors.Is(err, ErrTicketNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrIllegalTransition):
		return KindValidation
	case errors.Is(err, ErrWrongCredentials), errors.Is(err, ErrTooManyAttempts),
		errors.Is(err, ErrWeakSecret), errors.Is(err, ErrNeedsProvisioning),
		errors.Is(err, ErrProvisioningFailed):
		return KindCredentials
	default:
		return KindConnection
	}
}

// Message возвращает текст для пользователя.
func Message(err error) string {
	switch Classify(err) {
	case KindUnknown:
		return ""
	case KindPermission:
		return "access denied: check backend rules"
	case KindConnection:
		return fmt.Sprintf("connection error: %v", err)
	default:
		return err.Error()
	}
}
