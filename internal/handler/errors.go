package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/mentor-queue/internal/errs"
)

// statusFor переводит ошибку в HTTP-статус.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrBackendOffline), errors.Is(err, errs.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, errs.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	}
	switch errs.Classify(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindPermission:
		return http.StatusForbidden
	case errs.KindCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": errs.Message(err), "kind": errs.Classify(err).String()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": errs.KindValidation.String()})
}
