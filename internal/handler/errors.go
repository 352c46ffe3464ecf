package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/fintrackapp/auth-service/internal/dto"
	"github.com/fintrackapp/auth-service/internal/service"
)

// writeServiceError maps service errors onto HTTP responses. All credential
// and token failures share one 401 body so the response reveals nothing about
// which check failed; only the lock and rate limit disclose retry timing.
func writeServiceError(c *gin.Context, err error) {
	var locked *service.AccountLockedError
	if errors.As(err, &locked) {
		retry := retryAfterSeconds(locked.RetryAfter)
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusLocked, dto.ErrorResponse{
			Error:      "Account locked",
			Message:    "Too many failed login attempts, try again later",
			RetryAfter: retry,
		})
		return
	}

	var limited *service.RateLimitError
	if errors.As(err, &limited) {
		retry := retryAfterSeconds(limited.RetryAfter)
		c.Header("Retry-After", strconv.Itoa(retry))
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:      "Too Many Requests",
			Message:    "Rate limit exceeded, try again later",
			RetryAfter: retry,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrTokenReuseDetected):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Invalid credentials or token",
		})
	case errors.Is(err, service.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: "Email address is not verified",
		})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "Conflict",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: "Session not found",
		})
	case errors.Is(err, service.ErrCannotRevokeCurrentSession):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "Conflict",
			Message: "Use logout to end the current session",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Something went wrong",
		})
	}
}

// retryAfterSeconds rounds up so the client never retries early.
func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
