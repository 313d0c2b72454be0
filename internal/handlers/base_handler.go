package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/services"
	"github.com/DATN-2025/exam-service/internal/utils"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse

// BaseHandler carries the pieces every handler needs
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetString("request_id"))
	h.logger.Info(msg, args...)
}

// parseIDParam parses a numeric path parameter, writing the 400 itself.
// Returns 0 when parsing failed.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// handleServiceError translates service errors into HTTP responses. Sentinels
// map to stable status codes so clients can branch on them.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})
		return
	}

	var waitErr *services.WaitError
	if errors.As(err, &waitErr) {
		c.Header("Retry-After", strconv.Itoa(waitErr.Seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message":     waitErr.Err.Error(),
			"retry_after": waitErr.Seconds,
		})
		return
	}

	var permErr *services.PermissionError
	if errors.As(err, &permErr) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Insufficient permissions",
			Details: permErr.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrOTPInvalid),
		errors.Is(err, services.ErrSessionTokenRequired),
		errors.Is(err, services.ErrSessionTokenInvalid),
		errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrSessionTokenMismatch),
		errors.Is(err, services.ErrAttemptAccessDenied),
		errors.Is(err, services.ErrUserNotStudent),
		errors.Is(err, services.ErrStudentNotAssigned),
		errors.Is(err, services.ErrTeacherCannotJoin),
		errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrNoActiveAttempt),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrAttemptAlreadySubmitted),
		errors.Is(err, services.ErrAttemptLimitReached),
		errors.Is(err, services.ErrSessionClosed),
		errors.Is(err, services.ErrSessionNotYetOpen),
		errors.Is(err, services.ErrSessionNoQuestions),
		errors.Is(err, services.ErrAttemptNotGraded):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrAttemptExpired),
		errors.Is(err, services.ErrSessionEnded):
		c.JSON(http.StatusGone, ErrorResponse{Message: err.Error()})

	default:
		h.logger.Error("Unhandled service error",
			"error", err,
			"path", c.Request.URL.Path,
			"request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// ===== GUEST CONTEXT =====

const (
	guestSessionIDKey = "guest_session_id"
	guestEmailKey     = "guest_email"
)

// GetGuestFromContext returns the guest identity set by the session token
// middleware.
func GetGuestFromContext(c *gin.Context) (services.GuestAccess, bool) {
	sessionID, ok := c.Get(guestSessionIDKey)
	if !ok {
		return services.GuestAccess{}, false
	}
	email, ok := c.Get(guestEmailKey)
	if !ok {
		return services.GuestAccess{}, false
	}
	return services.GuestAccess{
		SessionID: sessionID.(uint),
		Email:     email.(string),
	}, true
}
