package services

import (
	"errors"
	"fmt"

	"github.com/DATN-2025/exam-service/internal/utils"
)

// Use validation error types from utils
type ValidationError = utils.ValidationError
type ValidationErrors = utils.ValidationErrors

// ===== SENTINEL ERRORS =====

var (
	// Session errors
	ErrSessionNotFound    = errors.New("exam session not found")
	ErrSessionClosed      = errors.New("exam session is closed")
	ErrSessionNotYetOpen  = errors.New("exam session has not started yet")
	ErrSessionEnded       = errors.New("exam session has ended")
	ErrSessionNoQuestions = errors.New("exam session has no questions")

	// OTP errors
	ErrOTPStillValid     = errors.New("an OTP was already sent and is still valid")
	ErrOTPResendTooEarly = errors.New("OTP was resent too recently")
	ErrOTPInvalid        = errors.New("invalid or expired OTP")

	// Guest token errors
	ErrSessionTokenRequired = errors.New("session token is required")
	ErrSessionTokenInvalid  = errors.New("invalid or expired session token")
	ErrSessionTokenMismatch = errors.New("session token does not belong to this session")

	// Join eligibility errors
	ErrUserNotStudent     = errors.New("email does not belong to a student account")
	ErrStudentNotAssigned = errors.New("student is not assigned to this session")
	ErrTeacherCannotJoin  = errors.New("teacher accounts cannot join as guests")

	// Attempt errors
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAccessDenied     = errors.New("attempt does not belong to this guest")
	ErrAttemptAlreadySubmitted = errors.New("attempt has already been submitted")
	ErrAttemptLimitReached     = errors.New("attempt limit reached for this session")
	ErrAttemptExpired          = errors.New("attempt deadline has passed")
	ErrNoActiveAttempt         = errors.New("no attempt in progress")
	ErrInvalidAttemptQuestion  = errors.New("answer references a question outside this attempt")

	// Grading errors
	ErrGradingNotAllowed = errors.New("question type is graded automatically")
	ErrAttemptNotGraded  = errors.New("attempt has not been graded yet")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Generic errors
	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// ===== ERROR TYPES =====

// BusinessRuleError wraps a sentinel with request context for logging
type BusinessRuleError struct {
	Err     error
	Rule    string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return e.Err.Error()
}

func (e *BusinessRuleError) Unwrap() error {
	return e.Err
}

func NewBusinessRuleError(err error, rule string, ctx map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Err: err, Rule: rule, Context: ctx}
}

// PermissionError describes a denied action on a resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// WaitError carries the number of seconds the caller has to wait before
// retrying. Used by the OTP throttles.
type WaitError struct {
	Err     error
	Seconds int
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("%s (retry in %d seconds)", e.Err.Error(), e.Seconds)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

func NewWaitError(err error, seconds int) *WaitError {
	return &WaitError{Err: err, Seconds: seconds}
}

// NewValidationError builds a single-field validation error list
func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{
		Field:   field,
		Message: message,
		Value:   value,
	}}
}
