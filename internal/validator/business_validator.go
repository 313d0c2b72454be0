package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/DATN-2025/exam-service/internal/utils"
)

// Aliases so callers only deal with one error type
type ValidationError = utils.ValidationError
type ValidationErrors = utils.ValidationErrors

var sessionCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{3,15}$`)
var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates a struct against business rules
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	var errors ValidationErrors

	err := bv.validate.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			errors = append(errors, ValidationError{
				Field:   err.Field(),
				Message: bv.getErrorMessage(err),
				Value:   err.Value(),
				Rule:    err.Tag(),
			})
		}
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Session join code format (uppercase alphanumeric, 4-16 characters)
	bv.validate.RegisterValidation("session_code", func(fl validator.FieldLevel) bool {
		return sessionCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})

	// OTP is exactly 6 digits
	bv.validate.RegisterValidation("otp_code", func(fl validator.FieldLevel) bool {
		return otpPattern.MatchString(fl.Field().String())
	})
}

// getErrorMessage returns user-friendly error messages
func (bv *BusinessValidator) getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "session_code":
		return "must be 4-16 uppercase letters, digits or dashes"
	case "otp_code":
		return "must be a 6-digit code"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
