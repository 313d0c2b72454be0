package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DATN-2025/exam-service/internal/services"
	"github.com/DATN-2025/exam-service/internal/utils"
	"github.com/DATN-2025/exam-service/internal/validator"
)

type JoinHandler struct {
	BaseHandler
	joinService services.JoinService
	validator   *validator.Validator
}

func NewJoinHandler(
	joinService services.JoinService,
	validator *validator.Validator,
	logger utils.Logger,
) *JoinHandler {
	return &JoinHandler{
		BaseHandler: NewBaseHandler(logger),
		joinService: joinService,
		validator:   validator,
	}
}

// GetSessionInfo returns the join screen metadata for a session link
// @Summary Get session info by join token
// @Description Returns the join screen metadata of the session behind a join link
// @Tags join
// @Produce json
// @Param joinToken path string true "Join token from the session link"
// @Param email query string false "Guest email, enables eligibility and remaining-attempt info"
// @Success 200 {object} services.SessionInfoResponse
// @Failure 404 {object} ErrorResponse
// @Router /join/{joinToken} [get]
func (h *JoinHandler) GetSessionInfo(c *gin.Context) {
	joinToken := c.Param("joinToken")
	h.LogRequest(c, "Getting session info by join token")

	info, err := h.joinService.GetSessionInfo(c.Request.Context(), joinToken, c.Query("email"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// JoinByCode resolves a session by its human-typable code
// @Summary Join by session code
// @Description Returns the join screen metadata of the session with the given code
// @Tags join
// @Accept json
// @Produce json
// @Param request body services.JoinByCodeRequest true "Session code and optional email"
// @Success 200 {object} services.SessionInfoResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /join/by-code [post]
func (h *JoinHandler) JoinByCode(c *gin.Context) {
	h.LogRequest(c, "Joining session by code")

	var req services.JoinByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	info, err := h.joinService.JoinByCode(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// RequestOtp sends an access code to the guest's email
// @Summary Request OTP
// @Description Issues a one-time code and mails it to the guest
// @Tags join
// @Accept json
// @Produce json
// @Param request body services.RequestOtpRequest true "Session and email"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /join/otp/request [post]
func (h *JoinHandler) RequestOtp(c *gin.Context) {
	h.LogRequest(c, "Requesting OTP")

	var req services.RequestOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.joinService.RequestOtp(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent"})
}

// ResendOtp resends the access code once the resend window opened
// @Summary Resend OTP
// @Description Issues a fresh one-time code, throttled by the resend window
// @Tags join
// @Accept json
// @Produce json
// @Param request body services.ResendOtpRequest true "Session and email"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /join/otp/resend [post]
func (h *JoinHandler) ResendOtp(c *gin.Context) {
	h.LogRequest(c, "Resending OTP")

	var req services.ResendOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.joinService.ResendOtp(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP resent"})
}

// VerifyOtp exchanges a valid code for a guest session token
// @Summary Verify OTP
// @Description Verifies the one-time code and issues a guest session token
// @Tags join
// @Accept json
// @Produce json
// @Param request body services.VerifyOtpRequest true "Session, email and code"
// @Success 200 {object} services.SessionTokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /join/otp/verify [post]
func (h *JoinHandler) VerifyOtp(c *gin.Context) {
	h.LogRequest(c, "Verifying OTP")

	var req services.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	token, err := h.joinService.VerifyOtp(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// ValidateToken checks the guest session token from the header
// @Summary Validate session token
// @Description Returns the session and email behind a guest session token
// @Tags join
// @Produce json
// @Success 200 {object} services.TokenValidationResponse
// @Failure 401 {object} ErrorResponse
// @Router /join/token/validate [get]
func (h *JoinHandler) ValidateToken(c *gin.Context) {
	token := c.GetHeader(SessionTokenHeader)
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: services.ErrSessionTokenRequired.Error(),
		})
		return
	}

	validation, err := h.joinService.ValidateSessionToken(c.Request.Context(), token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, validation)
}
