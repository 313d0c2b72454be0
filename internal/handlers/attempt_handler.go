package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
	"github.com/DATN-2025/exam-service/internal/services"
	"github.com/DATN-2025/exam-service/internal/utils"
	"github.com/DATN-2025/exam-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// ===== GUEST ENDPOINTS =====

// StartAttempt starts a new exam attempt
// @Summary Start exam attempt
// @Description Starts a new attempt, or returns the one already in progress. The session token comes from the X-Session-Token header or the session_token body field.
// @Tags exam-attempt
// @Accept json
// @Produce json
// @Param request body services.StartAttemptRequest true "Start attempt data"
// @Success 201 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /exam-attempt/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting exam attempt")

	// BindBodyWith re-reads the body the token middleware may have consumed
	var req services.StartAttemptRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	guest, ok := GetGuestFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: services.ErrSessionTokenRequired.Error(),
		})
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, guest, c.ClientIP())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// SubmitAttempt submits the attempt with all answers
// @Summary Submit exam attempt
// @Description Submits the attempt, runs auto-grading and returns the result
// @Tags exam-attempt
// @Accept json
// @Produce json
// @Param attemptId path uint true "Attempt ID"
// @Param request body services.SubmitAttemptRequest true "Submitted answers"
// @Success 200 {object} services.AttemptResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /exam-attempt/{attemptId} [put]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attemptId")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Submitting exam attempt", "attempt_id", attemptID)

	var req services.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	guest, ok := GetGuestFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: services.ErrSessionTokenRequired.Error(),
		})
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), attemptID, &req, guest)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetCurrentAttempt returns the attempt currently in progress
// @Summary Get current attempt
// @Description Returns the guest's attempt in progress for the session
// @Tags exam-attempt
// @Produce json
// @Param sessionId path uint true "Session ID"
// @Success 200 {object} services.AttemptResponse
// @Failure 404 {object} ErrorResponse
// @Router /exam-attempt/current/{sessionId} [get]
func (h *AttemptHandler) GetCurrentAttempt(c *gin.Context) {
	sessionID := h.parseIDParam(c, "sessionId")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Getting current attempt", "session_id", sessionID)

	guest, ok := GetGuestFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: services.ErrSessionTokenRequired.Error(),
		})
		return
	}

	attempt, err := h.attemptService.GetCurrent(c.Request.Context(), sessionID, guest)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ===== STAFF ENDPOINTS =====

// ListAttempts lists the attempts of a session
// @Summary List session attempts
// @Description Lists attempts of a session with filtering and pagination
// @Tags exam-attempt
// @Produce json
// @Param sessionId path uint true "Session ID"
// @Param status query string false "Filter by attempt status"
// @Param student_email query string false "Filter by student email"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} services.AttemptListResponse
// @Failure 403 {object} ErrorResponse
// @Router /exam-attempt/session/{sessionId} [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	sessionID := h.parseIDParam(c, "sessionId")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Listing session attempts", "session_id", sessionID)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	filters := parseAttemptFilters(c)
	result, err := h.attemptService.ListBySession(c.Request.Context(), sessionID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSessionStats returns aggregate attempt statistics of a session
// @Summary Get session attempt stats
// @Description Returns counts, average score and grading backlog of a session
// @Tags exam-attempt
// @Produce json
// @Param sessionId path uint true "Session ID"
// @Success 200 {object} repositories.SessionAttemptStats
// @Failure 403 {object} ErrorResponse
// @Router /exam-attempt/stats/{sessionId} [get]
func (h *AttemptHandler) GetSessionStats(c *gin.Context) {
	sessionID := h.parseIDParam(c, "sessionId")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Getting session attempt stats", "session_id", sessionID)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	stats, err := h.attemptService.GetSessionStats(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	filters := repositories.AttemptFilters{
		SortBy:    c.DefaultQuery("sort_by", "started_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if status := c.Query("status"); status != "" {
		s := models.AttemptStatus(status)
		filters.Status = &s
	}
	if email := c.Query("student_email"); email != "" {
		filters.StudentEmail = &email
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	filters.Limit = size
	filters.Offset = (page - 1) * size

	return filters
}
