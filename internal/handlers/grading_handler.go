package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DATN-2025/exam-service/internal/services"
	"github.com/DATN-2025/exam-service/internal/utils"
	"github.com/DATN-2025/exam-service/internal/validator"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	validator      *validator.Validator
}

func NewGradingHandler(
	gradingService services.GradingService,
	validator *validator.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		validator:      validator,
	}
}

// GetAttemptForGrading returns an attempt with correct answers for review
// @Summary Get attempt for grading
// @Description Returns the frozen questions, correct answers and scores of a submitted attempt
// @Tags grading
// @Produce json
// @Param attemptId path uint true "Attempt ID"
// @Success 200 {object} services.AttemptGradingResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exam-attempt/{attemptId}/grading [get]
func (h *GradingHandler) GetAttemptForGrading(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attemptId")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Getting attempt for grading", "attempt_id", attemptID)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	result, err := h.gradingService.GetForGrading(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApplyManualGrade records manual scores for essay questions
// @Summary Apply manual grades
// @Description Scores essay questions of a submitted attempt and recomputes the total
// @Tags grading
// @Accept json
// @Produce json
// @Param attemptId path uint true "Attempt ID"
// @Param request body services.ManualGradeRequest true "Per-question grades"
// @Success 200 {object} services.AttemptGradingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /exam-attempt/{attemptId}/grading [post]
func (h *GradingHandler) ApplyManualGrade(c *gin.Context) {
	attemptID := h.parseIDParam(c, "attemptId")
	if attemptID == 0 {
		return
	}

	h.LogRequest(c, "Applying manual grades", "attempt_id", attemptID)

	var req services.ManualGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	result, err := h.gradingService.ApplyManualGrade(c.Request.Context(), attemptID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
