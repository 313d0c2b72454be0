package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DATN-2025/exam-service/internal/services"
	"github.com/DATN-2025/exam-service/internal/utils"
	"github.com/DATN-2025/exam-service/internal/validator"
)

// Uploaded roster files are capped before excelize parses them
const maxUploadSize = 5 << 20 // 5 MiB

type WhitelistHandler struct {
	BaseHandler
	whitelistService services.WhitelistService
	validator        *validator.Validator
}

func NewWhitelistHandler(
	whitelistService services.WhitelistService,
	validator *validator.Validator,
	logger utils.Logger,
) *WhitelistHandler {
	return &WhitelistHandler{
		BaseHandler:      NewBaseHandler(logger),
		whitelistService: whitelistService,
		validator:        validator,
	}
}

// ImportWhitelist imports a roster spreadsheet
// @Summary Import whitelist from xlsx
// @Description Reads an uploaded spreadsheet and assigns the listed emails to the session
// @Tags whitelist
// @Accept multipart/form-data
// @Produce json
// @Param sessionId path uint true "Session ID"
// @Param file formData file true "XLSX roster file"
// @Success 200 {object} services.WhitelistImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{sessionId}/whitelist/import [post]
func (h *WhitelistHandler) ImportWhitelist(c *gin.Context) {
	sessionID := h.parseIDParam(c, "sessionId")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Importing session whitelist", "session_id", sessionID)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File exceeds the upload size limit",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read file upload",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	result, err := h.whitelistService.ImportXLSX(c.Request.Context(), sessionID, file, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AssignStudents assigns emails to the session whitelist
// @Summary Assign students
// @Description Adds a list of emails to the session whitelist
// @Tags whitelist
// @Accept json
// @Produce json
// @Param sessionId path uint true "Session ID"
// @Param request body services.AssignStudentsRequest true "Emails to assign"
// @Success 200 {object} services.WhitelistImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{sessionId}/whitelist [post]
func (h *WhitelistHandler) AssignStudents(c *gin.Context) {
	sessionID := h.parseIDParam(c, "sessionId")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Assigning students to session", "session_id", sessionID)

	var req services.AssignStudentsRequest
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

	result, err := h.whitelistService.Assign(c.Request.Context(), sessionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListWhitelist returns the session roster
// @Summary List whitelist
// @Description Lists the students assigned to the session
// @Tags whitelist
// @Produce json
// @Param sessionId path uint true "Session ID"
// @Success 200 {array} models.SessionStudent
// @Failure 403 {object} ErrorResponse
// @Router /sessions/{sessionId}/whitelist [get]
func (h *WhitelistHandler) ListWhitelist(c *gin.Context) {
	sessionID := h.parseIDParam(c, "sessionId")
	if sessionID == 0 {
		return
	}

	h.LogRequest(c, "Listing session whitelist", "session_id", sessionID)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	students, err := h.whitelistService.List(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// RemoveStudent removes one email from the whitelist
// @Summary Remove student
// @Description Removes a student email from the session whitelist
// @Tags whitelist
// @Produce json
// @Param sessionId path uint true "Session ID"
// @Param email path string true "Student email"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{sessionId}/whitelist/{email} [delete]
func (h *WhitelistHandler) RemoveStudent(c *gin.Context) {
	sessionID := h.parseIDParam(c, "sessionId")
	if sessionID == 0 {
		return
	}
	email := c.Param("email")

	h.LogRequest(c, "Removing student from whitelist", "session_id", sessionID)

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return
	}

	if err := h.whitelistService.Remove(c.Request.Context(), sessionID, email, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Student removed"})
}
