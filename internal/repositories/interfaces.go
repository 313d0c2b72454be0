package repositories

import (
	"time"

	"github.com/DATN-2025/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status     *models.SessionStatus `json:"status"`
	AccessMode *models.AccessMode    `json:"access_mode"`
	CreatedBy  *string               `json:"created_by"`
	DateFrom   *time.Time            `json:"date_from"`
	DateTo     *time.Time            `json:"date_to"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
	SortBy     string                `json:"sort_by"`    // "created_at", "name", "start_time"
	SortOrder  string                `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status       *models.AttemptStatus `json:"status"`
	StudentEmail *string               `json:"student_email"`
	DateFrom     *time.Time            `json:"date_from"`
	DateTo       *time.Time            `json:"date_to"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	SortBy       string                `json:"sort_by"`
	SortOrder    string                `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

type SessionAttemptStats struct {
	TotalAttempts    int                          `json:"total_attempts"`
	StatusBreakdown  map[models.AttemptStatus]int `json:"status_breakdown"`
	AverageScoreAuto float64                      `json:"average_score_auto"`
	PendingGrading   int                          `json:"pending_grading"`
	DistinctStudents int                          `json:"distinct_students"`
	LastSubmissionAt *time.Time                   `json:"last_submission_at"`
}
