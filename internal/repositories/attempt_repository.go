package repositories

import (
	"context"
	"time"

	"github.com/DATN-2025/exam-service/internal/models"
)

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	Update(ctx context.Context, attempt *models.ExamAttempt) error

	GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error)

	// GetWithQuestions loads the attempt with its frozen questions (ordered
	// by order_index) and any stored answers.
	GetWithQuestions(ctx context.Context, id uint) (*models.ExamAttempt, error)

	// GetInProgress returns the active attempt of a student in a session,
	// or gorm.ErrRecordNotFound.
	GetInProgress(ctx context.Context, sessionID uint, email string) (*models.ExamAttempt, error)

	// MaxAttemptNo returns the highest attempt_no used by the student in
	// the session, 0 when none exist.
	MaxAttemptNo(ctx context.Context, sessionID uint, email string) (int, error)

	// CountCompleted counts attempts that consumed the attempt limit
	// (everything except IN_PROGRESS).
	CountCompleted(ctx context.Context, sessionID uint, email string) (int, error)

	ListBySession(ctx context.Context, sessionID uint, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)

	// ListExpiredInProgress returns IN_PROGRESS attempts whose deadline
	// passed before the given time, for the expiry sweep.
	ListExpiredInProgress(ctx context.Context, before time.Time, limit int) ([]*models.ExamAttempt, error)

	SaveQuestions(ctx context.Context, questions []*models.AttemptQuestion) error
	UpdateQuestion(ctx context.Context, question *models.AttemptQuestion) error
	SaveAnswer(ctx context.Context, answer *models.AttemptAnswer) error

	GetSessionStats(ctx context.Context, sessionID uint) (*SessionAttemptStats, error)
}
