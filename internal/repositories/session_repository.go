package repositories

import (
	"context"

	"github.com/DATN-2025/exam-service/internal/models"
)

// SessionRepository handles exam session reads and the row lock used to
// serialize attempt-number allocation.
type SessionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.ExamSession, error)
	GetByCode(ctx context.Context, code string) (*models.ExamSession, error)
	GetByJoinToken(ctx context.Context, token string) (*models.ExamSession, error)

	// GetWithQuestions loads a session together with its questions and
	// their answer options, ordered by order_index.
	GetWithQuestions(ctx context.Context, id uint) (*models.ExamSession, error)

	// LockForStart takes SELECT ... FOR UPDATE on the session row. Must run
	// inside a transaction; concurrent attempt starts for the same session
	// serialize on this lock.
	LockForStart(ctx context.Context, id uint) (*models.ExamSession, error)

	List(ctx context.Context, filters SessionFilters) ([]*models.ExamSession, int64, error)
}

// SessionStudentRepository manages the whitelist roster of private sessions.
type SessionStudentRepository interface {
	Assign(ctx context.Context, student *models.SessionStudent) error
	AssignBatch(ctx context.Context, students []*models.SessionStudent) error
	Remove(ctx context.Context, sessionID uint, email string) error
	ListBySession(ctx context.Context, sessionID uint) ([]*models.SessionStudent, error)
	ExistsBySessionAndEmail(ctx context.Context, sessionID uint, email string) (bool, error)
}
