package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
)

type SessionStudentPostgreSQL struct {
	db *gorm.DB
}

func NewSessionStudentPostgreSQL(db *gorm.DB) repositories.SessionStudentRepository {
	return &SessionStudentPostgreSQL{db: db}
}

func (s *SessionStudentPostgreSQL) Assign(ctx context.Context, student *models.SessionStudent) error {
	student.Email = strings.ToLower(strings.TrimSpace(student.Email))
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "email"}},
			DoNothing: true,
		}).
		Create(student).Error
}

// AssignBatch inserts the roster in one statement, skipping emails that
// are already assigned.
func (s *SessionStudentPostgreSQL) AssignBatch(ctx context.Context, students []*models.SessionStudent) error {
	if len(students) == 0 {
		return nil
	}
	for _, st := range students {
		st.Email = strings.ToLower(strings.TrimSpace(st.Email))
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "email"}},
			DoNothing: true,
		}).
		Create(students).Error
}

func (s *SessionStudentPostgreSQL) Remove(ctx context.Context, sessionID uint, email string) error {
	result := s.db.WithContext(ctx).
		Where("session_id = ? AND email = ?", sessionID, strings.ToLower(strings.TrimSpace(email))).
		Delete(&models.SessionStudent{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("student %s not assigned to session %d: %w", email, sessionID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *SessionStudentPostgreSQL) ListBySession(ctx context.Context, sessionID uint) ([]*models.SessionStudent, error) {
	var students []*models.SessionStudent
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("email ASC").
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (s *SessionStudentPostgreSQL) ExistsBySessionAndEmail(ctx context.Context, sessionID uint, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.SessionStudent{}).
		Where("session_id = ? AND email = ?", sessionID, strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	return count > 0, err
}
