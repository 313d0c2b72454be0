package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DATN-2025/exam-service/internal/cache"
	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewSessionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByCode is the hot path of the join screens, so the lookup is cached.
// Mutations go through InvalidateSession.
func (s *SessionPostgreSQL) GetByCode(ctx context.Context, code string) (*models.ExamSession, error) {
	cacheKey := fmt.Sprintf("code:%s", code)
	var session models.ExamSession

	err := s.cacheManager.Session.CacheOrExecute(ctx, cacheKey, &session, cache.SessionCacheConfig.TTL, func() (interface{}, error) {
		var dbSession models.ExamSession
		if err := s.db.WithContext(ctx).Where("code = ?", code).First(&dbSession).Error; err != nil {
			return nil, err
		}
		return &dbSession, nil
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByJoinToken(ctx context.Context, token string) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.db.WithContext(ctx).Where("join_token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// LockForStart must run inside a transaction; the row lock serializes
// attempt-number allocation per session.
func (s *SessionPostgreSQL) LockForStart(ctx context.Context, id uint) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	var sessions []*models.ExamSession
	var total int64

	query := s.db.WithContext(ctx).Model(&models.ExamSession{}).Where("deleted = ?", false)
	query = s.helpers.ApplySessionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}
