package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DATN-2025/exam-service/internal/cache"
	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := a.db.WithContext(ctx).Save(attempt).Error; err != nil {
		return err
	}
	cache.InvalidateAttemptCache(ctx, a.cacheManager, attempt.SessionID)
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// questionOrder restores the frozen question order on preload. The column
// stays unqualified so the clause holds for the exam_attempt_questions table.
func questionOrder(db *gorm.DB) *gorm.DB {
	return db.Order("order_index ASC")
}

func (a *AttemptPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).
		Preload("Questions", questionOrder).
		Preload("Questions.Answer").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetInProgress(ctx context.Context, sessionID uint, email string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).
		Where("session_id = ? AND student_email = ? AND status = ?", sessionID, email, models.AttemptInProgress).
		Order("started_at DESC").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) MaxAttemptNo(ctx context.Context, sessionID uint, email string) (int, error) {
	var max *int
	err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Select("MAX(attempt_no)").
		Where("session_id = ? AND student_email = ?", sessionID, email).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (a *AttemptPostgreSQL) CountCompleted(ctx context.Context, sessionID uint, email string) (int, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("session_id = ? AND student_email = ? AND status <> ?", sessionID, email, models.AttemptInProgress).
		Count(&count).Error
	return int(count), err
}

func (a *AttemptPostgreSQL) ListBySession(ctx context.Context, sessionID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	var attempts []*models.ExamAttempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.ExamAttempt{}).Where("session_id = ?", sessionID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) ListExpiredInProgress(ctx context.Context, before time.Time, limit int) ([]*models.ExamAttempt, error) {
	var attempts []*models.ExamAttempt
	query := a.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.AttemptInProgress, before).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) SaveQuestions(ctx context.Context, questions []*models.AttemptQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return a.db.WithContext(ctx).CreateInBatches(questions, 100).Error
}

func (a *AttemptPostgreSQL) UpdateQuestion(ctx context.Context, question *models.AttemptQuestion) error {
	return a.db.WithContext(ctx).Save(question).Error
}

func (a *AttemptPostgreSQL) SaveAnswer(ctx context.Context, answer *models.AttemptAnswer) error {
	return a.db.WithContext(ctx).Save(answer).Error
}

// GetSessionStats is an expensive aggregation, cached under the stats prefix.
func (a *AttemptPostgreSQL) GetSessionStats(ctx context.Context, sessionID uint) (*repositories.SessionAttemptStats, error) {
	cacheKey := fmt.Sprintf("session_attempts:%d", sessionID)
	var stats repositories.SessionAttemptStats

	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return a.computeSessionStats(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (a *AttemptPostgreSQL) computeSessionStats(ctx context.Context, sessionID uint) (*repositories.SessionAttemptStats, error) {
	stats := &repositories.SessionAttemptStats{
		StatusBreakdown: make(map[models.AttemptStatus]int),
	}

	type statusCount struct {
		Status models.AttemptStatus
		Count  int
	}
	var rows []statusCount
	if err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Select("status, COUNT(*) as count").
		Where("session_id = ?", sessionID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
		stats.TotalAttempts += row.Count
	}

	if err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Select("COALESCE(AVG(score_auto), 0)").
		Where("session_id = ? AND status = ?", sessionID, models.AttemptSubmitted).
		Scan(&stats.AverageScoreAuto).Error; err != nil {
		return nil, err
	}

	var pending int64
	if err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("session_id = ? AND grading_status = ?", sessionID, models.GradingPending).
		Count(&pending).Error; err != nil {
		return nil, err
	}
	stats.PendingGrading = int(pending)

	var distinct int64
	if err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("session_id = ?", sessionID).
		Distinct("student_email").
		Count(&distinct).Error; err != nil {
		return nil, err
	}
	stats.DistinctStudents = int(distinct)

	var last *time.Time
	if err := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Select("MAX(submitted_at)").
		Where("session_id = ?", sessionID).
		Scan(&last).Error; err != nil {
		return nil, err
	}
	stats.LastSubmissionAt = last

	return stats, nil
}
