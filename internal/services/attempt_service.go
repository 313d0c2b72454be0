package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DATN-2025/exam-service/internal/config"
	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
	"github.com/DATN-2025/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	grading   GradingService
	notifier  NotificationEventService
	cfg       config.ExamConfig
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, grading GradingService, notifier NotificationEventService, cfg config.ExamConfig) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		grading:   grading,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// ===== GUEST OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, guest GuestAccess, ipAddress string) (*AttemptResponse, error) {
	s.logger.Info("Starting exam attempt",
		"session_id", req.SessionID,
		"email", guest.Email)

	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}
	if req.SessionID != guest.SessionID {
		return nil, ErrSessionTokenMismatch
	}

	// Idempotent: an attempt already in progress is returned as-is
	existing, err := s.repo.Attempt().GetInProgress(ctx, guest.SessionID, guest.Email)
	if err == nil {
		if !existing.IsExpired(time.Now().Add(-s.cfg.SubmitGrace)) {
			s.logger.Info("Returning attempt already in progress", "attempt_id", existing.ID)
			return s.buildAttemptResponse(ctx, existing.ID)
		}
		if err := s.expireAttempt(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to close expired attempt: %w", err)
		}
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	var attempt *models.ExamAttempt
	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		// Row lock serializes attempt numbering per session
		session, err := r.Session().LockForStart(ctx, guest.SessionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		if session.Deleted {
			return ErrSessionNotFound
		}
		if session.Status != models.SessionOpen {
			return ErrSessionClosed
		}
		now := time.Now()
		if !session.InJoinWindow(now) {
			if session.StartTime != nil && now.Before(*session.StartTime) {
				return ErrSessionNotYetOpen
			}
			return ErrSessionEnded
		}

		if session.AttemptLimit > 0 {
			used, err := r.Attempt().CountCompleted(ctx, session.ID, guest.Email)
			if err != nil {
				return fmt.Errorf("failed to count attempts: %w", err)
			}
			if used >= session.AttemptLimit {
				return ErrAttemptLimitReached
			}
		}

		full, err := r.Session().GetWithQuestions(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to load session questions: %w", err)
		}
		if len(full.Questions) == 0 {
			return ErrSessionNoQuestions
		}

		maxNo, err := r.Attempt().MaxAttemptNo(ctx, session.ID, guest.Email)
		if err != nil {
			return fmt.Errorf("failed to get attempt number: %w", err)
		}

		// Late joiners keep the full duration, even past the session end time
		expiresAt := now.Add(time.Duration(session.DurationMinutes) * time.Minute)

		attempt = &models.ExamAttempt{
			SessionID:     session.ID,
			StudentEmail:  guest.Email,
			StudentName:   strings.TrimSpace(req.Name),
			AttemptNo:     maxNo + 1,
			StartedAt:     now,
			ExpiresAt:     expiresAt,
			Status:        models.AttemptInProgress,
			GradingStatus: models.GradingPending,
			DeviceInfo:    req.DeviceInfo,
		}
		if ipAddress != "" {
			attempt.IPAddress = &ipAddress
		}

		if err := r.Attempt().Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}

		questions, err := buildAttemptQuestions(attempt.ID, full)
		if err != nil {
			return fmt.Errorf("failed to build question snapshots: %w", err)
		}
		if err := r.Attempt().SaveQuestions(ctx, questions); err != nil {
			return fmt.Errorf("failed to save question snapshots: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam attempt started",
		"attempt_id", attempt.ID,
		"attempt_no", attempt.AttemptNo,
		"session_id", guest.SessionID,
		"email", guest.Email)

	return s.buildAttemptResponse(ctx, attempt.ID)
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, guest GuestAccess) (*AttemptResponse, error) {
	s.logger.Info("Submitting exam attempt",
		"attempt_id", attemptID,
		"email", guest.Email,
		"answers_count", len(req.Answers))

	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}

	attempt, err := s.repo.Attempt().GetWithQuestions(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.SessionID != guest.SessionID || attempt.StudentEmail != guest.Email {
		return nil, ErrAttemptAccessDenied
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	// Grace absorbs network latency on the final submit
	now := time.Now()
	if now.After(attempt.ExpiresAt.Add(s.cfg.SubmitGrace)) {
		if err := s.expireAttempt(ctx, attempt); err != nil {
			s.logger.Error("Failed to close expired attempt", "attempt_id", attemptID, "error", err)
		}
		return nil, ErrAttemptExpired
	}

	if errs := validateSubmission(attempt, req); len(errs) > 0 {
		return nil, errs
	}

	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		byQuestion := make(map[uint]bool, len(req.Answers))
		questionsByID := make(map[uint]*models.AttemptQuestion, len(attempt.Questions))
		for i := range attempt.Questions {
			questionsByID[attempt.Questions[i].ID] = &attempt.Questions[i]
		}

		for _, ans := range req.Answers {
			// Duplicates keep the first occurrence
			if byQuestion[ans.AttemptQuestionID] {
				continue
			}
			byQuestion[ans.AttemptQuestionID] = true

			question := questionsByID[ans.AttemptQuestionID]
			payload := mapAnswerPayload(question.Type, ans)
			if payload.IsEmpty() {
				continue
			}

			record, err := buildAnswerRecord(question, payload)
			if err != nil {
				return fmt.Errorf("failed to encode answer payload: %w", err)
			}
			if err := r.Attempt().SaveAnswer(ctx, record); err != nil {
				return fmt.Errorf("failed to save answer: %w", err)
			}
			question.Answer = record
		}

		attempt.Status = models.AttemptSubmitted
		attempt.SubmittedAt = &now

		// Grading shares the transaction: the attempt is persisted fully
		// graded or not at all
		return s.grading.GradeSubmission(ctx, r, attempt)
	})
	if err != nil {
		return nil, err
	}

	if err := s.notifier.PublishAttemptSubmitted(ctx, attempt); err != nil {
		s.logger.Error("Failed to publish submit event", "attempt_id", attemptID, "error", err)
	}
	// Result mail goes out right away when no essay is awaiting review
	if attempt.GradingStatus == models.GradingDone {
		if session, err := s.repo.Session().GetByID(ctx, attempt.SessionID); err == nil {
			if err := s.notifier.SendResultMail(ctx, attempt, session.Name); err != nil {
				s.logger.Error("Failed to send result mail", "attempt_id", attemptID, "error", err)
			}
		}
	}

	s.logger.Info("Exam attempt submitted",
		"attempt_id", attemptID,
		"email", guest.Email)

	return s.buildAttemptResponse(ctx, attemptID)
}

func (s *attemptService) GetCurrent(ctx context.Context, sessionID uint, guest GuestAccess) (*AttemptResponse, error) {
	if sessionID != guest.SessionID {
		return nil, ErrSessionTokenMismatch
	}

	attempt, err := s.repo.Attempt().GetInProgress(ctx, sessionID, guest.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("failed to get current attempt: %w", err)
	}

	// The submit grace does not apply here: once the clock runs out the
	// attempt is abandoned on first observation
	if attempt.IsExpired(time.Now()) {
		if err := s.expireAttempt(ctx, attempt); err != nil {
			s.logger.Error("Failed to close expired attempt", "attempt_id", attempt.ID, "error", err)
		}
		return nil, ErrAttemptExpired
	}

	return s.buildAttemptResponse(ctx, attempt.ID)
}

// ===== STAFF OPERATIONS =====

func (s *attemptService) ListBySession(ctx context.Context, sessionID uint, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error) {
	if err := s.checkStaffAccess(ctx, sessionID, userID, "list_attempts"); err != nil {
		return nil, err
	}

	attempts, total, err := s.repo.Attempt().ListBySession(ctx, sessionID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	size := filters.Limit
	if size <= 0 {
		size = len(attempts)
	}
	page := 1
	if size > 0 {
		page = filters.Offset/size + 1
	}

	return &AttemptListResponse{
		Attempts: attempts,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

func (s *attemptService) GetSessionStats(ctx context.Context, sessionID uint, userID string) (*repositories.SessionAttemptStats, error) {
	if err := s.checkStaffAccess(ctx, sessionID, userID, "view_stats"); err != nil {
		return nil, err
	}

	stats, err := s.repo.Attempt().GetSessionStats(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	return stats, nil
}

// ===== EXPIRY SWEEP =====

func (s *attemptService) CloseExpiredAttempts(ctx context.Context, limit int) (int, error) {
	cutoff := time.Now().Add(-s.cfg.SubmitGrace)
	expired, err := s.repo.Attempt().ListExpiredInProgress(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired attempts: %w", err)
	}

	closed := 0
	for _, attempt := range expired {
		if err := s.expireAttempt(ctx, attempt); err != nil {
			s.logger.Error("Failed to close expired attempt",
				"attempt_id", attempt.ID,
				"error", err)
			continue
		}
		closed++
	}

	if closed > 0 {
		s.logger.Info("Expiry sweep closed attempts", "count", closed)
	}

	return closed, nil
}

// expireAttempt abandons an attempt whose deadline passed without a submit.
// Scores stay at zero and grading is marked done so the attempt never waits
// in a review queue.
func (s *attemptService) expireAttempt(ctx context.Context, attempt *models.ExamAttempt) error {
	now := time.Now()
	attempt.Status = models.AttemptAbandoned
	attempt.GradingStatus = models.GradingDone
	attempt.ScoreAuto = 0
	attempt.ScoreManual = 0
	attempt.SubmittedAt = &now

	if err := s.repo.Attempt().Update(ctx, attempt); err != nil {
		return err
	}

	s.logger.Info("Attempt abandoned on expiry",
		"attempt_id", attempt.ID,
		"session_id", attempt.SessionID,
		"email", attempt.StudentEmail)

	return nil
}

func (s *attemptService) checkStaffAccess(ctx context.Context, sessionID uint, userID, action string) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.IsStaff() {
		return NewPermissionError(userID, sessionID, "session", action, "insufficient role permissions")
	}
	return nil
}
