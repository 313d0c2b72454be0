package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
	"github.com/DATN-2025/exam-service/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	notifier  NotificationEventService
}

func NewGradingService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, notifier NotificationEventService) GradingService {
	return &gradingService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		notifier:  notifier,
	}
}

// ===== AUTO GRADING =====

// AutoGradeAttempt scores every auto-gradeable question of a submitted
// attempt against its frozen snapshot. Essays with an answer keep the
// attempt in PENDING for manual review.
func (s *gradingService) AutoGradeAttempt(ctx context.Context, attemptID uint) error {
	attempt, err := s.repo.Attempt().GetWithQuestions(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to load attempt: %w", err)
	}

	return s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		return s.GradeSubmission(ctx, r, attempt)
	})
}

// GradeSubmission grades a loaded attempt inside the caller's transaction,
// so a submit is either persisted fully graded or not at all.
func (s *gradingService) GradeSubmission(ctx context.Context, r repositories.Repository, attempt *models.ExamAttempt) error {
	total := 0.0
	needsReview := false

	for i := range attempt.Questions {
		q := &attempt.Questions[i]

		snapshot, err := decodeSnapshot(q)
		if err != nil {
			return err
		}
		payload, err := decodeAnswerPayload(q.Answer)
		if err != nil {
			return err
		}

		correct, score := gradeQuestion(snapshot, payload)
		q.Correct = correct
		q.AutoScore = score
		total += score

		if q.Type == models.Essay && payload != nil && !payload.IsEmpty() {
			needsReview = true
		}

		if err := r.Attempt().UpdateQuestion(ctx, q); err != nil {
			return fmt.Errorf("failed to update question %d: %w", q.ID, err)
		}
	}

	attempt.ScoreAuto = total
	attempt.GradingStatus = models.GradingDone
	if needsReview {
		attempt.GradingStatus = models.GradingPending
	}
	if err := r.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	s.logger.Info("Attempt auto-graded",
		"attempt_id", attempt.ID,
		"score_auto", total,
		"grading_status", attempt.GradingStatus)

	return nil
}

// ===== MANUAL GRADING =====

func (s *gradingService) GetForGrading(ctx context.Context, attemptID uint, userID string) (*AttemptGradingResponse, error) {
	if err := s.checkGraderAccess(ctx, attemptID, userID, "view_grading"); err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetWithQuestions(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt.Status == models.AttemptInProgress {
		return nil, ErrAttemptNotGraded
	}

	return buildGradingResponse(attempt)
}

func (s *gradingService) ApplyManualGrade(ctx context.Context, attemptID uint, req *ManualGradeRequest, graderID string) (*AttemptGradingResponse, error) {
	s.logger.Info("Applying manual grades",
		"attempt_id", attemptID,
		"grader_id", graderID,
		"grades_count", len(req.Grades))

	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkGraderAccess(ctx, attemptID, graderID, "apply_grading"); err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetWithQuestions(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt.Status == models.AttemptInProgress {
		return nil, ErrAttemptNotGraded
	}

	wasPending := attempt.GradingStatus == models.GradingPending

	questionsByID := make(map[uint]*models.AttemptQuestion, len(attempt.Questions))
	for i := range attempt.Questions {
		questionsByID[attempt.Questions[i].ID] = &attempt.Questions[i]
	}

	for i, grade := range req.Grades {
		question, ok := questionsByID[grade.AttemptQuestionID]
		if !ok {
			return nil, NewValidationError(
				fmt.Sprintf("grades[%d].attempt_question_id", i),
				ErrInvalidAttemptQuestion.Error(),
				grade.AttemptQuestionID)
		}
		if question.Type.IsAutoGradeable() {
			return nil, NewValidationError(
				fmt.Sprintf("grades[%d].attempt_question_id", i),
				ErrGradingNotAllowed.Error(),
				grade.AttemptQuestionID)
		}
		if grade.Score > question.Point {
			return nil, NewValidationError(
				fmt.Sprintf("grades[%d].score", i),
				fmt.Sprintf("score must not exceed %.2f points", question.Point),
				grade.Score)
		}
	}

	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		for _, grade := range req.Grades {
			question := questionsByID[grade.AttemptQuestionID]
			score := grade.Score
			question.ManualScore = &score
			if err := r.Attempt().UpdateQuestion(ctx, question); err != nil {
				return fmt.Errorf("failed to update question %d: %w", question.ID, err)
			}
		}

		manualTotal := 0.0
		reviewed := true
		for i := range attempt.Questions {
			q := &attempt.Questions[i]
			if q.ManualScore != nil {
				manualTotal += *q.ManualScore
				continue
			}
			if q.Type == models.Essay && q.Answer != nil {
				reviewed = false
			}
		}

		attempt.ScoreManual = manualTotal
		if reviewed {
			attempt.GradingStatus = models.GradingDone
		}
		if err := r.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if wasPending && attempt.GradingStatus == models.GradingDone {
		if session, err := s.repo.Session().GetByID(ctx, attempt.SessionID); err == nil {
			if err := s.notifier.SendResultMail(ctx, attempt, session.Name); err != nil {
				s.logger.Error("Failed to send result mail", "attempt_id", attemptID, "error", err)
			}
		}
	}

	s.logger.Info("Manual grades applied",
		"attempt_id", attemptID,
		"score_manual", attempt.ScoreManual,
		"grading_status", attempt.GradingStatus)

	return buildGradingResponse(attempt)
}

func buildGradingResponse(attempt *models.ExamAttempt) (*AttemptGradingResponse, error) {
	maxScore := 0.0
	questions := make([]QuestionGradingView, 0, len(attempt.Questions))

	for i := range attempt.Questions {
		q := &attempt.Questions[i]

		snapshot, err := decodeSnapshot(q)
		if err != nil {
			return nil, err
		}
		payload, err := decodeAnswerPayload(q.Answer)
		if err != nil {
			return nil, err
		}

		maxScore += q.Point
		questions = append(questions, QuestionGradingView{
			AttemptQuestionID: q.ID,
			OrderIndex:        q.OrderIndex,
			Type:              q.Type,
			Text:              snapshot.Text,
			Point:             q.Point,
			Snapshot:          *snapshot,
			Answer:            payload,
			AutoScore:         q.AutoScore,
			ManualScore:       q.ManualScore,
			Correct:           q.Correct,
		})
	}

	return &AttemptGradingResponse{
		AttemptID:     attempt.ID,
		SessionID:     attempt.SessionID,
		StudentEmail:  attempt.StudentEmail,
		AttemptNo:     attempt.AttemptNo,
		Status:        attempt.Status,
		GradingStatus: attempt.GradingStatus,
		ScoreAuto:     attempt.ScoreAuto,
		ScoreManual:   attempt.ScoreManual,
		TotalScore:    attempt.ScoreAuto + attempt.ScoreManual,
		MaxScore:      maxScore,
		SubmittedAt:   attempt.SubmittedAt,
		Questions:     questions,
	}, nil
}

func (s *gradingService) checkGraderAccess(ctx context.Context, attemptID uint, userID, action string) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.IsStaff() {
		return NewPermissionError(userID, attemptID, "attempt", action, "insufficient role permissions")
	}
	return nil
}
