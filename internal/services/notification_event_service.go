package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DATN-2025/exam-service/internal/events"
	"github.com/DATN-2025/exam-service/internal/models"
)

type notificationEventService struct {
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewNotificationEventService(publisher events.EventPublisher, logger *slog.Logger) NotificationEventService {
	return &notificationEventService{
		publisher: publisher,
		logger:    logger,
	}
}

// SendOtpMail hands the OTP to the mailer service. The code itself never
// appears in logs.
func (s *notificationEventService) SendOtpMail(ctx context.Context, email, sessionName, otp string, ttl time.Duration) error {
	event := events.MailRequested{
		To:       email,
		Subject:  fmt.Sprintf("Your access code for %s", sessionName),
		Template: events.TemplateOTPMail,
		Variables: map[string]interface{}{
			"otp":          otp,
			"session_name": sessionName,
			"ttl_minutes":  int(ttl.Minutes()),
		},
		CreatedAt: time.Now(),
	}

	if err := s.publisher.Publish(ctx, events.TopicMailRequests, event); err != nil {
		return fmt.Errorf("failed to publish mail request: %w", err)
	}

	s.logger.Info("OTP mail requested",
		"email", email,
		"session_name", sessionName)

	return nil
}

// SendResultMail informs the candidate that their attempt is fully graded.
func (s *notificationEventService) SendResultMail(ctx context.Context, attempt *models.ExamAttempt, sessionName string) error {
	event := events.MailRequested{
		To:       attempt.StudentEmail,
		Subject:  fmt.Sprintf("Your result for %s", sessionName),
		Template: events.TemplateResultMail,
		Variables: map[string]interface{}{
			"session_name": sessionName,
			"attempt_no":   attempt.AttemptNo,
			"score_auto":   attempt.ScoreAuto,
			"score_manual": attempt.ScoreManual,
			"total_score":  attempt.ScoreAuto + attempt.ScoreManual,
		},
		CreatedAt: time.Now(),
	}

	if err := s.publisher.Publish(ctx, events.TopicMailRequests, event); err != nil {
		return fmt.Errorf("failed to publish result mail: %w", err)
	}

	s.logger.Info("Result mail requested",
		"email", attempt.StudentEmail,
		"attempt_id", attempt.ID)

	return nil
}

func (s *notificationEventService) PublishAttemptSubmitted(ctx context.Context, attempt *models.ExamAttempt) error {
	event := events.AttemptSubmitted{
		AttemptID:     attempt.ID,
		SessionID:     attempt.SessionID,
		StudentEmail:  attempt.StudentEmail,
		AttemptNo:     attempt.AttemptNo,
		ScoreAuto:     attempt.ScoreAuto,
		GradingStatus: string(attempt.GradingStatus),
	}
	if attempt.SubmittedAt != nil {
		event.SubmittedAt = *attempt.SubmittedAt
	}

	if err := s.publisher.Publish(ctx, events.TopicAttemptSubmitted, event); err != nil {
		return fmt.Errorf("failed to publish attempt submitted event: %w", err)
	}

	s.logger.Info("Attempt submitted event published",
		"attempt_id", attempt.ID,
		"session_id", attempt.SessionID)

	return nil
}
