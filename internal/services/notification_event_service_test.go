package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATN-2025/exam-service/internal/events"
	"github.com/DATN-2025/exam-service/internal/models"
)

func TestNotificationEventService_SendOtpMail(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewNotificationEventService(publisher, testLogger())

	err := svc.SendOtpMail(context.Background(), "alice@example.com", "Midterm", "123456", 5*time.Minute)
	if err != nil {
		t.Fatalf("SendOtpMail failed: %v", err)
	}

	published := publisher.Published(events.TopicMailRequests)
	if len(published) != 1 {
		t.Fatalf("expected one mail event, got %d", len(published))
	}
	mailEvent, ok := published[0].(events.MailRequested)
	if !ok {
		t.Fatalf("unexpected event type %T", published[0])
	}
	if mailEvent.To != "alice@example.com" || mailEvent.Template != events.TemplateOTPMail {
		t.Fatalf("unexpected mail event: %+v", mailEvent)
	}
	if mailEvent.Variables["otp"] != "123456" {
		t.Errorf("OTP missing from mail variables: %v", mailEvent.Variables)
	}
	if mailEvent.Variables["ttl_minutes"] != 5 {
		t.Errorf("expected ttl_minutes 5, got %v", mailEvent.Variables["ttl_minutes"])
	}
}

func TestNotificationEventService_SendResultMail(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewNotificationEventService(publisher, testLogger())

	attempt := &models.ExamAttempt{
		ID:           3,
		StudentEmail: "alice@example.com",
		AttemptNo:    1,
		ScoreAuto:    4,
		ScoreManual:  1.5,
	}

	if err := svc.SendResultMail(context.Background(), attempt, "Midterm"); err != nil {
		t.Fatalf("SendResultMail failed: %v", err)
	}

	published := publisher.Published(events.TopicMailRequests)
	if len(published) != 1 {
		t.Fatalf("expected one mail event, got %d", len(published))
	}
	mailEvent, ok := published[0].(events.MailRequested)
	if !ok {
		t.Fatalf("unexpected event type %T", published[0])
	}
	if mailEvent.Template != events.TemplateResultMail {
		t.Fatalf("unexpected template %q", mailEvent.Template)
	}
	if mailEvent.Variables["total_score"] != 5.5 {
		t.Errorf("expected total score 5.5, got %v", mailEvent.Variables["total_score"])
	}
}

func TestNotificationEventService_PublishAttemptSubmitted(t *testing.T) {
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewNotificationEventService(publisher, testLogger())

	submittedAt := time.Now()
	attempt := &models.ExamAttempt{
		ID:            7,
		SessionID:     1,
		StudentEmail:  "alice@example.com",
		AttemptNo:     2,
		ScoreAuto:     4,
		Status:        models.AttemptSubmitted,
		GradingStatus: models.GradingPending,
		SubmittedAt:   &submittedAt,
	}

	if err := svc.PublishAttemptSubmitted(context.Background(), attempt); err != nil {
		t.Fatalf("PublishAttemptSubmitted failed: %v", err)
	}

	published := publisher.Published(events.TopicAttemptSubmitted)
	if len(published) != 1 {
		t.Fatalf("expected one submit event, got %d", len(published))
	}
	event, ok := published[0].(events.AttemptSubmitted)
	if !ok {
		t.Fatalf("unexpected event type %T", published[0])
	}
	if event.AttemptID != 7 || event.SessionID != 1 || event.AttemptNo != 2 {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.GradingStatus != string(models.GradingPending) {
		t.Errorf("expected grading status %s, got %s", models.GradingPending, event.GradingStatus)
	}
}
