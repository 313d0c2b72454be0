package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATN-2025/exam-service/internal/models"
)

// submittedAttempt starts and submits an attempt with an answered essay, and
// returns the attempt and the essay's attempt question ID.
func submittedAttempt(t *testing.T, svc AttemptService, repo *mockRepository) (*AttemptResponse, uint, uint) {
	t.Helper()
	repo.sessions.add(examSession(t, 1))
	repo.users.addUser(&models.User{ID: "t1", Email: "teacher@example.com", Role: models.RoleTeacher})
	repo.users.addUser(&models.User{ID: "s1", Email: "student@example.com", Role: models.RoleStudent})

	ctx := context.Background()
	guest := GuestAccess{SessionID: 1, Email: "alice@example.com"}

	started, err := svc.Start(ctx, &StartAttemptRequest{SessionID: 1}, guest, "")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	essayID := questionIDByType(started, models.Essay)
	oneChoiceID := questionIDByType(started, models.OneChoice)
	correctAnswer := uint(2)
	essayText := "SYN, SYN-ACK, ACK."

	resp, err := svc.Submit(ctx, started.ID, &SubmitAttemptRequest{Answers: []AnswerSubmission{
		{AttemptQuestionID: oneChoiceID, SelectedAnswerID: &correctAnswer},
		{AttemptQuestionID: essayID, Text: &essayText},
	}}, guest)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return resp, essayID, oneChoiceID
}

func TestGradingService_ApplyManualGrade(t *testing.T) {
	svc, grading, repo, notifier := newTestAttemptService(t)
	attempt, essayID, _ := submittedAttempt(t, svc, repo)
	ctx := context.Background()

	view, err := grading.GetForGrading(ctx, attempt.ID, "t1")
	if err != nil {
		t.Fatalf("GetForGrading failed: %v", err)
	}
	if view.GradingStatus != models.GradingPending {
		t.Fatalf("expected grading PENDING before review, got %s", view.GradingStatus)
	}
	if view.MaxScore != 8 { // 1+2+1+2+2
		t.Fatalf("expected max score 8, got %v", view.MaxScore)
	}

	graded, err := grading.ApplyManualGrade(ctx, attempt.ID, &ManualGradeRequest{Grades: []QuestionGrade{
		{AttemptQuestionID: essayID, Score: 1.5},
	}}, "t1")
	if err != nil {
		t.Fatalf("ApplyManualGrade failed: %v", err)
	}
	if graded.ScoreManual != 1.5 {
		t.Fatalf("expected manual score 1.5, got %v", graded.ScoreManual)
	}
	if graded.GradingStatus != models.GradingDone {
		t.Fatalf("expected grading DONE after the essay is reviewed, got %s", graded.GradingStatus)
	}
	if graded.TotalScore != graded.ScoreAuto+1.5 {
		t.Fatalf("total %v does not add up from auto %v + manual 1.5", graded.TotalScore, graded.ScoreAuto)
	}
	if len(notifier.results) != 1 {
		t.Fatalf("expected a result mail once grading completed, got %d", len(notifier.results))
	}
}

func TestGradingService_ApplyManualGrade_Validation(t *testing.T) {
	svc, grading, repo, _ := newTestAttemptService(t)
	attempt, essayID, oneChoiceID := submittedAttempt(t, svc, repo)
	ctx := context.Background()

	tests := []struct {
		name  string
		grade QuestionGrade
	}{
		{"unknown attempt question", QuestionGrade{AttemptQuestionID: 9999, Score: 1}},
		{"auto graded question", QuestionGrade{AttemptQuestionID: oneChoiceID, Score: 1}},
		{"score above the question points", QuestionGrade{AttemptQuestionID: essayID, Score: 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grading.ApplyManualGrade(ctx, attempt.ID, &ManualGradeRequest{Grades: []QuestionGrade{tt.grade}}, "t1")
			var validationErrs ValidationErrors
			if !errors.As(err, &validationErrs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
		})
	}
}

func TestGradingService_Access(t *testing.T) {
	svc, grading, repo, _ := newTestAttemptService(t)
	attempt, essayID, _ := submittedAttempt(t, svc, repo)
	ctx := context.Background()

	req := &ManualGradeRequest{Grades: []QuestionGrade{{AttemptQuestionID: essayID, Score: 1}}}

	_, err := grading.ApplyManualGrade(ctx, attempt.ID, req, "s1")
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected permission error for student grader, got %v", err)
	}

	if _, err := grading.ApplyManualGrade(ctx, attempt.ID, req, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown grader, got %v", err)
	}
}

func TestGradingService_InProgressAttempt(t *testing.T) {
	svc, grading, repo, _ := newTestAttemptService(t)
	repo.sessions.add(examSession(t, 1))
	repo.users.addUser(&models.User{ID: "t1", Email: "teacher@example.com", Role: models.RoleTeacher})
	ctx := context.Background()

	started, err := svc.Start(ctx, &StartAttemptRequest{SessionID: 1}, GuestAccess{SessionID: 1, Email: "alice@example.com"}, "")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := grading.GetForGrading(ctx, started.ID, "t1"); !errors.Is(err, ErrAttemptNotGraded) {
		t.Fatalf("expected ErrAttemptNotGraded for a running attempt, got %v", err)
	}
}
