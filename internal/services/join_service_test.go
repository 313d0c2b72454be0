package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/DATN-2025/exam-service/internal/cache"
	"github.com/DATN-2025/exam-service/internal/config"
	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testExamConfig() config.ExamConfig {
	return config.ExamConfig{
		OTPTTL:          5 * time.Minute,
		OTPResendWindow: 1 * time.Minute,
		GuestTokenTTL:   2 * time.Hour,
		SubmitGrace:     60 * time.Second,
	}
}

func newTestCache(t *testing.T) (*cache.CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewCacheManager(client), mr
}

func openPublicSession(id uint) *models.ExamSession {
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	return &models.ExamSession{
		ID:              id,
		Code:            "EXAM-2026",
		Name:            "Midterm",
		JoinToken:       "join-token-1",
		StartTime:       &start,
		EndTime:         &end,
		DurationMinutes: 45,
		LateJoinMinutes: 15,
		AttemptLimit:    2,
		Status:          models.SessionOpen,
		AccessMode:      models.AccessPublic,
		Questions: []models.SessionQuestion{
			{ID: 1, SessionID: id, OrderIndex: 0, Type: models.OneChoice, Text: "2+2?", Point: 1,
				Answers: []models.SessionAnswer{
					{ID: 1, QuestionID: 1, Value: "3", Result: false, OrderIndex: 0},
					{ID: 2, QuestionID: 1, Value: "4", Result: true, OrderIndex: 1},
				}},
		},
	}
}

func newTestJoinService(t *testing.T) (JoinService, *mockRepository, *mockNotifier, *miniredis.Miniredis) {
	t.Helper()
	repo := newMockRepository()
	cm, mr := newTestCache(t)
	notifier := newMockNotifier()
	svc := NewJoinService(repo, cm, notifier, testLogger(), validator.New(), testExamConfig())
	return svc, repo, notifier, mr
}

func TestJoinService_OtpFlow(t *testing.T) {
	svc, repo, notifier, _ := newTestJoinService(t)
	repo.sessions.add(openPublicSession(1))
	ctx := context.Background()

	if err := svc.RequestOtp(ctx, &RequestOtpRequest{SessionCode: "exam-2026", Email: "Alice@Example.com"}); err != nil {
		t.Fatalf("RequestOtp failed: %v", err)
	}

	otp := notifier.lastOtp("alice@example.com")
	if len(otp) != 6 {
		t.Fatalf("expected a 6-digit OTP, got %q", otp)
	}

	// A second request while the code is live must be throttled
	err := svc.RequestOtp(ctx, &RequestOtpRequest{SessionCode: "EXAM-2026", Email: "alice@example.com"})
	var waitErr *WaitError
	if !errors.As(err, &waitErr) || !errors.Is(err, ErrOTPStillValid) {
		t.Fatalf("expected wait error wrapping ErrOTPStillValid, got %v", err)
	}
	if waitErr.Seconds <= 0 {
		t.Errorf("expected a positive wait, got %d", waitErr.Seconds)
	}

	// Wrong code
	_, err = svc.VerifyOtp(ctx, &VerifyOtpRequest{SessionCode: "EXAM-2026", Email: "alice@example.com", OTP: "000000"})
	if otp != "000000" && !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}

	// Correct code issues a session token
	token, err := svc.VerifyOtp(ctx, &VerifyOtpRequest{SessionCode: "EXAM-2026", Email: "alice@example.com", OTP: otp})
	if err != nil {
		t.Fatalf("VerifyOtp failed: %v", err)
	}
	if token.Token == "" || token.SessionID != 1 || token.Email != "alice@example.com" {
		t.Fatalf("unexpected token response: %+v", token)
	}

	// The code is single use
	if _, err := svc.VerifyOtp(ctx, &VerifyOtpRequest{SessionCode: "EXAM-2026", Email: "alice@example.com", OTP: otp}); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid on replay, got %v", err)
	}

	// The token resolves back to the guest
	validation, err := svc.ValidateSessionToken(ctx, token.Token)
	if err != nil {
		t.Fatalf("ValidateSessionToken failed: %v", err)
	}
	if validation.SessionID != 1 || validation.Email != "alice@example.com" {
		t.Fatalf("unexpected validation: %+v", validation)
	}
}

func TestJoinService_ResendThrottle(t *testing.T) {
	svc, repo, notifier, mr := newTestJoinService(t)
	repo.sessions.add(openPublicSession(1))
	ctx := context.Background()

	if err := svc.RequestOtp(ctx, &RequestOtpRequest{SessionCode: "EXAM-2026", Email: "bob@example.com"}); err != nil {
		t.Fatalf("RequestOtp failed: %v", err)
	}

	err := svc.ResendOtp(ctx, &ResendOtpRequest{SessionCode: "EXAM-2026", Email: "bob@example.com"})
	if !errors.Is(err, ErrOTPResendTooEarly) {
		t.Fatalf("expected ErrOTPResendTooEarly, got %v", err)
	}

	// Resend opens up once less than a minute of validity remains
	mr.FastForward(4*time.Minute + time.Second)
	if err := svc.ResendOtp(ctx, &ResendOtpRequest{SessionCode: "EXAM-2026", Email: "bob@example.com"}); err != nil {
		t.Fatalf("ResendOtp after window failed: %v", err)
	}
	if notifier.lastOtp("bob@example.com") == "" {
		t.Fatal("expected a resent OTP")
	}
}

func TestJoinService_Eligibility(t *testing.T) {
	svc, repo, _, _ := newTestJoinService(t)
	ctx := context.Background()

	closed := openPublicSession(2)
	closed.Code = "CLOSED-1"
	closed.JoinToken = "join-token-2"
	closed.Status = models.SessionClosed
	repo.sessions.add(closed)

	private := openPublicSession(3)
	private.Code = "PRIV-1"
	private.JoinToken = "join-token-3"
	private.AccessMode = models.AccessPrivate
	repo.sessions.add(private)

	repo.users.addUser(&models.User{ID: "t1", Email: "teacher@example.com", Role: models.RoleTeacher})
	repo.users.addUser(&models.User{ID: "s1", Email: "student@example.com", Role: models.RoleStudent})

	tests := []struct {
		name  string
		code  string
		email string
		want  error
	}{
		{"closed session", "CLOSED-1", "student@example.com", ErrSessionClosed},
		{"teacher on public session", "EXAM-2026", "teacher@example.com", ErrTeacherCannotJoin},
		{"unknown account on private session", "PRIV-1", "ghost@example.com", ErrUserNotStudent},
		{"student off the whitelist", "PRIV-1", "student@example.com", ErrStudentNotAssigned},
		{"unknown session", "NOPE-404", "student@example.com", ErrSessionNotFound},
	}

	repo.sessions.add(openPublicSession(1))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RequestOtp(ctx, &RequestOtpRequest{SessionCode: tt.code, Email: tt.email})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// Whitelisted students pass
	repo.students.AssignBatch(ctx, []*models.SessionStudent{{SessionID: 3, Email: "student@example.com"}})
	if err := svc.RequestOtp(ctx, &RequestOtpRequest{SessionCode: "PRIV-1", Email: "student@example.com"}); err != nil {
		t.Fatalf("whitelisted student should receive an OTP, got %v", err)
	}
}

func TestJoinService_SessionInfo(t *testing.T) {
	svc, repo, _, _ := newTestJoinService(t)
	repo.sessions.add(openPublicSession(1))
	ctx := context.Background()

	info, err := svc.JoinByCode(ctx, &JoinByCodeRequest{Code: "exam-2026"})
	if err != nil {
		t.Fatalf("JoinByCode failed: %v", err)
	}
	if !info.CanJoin || info.QuestionCount != 1 || info.Code != "EXAM-2026" {
		t.Fatalf("unexpected session info: %+v", info)
	}

	// With an email the remaining attempts are reported
	info, err = svc.GetSessionInfo(ctx, "join-token-1", "carol@example.com")
	if err != nil {
		t.Fatalf("GetSessionInfo failed: %v", err)
	}
	if info.AttemptRemaining == nil || *info.AttemptRemaining != 2 {
		t.Fatalf("expected 2 remaining attempts, got %+v", info.AttemptRemaining)
	}

	// Closed sessions still render a join screen, just not joinable
	closed := openPublicSession(2)
	closed.Code = "CLOSED-2"
	closed.JoinToken = "join-token-9"
	closed.Status = models.SessionClosed
	repo.sessions.add(closed)

	info, err = svc.GetSessionInfo(ctx, "join-token-9", "")
	if err != nil {
		t.Fatalf("GetSessionInfo on closed session failed: %v", err)
	}
	if info.CanJoin || info.Message == "" {
		t.Fatalf("expected a non-joinable session with a message, got %+v", info)
	}
}

func TestJoinService_ValidateSessionToken(t *testing.T) {
	svc, _, _, _ := newTestJoinService(t)
	ctx := context.Background()

	if _, err := svc.ValidateSessionToken(ctx, ""); !errors.Is(err, ErrSessionTokenRequired) {
		t.Errorf("expected ErrSessionTokenRequired, got %v", err)
	}
	if _, err := svc.ValidateSessionToken(ctx, "no-such-token"); !errors.Is(err, ErrSessionTokenInvalid) {
		t.Errorf("expected ErrSessionTokenInvalid, got %v", err)
	}
}
