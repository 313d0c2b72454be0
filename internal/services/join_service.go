package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DATN-2025/exam-service/internal/cache"
	"github.com/DATN-2025/exam-service/internal/config"
	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
	"github.com/DATN-2025/exam-service/internal/utils"
	"github.com/DATN-2025/exam-service/internal/validator"
)

type joinService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	notifier  NotificationEventService
	logger    *slog.Logger
	validator *validator.Validator
	cfg       config.ExamConfig
}

func NewJoinService(repo repositories.Repository, cacheManager *cache.CacheManager, notifier NotificationEventService, logger *slog.Logger, validator *validator.Validator, cfg config.ExamConfig) JoinService {
	return &joinService{
		repo:      repo,
		cache:     cacheManager,
		notifier:  notifier,
		logger:    logger,
		validator: validator,
		cfg:       cfg,
	}
}

// Redis key layout, all under the guest prefix:
//
//	otp:<email>:<sessionID>       hex(SHA-256(salt || otp))
//	otp:salt:<email>:<sessionID>  salt
//	guest:token:<uuid>            "<sessionID>:<email>"
func otpKey(email string, sessionID uint) string {
	return fmt.Sprintf("otp:%s:%d", email, sessionID)
}

func otpSaltKey(email string, sessionID uint) string {
	return fmt.Sprintf("otp:salt:%s:%d", email, sessionID)
}

func guestTokenKey(token string) string {
	return fmt.Sprintf("guest:token:%s", token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ===== JOIN SCREENS =====

func (s *joinService) GetSessionInfo(ctx context.Context, joinToken string, email string) (*SessionInfoResponse, error) {
	if joinToken == "" {
		return nil, NewValidationError("join_token", "is required", joinToken)
	}

	session, err := s.repo.Session().GetByJoinToken(ctx, joinToken)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session by join token: %w", err)
	}

	return s.buildSessionInfo(ctx, session, normalizeEmail(email))
}

func (s *joinService) JoinByCode(ctx context.Context, req *JoinByCodeRequest) (*SessionInfoResponse, error) {
	req.Code = normalizeCode(req.Code)
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}

	session, err := s.repo.Session().GetByCode(ctx, req.Code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}

	return s.buildSessionInfo(ctx, session, normalizeEmail(req.Email))
}

func (s *joinService) buildSessionInfo(ctx context.Context, session *models.ExamSession, email string) (*SessionInfoResponse, error) {
	if session.Deleted {
		return nil, ErrSessionNotFound
	}

	info := &SessionInfoResponse{
		SessionID:       session.ID,
		Name:            session.Name,
		Code:            session.Code,
		Status:          session.Status,
		AccessMode:      session.AccessMode,
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		DurationMinutes: session.DurationMinutes,
		AttemptLimit:    session.AttemptLimit,
		CanJoin:         true,
	}

	withQuestions, err := s.repo.Session().GetWithQuestions(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session questions: %w", err)
	}
	info.QuestionCount = len(withQuestions.Questions)

	if err := s.checkJoinEligibility(ctx, session, email); err != nil {
		var waitErr *WaitError
		if !errors.As(err, &waitErr) && !isEligibilityError(err) {
			return nil, err
		}
		info.CanJoin = false
		info.Message = err.Error()
	}

	if email != "" && session.AttemptLimit > 0 {
		used, err := s.repo.Attempt().CountCompleted(ctx, session.ID, email)
		if err != nil {
			return nil, fmt.Errorf("failed to count attempts: %w", err)
		}
		remaining := session.AttemptLimit - used
		if remaining < 0 {
			remaining = 0
		}
		info.AttemptRemaining = &remaining
	}

	return info, nil
}

func isEligibilityError(err error) bool {
	for _, e := range []error{
		ErrSessionClosed, ErrSessionNotYetOpen, ErrSessionEnded,
		ErrUserNotStudent, ErrStudentNotAssigned, ErrTeacherCannotJoin,
		ErrAttemptLimitReached,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// checkJoinEligibility enforces the join window and access-mode rules.
// An empty email skips the identity checks (anonymous join screen).
func (s *joinService) checkJoinEligibility(ctx context.Context, session *models.ExamSession, email string) error {
	if session.Deleted {
		return ErrSessionNotFound
	}
	if session.Status != models.SessionOpen {
		return ErrSessionClosed
	}

	now := time.Now()
	if session.StartTime != nil && now.Before(*session.StartTime) {
		return ErrSessionNotYetOpen
	}
	if session.EndTime != nil {
		deadline := session.EndTime.Add(time.Duration(session.LateJoinMinutes) * time.Minute)
		if now.After(deadline) {
			return ErrSessionEnded
		}
	}

	if email == "" {
		return nil
	}

	switch session.AccessMode {
	case models.AccessPrivate:
		isStudent, err := s.repo.User().ExistsStudentByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check student account: %w", err)
		}
		if !isStudent {
			return ErrUserNotStudent
		}
		assigned, err := s.repo.SessionStudent().ExistsBySessionAndEmail(ctx, session.ID, email)
		if err != nil {
			return fmt.Errorf("failed to check whitelist: %w", err)
		}
		if !assigned {
			return ErrStudentNotAssigned
		}
	case models.AccessPublic:
		isTeacher, err := s.repo.User().ExistsTeacherByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to check teacher account: %w", err)
		}
		if isTeacher {
			return ErrTeacherCannotJoin
		}
	}

	if session.AttemptLimit > 0 {
		used, err := s.repo.Attempt().CountCompleted(ctx, session.ID, email)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		if used >= session.AttemptLimit {
			return ErrAttemptLimitReached
		}
	}

	return nil
}

// ===== OTP FLOW =====

func (s *joinService) RequestOtp(ctx context.Context, req *RequestOtpRequest) error {
	req.Email = normalizeEmail(req.Email)
	req.SessionCode = normalizeCode(req.SessionCode)
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return errs
	}

	session, err := s.getEligibleSession(ctx, req.SessionCode, req.Email)
	if err != nil {
		return err
	}

	// Refuse while a previous code is still live
	ttl, err := s.cache.Guest.TTL(ctx, otpKey(req.Email, session.ID))
	if err == nil && ttl > 0 {
		return NewWaitError(ErrOTPStillValid, int(ttl.Seconds()))
	}

	return s.issueOtp(ctx, session, req.Email)
}

func (s *joinService) ResendOtp(ctx context.Context, req *ResendOtpRequest) error {
	req.Email = normalizeEmail(req.Email)
	req.SessionCode = normalizeCode(req.SessionCode)
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return errs
	}

	session, err := s.getEligibleSession(ctx, req.SessionCode, req.Email)
	if err != nil {
		return err
	}

	// Resend only once the outstanding code is nearly expired
	ttl, err := s.cache.Guest.TTL(ctx, otpKey(req.Email, session.ID))
	if err == nil && ttl >= s.cfg.OTPResendWindow {
		wait := ttl - s.cfg.OTPResendWindow
		return NewWaitError(ErrOTPResendTooEarly, int(wait.Seconds()))
	}

	return s.issueOtp(ctx, session, req.Email)
}

func (s *joinService) issueOtp(ctx context.Context, session *models.ExamSession, email string) error {
	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	salt, err := utils.RandomSalt(16)
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	if err := s.cache.Guest.SetString(ctx, otpKey(email, session.ID), utils.HashOTP(otp, salt), s.cfg.OTPTTL); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	if err := s.cache.Guest.SetString(ctx, otpSaltKey(email, session.ID), salt, s.cfg.OTPTTL); err != nil {
		return fmt.Errorf("failed to store OTP salt: %w", err)
	}

	if err := s.notifier.SendOtpMail(ctx, email, session.Name, otp, s.cfg.OTPTTL); err != nil {
		s.logger.Error("Failed to publish OTP mail event",
			"session_id", session.ID,
			"email", email,
			"error", err)
		return fmt.Errorf("failed to send OTP mail: %w", err)
	}

	s.logger.Info("OTP issued",
		"session_id", session.ID,
		"email", email,
		"ttl_seconds", int(s.cfg.OTPTTL.Seconds()))

	return nil
}

func (s *joinService) VerifyOtp(ctx context.Context, req *VerifyOtpRequest) (*SessionTokenResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.SessionCode = normalizeCode(req.SessionCode)
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}

	session, err := s.getEligibleSession(ctx, req.SessionCode, req.Email)
	if err != nil {
		return nil, err
	}

	hash, err := s.cache.Guest.GetString(ctx, otpKey(req.Email, session.ID))
	if err != nil {
		return nil, ErrOTPInvalid
	}
	salt, err := s.cache.Guest.GetString(ctx, otpSaltKey(req.Email, session.ID))
	if err != nil {
		return nil, ErrOTPInvalid
	}

	if !utils.OTPMatches(req.OTP, salt, hash) {
		return nil, ErrOTPInvalid
	}

	// Single use
	if err := s.cache.Guest.Delete(ctx, otpKey(req.Email, session.ID), otpSaltKey(req.Email, session.ID)); err != nil {
		s.logger.Warn("Failed to delete consumed OTP", "email", req.Email, "error", err)
	}

	token := uuid.NewString()
	value := fmt.Sprintf("%d:%s", session.ID, req.Email)
	if err := s.cache.Guest.SetString(ctx, guestTokenKey(token), value, s.cfg.GuestTokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store session token: %w", err)
	}

	s.logger.Info("Guest verified, session token issued",
		"session_id", session.ID,
		"email", req.Email)

	return &SessionTokenResponse{
		Token:       token,
		SessionID:   session.ID,
		SessionName: session.Name,
		Email:       req.Email,
		ExpiresAt:   time.Now().Add(s.cfg.GuestTokenTTL),
	}, nil
}

// ===== SESSION TOKENS =====

func (s *joinService) ValidateSessionToken(ctx context.Context, token string) (*TokenValidationResponse, error) {
	if token == "" {
		return nil, ErrSessionTokenRequired
	}

	value, err := s.cache.Guest.GetString(ctx, guestTokenKey(token))
	if err != nil {
		return nil, ErrSessionTokenInvalid
	}

	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return nil, ErrSessionTokenInvalid
	}
	sessionID, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return nil, ErrSessionTokenInvalid
	}

	resp := &TokenValidationResponse{
		SessionID: uint(sessionID),
		Email:     parts[1],
	}

	if ttl, err := s.cache.Guest.TTL(ctx, guestTokenKey(token)); err == nil && ttl > 0 {
		resp.ExpiresAt = time.Now().Add(ttl)
	}

	return resp, nil
}

// getEligibleSession loads the session by join code and runs the full
// eligibility check used by all OTP endpoints.
func (s *joinService) getEligibleSession(ctx context.Context, code string, email string) (*models.ExamSession, error) {
	session, err := s.repo.Session().GetByCode(ctx, code)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.checkJoinEligibility(ctx, session, email); err != nil {
		return nil, err
	}

	return session, nil
}
