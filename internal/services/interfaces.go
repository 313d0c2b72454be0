package services

import (
	"context"
	"io"
	"time"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
	"github.com/DATN-2025/exam-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type RequestOtpRequest = validator.RequestOtpRequest
type ResendOtpRequest = validator.ResendOtpRequest
type VerifyOtpRequest = validator.VerifyOtpRequest
type JoinByCodeRequest = validator.JoinByCodeRequest
type StartAttemptRequest = validator.StartAttemptRequest
type AnswerSubmission = validator.AnswerSubmission
type SubmitAttemptRequest = validator.SubmitAttemptRequest
type ManualGradeRequest = validator.ManualGradeRequest
type QuestionGrade = validator.QuestionGrade
type AssignStudentsRequest = validator.AssignStudentsRequest

// GuestAccess identifies the guest behind a validated session token
type GuestAccess struct {
	SessionID uint   `json:"session_id"`
	Email     string `json:"email"`
}

type SessionTokenResponse struct {
	Token       string    `json:"token_join_start"`
	SessionID   uint      `json:"session_id"`
	SessionName string    `json:"session_name"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type TokenValidationResponse struct {
	SessionID uint      `json:"session_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionInfoResponse is the join screen metadata. It never leaks questions
// or correct answers.
type SessionInfoResponse struct {
	SessionID        uint                 `json:"session_id"`
	Name             string               `json:"name"`
	Code             string               `json:"code"`
	Status           models.SessionStatus `json:"status"`
	AccessMode       models.AccessMode    `json:"access_mode"`
	StartTime        *time.Time           `json:"start_time"`
	EndTime          *time.Time           `json:"end_time"`
	DurationMinutes  int                  `json:"duration_minutes"`
	AttemptLimit     int                  `json:"attempt_limit"`
	QuestionCount    int                  `json:"question_count"`
	CanJoin          bool                 `json:"can_join"`
	AttemptRemaining *int                 `json:"attempt_remaining,omitempty"`
	Message          string               `json:"message,omitempty"`
}

// AnswerOptionView is an answer option as shown to the guest, without the
// correctness flag.
type AnswerOptionView struct {
	AnswerID   uint   `json:"answer_id"`
	Value      string `json:"value"`
	OrderIndex int    `json:"order_index"`
}

// AttemptQuestionView is a frozen question as shown to the guest
type AttemptQuestionView struct {
	ID            uint                  `json:"id"`
	OrderIndex    int                   `json:"order_index"`
	Type          models.QuestionType   `json:"type"`
	Text          string                `json:"text"`
	Point         float64               `json:"point"`
	QuestionValue interface{}           `json:"question_value,omitempty"`
	Answers       []AnswerOptionView    `json:"answers,omitempty"`
	Answer        *models.AnswerPayload `json:"answer,omitempty"`
}

type AttemptResponse struct {
	*models.ExamAttempt
	TimeRemaining int                   `json:"time_remaining"` // seconds
	CanSubmit     bool                  `json:"can_submit"`
	Questions     []AttemptQuestionView `json:"questions,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*models.ExamAttempt `json:"attempts"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	Size     int                   `json:"size"`
}

// QuestionGradingView is a frozen question with its correct answers and the
// guest's payload, for the grading screens.
type QuestionGradingView struct {
	AttemptQuestionID uint                    `json:"attempt_question_id"`
	OrderIndex        int                     `json:"order_index"`
	Type              models.QuestionType     `json:"type"`
	Text              string                  `json:"text"`
	Point             float64                 `json:"point"`
	Snapshot          models.QuestionSnapshot `json:"snapshot"`
	Answer            *models.AnswerPayload   `json:"answer,omitempty"`
	AutoScore         float64                 `json:"auto_score"`
	ManualScore       *float64                `json:"manual_score,omitempty"`
	Correct           *bool                   `json:"correct,omitempty"`
}

type AttemptGradingResponse struct {
	AttemptID     uint                  `json:"attempt_id"`
	SessionID     uint                  `json:"session_id"`
	StudentEmail  string                `json:"student_email"`
	AttemptNo     int                   `json:"attempt_no"`
	Status        models.AttemptStatus  `json:"status"`
	GradingStatus models.GradingStatus  `json:"grading_status"`
	ScoreAuto     float64               `json:"score_auto"`
	ScoreManual   float64               `json:"score_manual"`
	TotalScore    float64               `json:"total_score"`
	MaxScore      float64               `json:"max_score"`
	SubmittedAt   *time.Time            `json:"submitted_at"`
	Questions     []QuestionGradingView `json:"questions"`
}

type WhitelistImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

// JoinService handles the guest access flow: join screens, OTP issuance and
// verification, and session token validation.
type JoinService interface {
	// Join screens
	GetSessionInfo(ctx context.Context, joinToken string, email string) (*SessionInfoResponse, error)
	JoinByCode(ctx context.Context, req *JoinByCodeRequest) (*SessionInfoResponse, error)

	// OTP flow
	RequestOtp(ctx context.Context, req *RequestOtpRequest) error
	ResendOtp(ctx context.Context, req *ResendOtpRequest) error
	VerifyOtp(ctx context.Context, req *VerifyOtpRequest) (*SessionTokenResponse, error)

	// Session tokens
	ValidateSessionToken(ctx context.Context, token string) (*TokenValidationResponse, error)
}

type AttemptService interface {
	// Guest operations (authenticated by session token)
	Start(ctx context.Context, req *StartAttemptRequest, guest GuestAccess, ipAddress string) (*AttemptResponse, error)
	Submit(ctx context.Context, attemptID uint, req *SubmitAttemptRequest, guest GuestAccess) (*AttemptResponse, error)
	GetCurrent(ctx context.Context, sessionID uint, guest GuestAccess) (*AttemptResponse, error)

	// Staff operations
	ListBySession(ctx context.Context, sessionID uint, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error)
	GetSessionStats(ctx context.Context, sessionID uint, userID string) (*repositories.SessionAttemptStats, error)

	// Expiry sweep: abandons IN_PROGRESS attempts past their deadline.
	// Returns the number of attempts closed.
	CloseExpiredAttempts(ctx context.Context, limit int) (int, error)
}

type GradingService interface {
	// Auto grading. GradeSubmission runs inside the caller's transaction so
	// a submit commits answers and scores together.
	AutoGradeAttempt(ctx context.Context, attemptID uint) error
	GradeSubmission(ctx context.Context, r repositories.Repository, attempt *models.ExamAttempt) error

	// Manual grading (essay questions)
	GetForGrading(ctx context.Context, attemptID uint, userID string) (*AttemptGradingResponse, error)
	ApplyManualGrade(ctx context.Context, attemptID uint, req *ManualGradeRequest, graderID string) (*AttemptGradingResponse, error)
}

// WhitelistService manages the roster of private sessions
type WhitelistService interface {
	ImportXLSX(ctx context.Context, sessionID uint, file io.Reader, userID string) (*WhitelistImportResult, error)
	Assign(ctx context.Context, sessionID uint, req *AssignStudentsRequest, userID string) (*WhitelistImportResult, error)
	List(ctx context.Context, sessionID uint, userID string) ([]*models.SessionStudent, error)
	Remove(ctx context.Context, sessionID uint, email string, userID string) error
}

// NotificationEventService publishes outbound events; mail delivery is owned
// by the notification service consuming the topic.
type NotificationEventService interface {
	SendOtpMail(ctx context.Context, email, sessionName, otp string, ttl time.Duration) error
	SendResultMail(ctx context.Context, attempt *models.ExamAttempt, sessionName string) error
	PublishAttemptSubmitted(ctx context.Context, attempt *models.ExamAttempt) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Join() JoinService
	Attempt() AttemptService
	Grading() GradingService
	Whitelist() WhitelistService
	Notification() NotificationEventService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
