package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

type AccessMode string

const (
	AccessPublic  AccessMode = "PUBLIC"
	AccessPrivate AccessMode = "PRIVATE"
)

// ExamSession là phiên thi: cổng vào cho thí sinh với mã phiên + OTP email
type ExamSession struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Code      string `json:"code" gorm:"size:16;uniqueIndex;not null"`
	Name      string `json:"name" gorm:"size:200;not null"`
	ExamName  string `json:"exam_name" gorm:"size:200"`
	JoinToken string `json:"join_token" gorm:"size:36;uniqueIndex;not null"`

	StartTime *time.Time `json:"start_time"` // nil: mở ngay
	EndTime   *time.Time `json:"end_time"`

	DurationMinutes int `json:"duration_minutes" gorm:"not null"`
	LateJoinMinutes int `json:"late_join_minutes" gorm:"default:0"`
	AttemptLimit    int `json:"attempt_limit" gorm:"default:1"`

	ShuffleQuestions bool `json:"shuffle_questions" gorm:"default:false"`
	ShuffleAnswers   bool `json:"shuffle_answers" gorm:"default:false"`

	Status     SessionStatus `json:"status" gorm:"size:16;not null;default:'OPEN'"`
	AccessMode AccessMode    `json:"access_mode" gorm:"size:16;not null;default:'PUBLIC'"`

	// Anti-cheating settings (key/value, passed through to clients as-is)
	Settings datatypes.JSON `json:"settings" gorm:"type:jsonb"`

	Deleted bool `json:"-" gorm:"default:false"`

	Questions []SessionQuestion `json:"questions,omitempty" gorm:"foreignKey:SessionID"`

	CreatedBy string    `json:"created_by" gorm:"size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExamSession) TableName() string {
	return "exam_sessions"
}

// SessionQuestion is the authoring-side question content of a session.
// Attempts never read it directly after start; they work off the frozen
// per-attempt snapshot.
type SessionQuestion struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	SessionID  uint         `json:"session_id" gorm:"not null;index"`
	OrderIndex int          `json:"order_index" gorm:"not null"`
	Type       QuestionType `json:"type" gorm:"size:20;not null"`
	Text       string       `json:"text" gorm:"type:text;not null"`
	Point      float64      `json:"point" gorm:"not null"`

	// Type-specific content: PLAIN_TEXT, ESSAY, TABLE_CHOICE (see question.go)
	QuestionValue datatypes.JSON `json:"question_value" gorm:"type:jsonb"`

	Answers []SessionAnswer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionQuestion) TableName() string {
	return "session_questions"
}

type SessionAnswer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Value      string `json:"value" gorm:"type:text;not null"`
	Result     bool   `json:"result" gorm:"default:false"`
	OrderIndex int    `json:"order_index" gorm:"not null"`
}

func (SessionAnswer) TableName() string {
	return "session_answers"
}

// SessionStudent is a whitelist entry for private sessions.
type SessionStudent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID uint      `json:"session_id" gorm:"not null;uniqueIndex:idx_session_email"`
	Email     string    `json:"email" gorm:"size:320;not null;uniqueIndex:idx_session_email"`
	FullName  string    `json:"full_name" gorm:"size:200"`
	CreatedAt time.Time `json:"created_at"`
}

func (SessionStudent) TableName() string {
	return "session_students"
}

// InJoinWindow reports whether now falls inside the session's join window,
// including the late-join grace after EndTime.
func (s *ExamSession) InJoinWindow(now time.Time) bool {
	if s.StartTime != nil && now.Before(*s.StartTime) {
		return false
	}
	if s.EndTime != nil {
		deadline := s.EndTime.Add(time.Duration(s.LateJoinMinutes) * time.Minute)
		if now.After(deadline) {
			return false
		}
	}
	return true
}
