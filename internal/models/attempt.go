package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
	AttemptAbandoned  AttemptStatus = "ABANDONED" // closed by the expiry sweep, never submitted
)

type GradingStatus string

const (
	GradingPending GradingStatus = "PENDING"
	GradingDone    GradingStatus = "DONE"
)

type ExamAttempt struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	SessionID    uint         `json:"session_id" gorm:"not null;index:idx_attempt_session_email"`
	Session      *ExamSession `json:"session,omitempty" gorm:"foreignKey:SessionID"`
	StudentEmail string       `json:"student_email" gorm:"size:320;not null;index:idx_attempt_session_email"`
	StudentName  string       `json:"student_name" gorm:"size:255"`
	AttemptNo    int          `json:"attempt_no" gorm:"not null"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null;index"`
	SubmittedAt *time.Time `json:"submitted_at"`

	ScoreAuto   float64 `json:"score_auto" gorm:"default:0"`
	ScoreManual float64 `json:"score_manual" gorm:"default:0"`

	Status        AttemptStatus `json:"status" gorm:"size:20;not null;index"`
	GradingStatus GradingStatus `json:"grading_status" gorm:"size:20;not null"`

	IPAddress  *string `json:"ip_address,omitempty" gorm:"size:45"`
	DeviceInfo *string `json:"device_info,omitempty" gorm:"size:500"`

	Questions []AttemptQuestion `json:"questions,omitempty" gorm:"foreignKey:AttemptID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// IsExpired reports whether the working window has passed at the given time.
func (a *ExamAttempt) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// AttemptQuestion freezes one question of the session into the attempt.
// Grading and rendering only ever read Snapshot, so later edits to the
// session content cannot leak into running attempts.
type AttemptQuestion struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	AttemptID  uint         `json:"attempt_id" gorm:"not null;index"`
	QuestionID uint         `json:"question_id" gorm:"not null"`
	OrderIndex int          `json:"order_index" gorm:"not null"`
	Type       QuestionType `json:"type" gorm:"size:20;not null"`
	Point      float64      `json:"point" gorm:"not null"`

	Snapshot datatypes.JSON `json:"snapshot" gorm:"type:jsonb;not null"`

	AutoScore   float64  `json:"auto_score" gorm:"default:0"`
	ManualScore *float64 `json:"manual_score"`
	Correct     *bool    `json:"correct"` // nil: not gradeable automatically (essay, missing key)

	Answer *AttemptAnswer `json:"answer,omitempty" gorm:"foreignKey:AttemptQuestionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AttemptQuestion) TableName() string {
	return "exam_attempt_questions"
}

type AttemptAnswer struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	AttemptQuestionID uint           `json:"attempt_question_id" gorm:"not null;uniqueIndex"`
	Payload           datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (AttemptAnswer) TableName() string {
	return "exam_attempt_answers"
}
