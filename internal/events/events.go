package events

import "time"

// Topics consumed by the mailer and analytics services.
const (
	TopicMailRequests     = "exam.mail.requests"
	TopicAttemptSubmitted = "exam.attempts.submitted"
)

// Mail template names, resolved by the mailer service.
const (
	TemplateOTPMail    = "mail-notification-otp-template"
	TemplateResultMail = "mail-notification-result-template"
)

// MailRequested asks the mailer to render a template and send it.
type MailRequested struct {
	To        string                 `json:"to"`
	Subject   string                 `json:"subject"`
	Template  string                 `json:"template"`
	Variables map[string]interface{} `json:"variables"`
	CreatedAt time.Time              `json:"created_at"`
}

// AttemptSubmitted is emitted once an attempt reaches a terminal state.
type AttemptSubmitted struct {
	AttemptID     uint      `json:"attempt_id"`
	SessionID     uint      `json:"session_id"`
	StudentEmail  string    `json:"student_email"`
	AttemptNo     int       `json:"attempt_no"`
	ScoreAuto     float64   `json:"score_auto"`
	GradingStatus string    `json:"grading_status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
