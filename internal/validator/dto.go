package validator

// RequestOtpRequest represents the request to send an OTP mail to a guest.
// The session is addressed by its join code, the only identifier guests see.
type RequestOtpRequest struct {
	SessionCode string `json:"session_code" validate:"required,session_code"`
	Email       string `json:"email" validate:"required,email"`
}

// ResendOtpRequest represents the request to resend the OTP mail
type ResendOtpRequest struct {
	SessionCode string `json:"session_code" validate:"required,session_code"`
	Email       string `json:"email" validate:"required,email"`
}

// VerifyOtpRequest represents the OTP verification request
type VerifyOtpRequest struct {
	SessionCode string `json:"session_code" validate:"required,session_code"`
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,otp_code"`
}

// JoinByCodeRequest looks up a session by its join code. Email is optional
// and only used to compute the remaining attempts for that guest.
type JoinByCodeRequest struct {
	Code  string `json:"code" validate:"required,session_code"`
	Email string `json:"email" validate:"omitempty,email"`
}

// StartAttemptRequest starts a new attempt for the guest behind the session
// token. The token may also be sent as a body field instead of the
// X-Session-Token header; the header wins when both are present.
type StartAttemptRequest struct {
	SessionID    uint    `json:"session_id" validate:"required"`
	SessionToken string  `json:"session_token" validate:"omitempty"`
	Name         string  `json:"name" validate:"omitempty,max=255"`
	DeviceInfo   *string `json:"device_info" validate:"omitempty,max=500"`
}

// AnswerSubmission is one answer inside a submit request. Which fields are
// allowed depends on the question type and is checked at the service layer.
type AnswerSubmission struct {
	AttemptQuestionID uint    `json:"attempt_question_id" validate:"required"`
	SelectedAnswerID  *uint   `json:"selected_answer_id"`
	SelectedAnswerIDs []uint  `json:"selected_answer_ids"`
	Text              *string `json:"text"`
	Rows              []int   `json:"rows"`
}

// SubmitAttemptRequest submits all answers of an attempt
type SubmitAttemptRequest struct {
	Answers []AnswerSubmission `json:"answers" validate:"dive"`
}

// QuestionGrade is a manual score for one attempt question
type QuestionGrade struct {
	AttemptQuestionID uint    `json:"attempt_question_id" validate:"required"`
	Score             float64 `json:"score" validate:"min=0"`
	Comment           *string `json:"comment" validate:"omitempty,max=1000"`
}

// ManualGradeRequest applies manual grades to an attempt (essay questions)
type ManualGradeRequest struct {
	Grades []QuestionGrade `json:"grades" validate:"required,min=1,dive"`
}

// AssignStudentsRequest adds emails to the whitelist of a private session
type AssignStudentsRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=500,dive,email"`
}
