package models

import "encoding/json"

type QuestionType string

const (
	OneChoice   QuestionType = "ONE_CHOICE"
	MultiChoice QuestionType = "MULTI_CHOICE"
	TrueFalse   QuestionType = "TRUE_FALSE"
	PlainText   QuestionType = "PLAIN_TEXT"
	Essay       QuestionType = "ESSAY"
	TableChoice QuestionType = "TABLE_CHOICE"
)

// IsAutoGradeable reports whether the type is scored by the grading engine.
// Essays always go to manual review.
func (t QuestionType) IsAutoGradeable() bool {
	return t != Essay
}

// ===== SNAPSHOT SCHEMA =====
// The per-attempt question snapshot frozen at start time. JSON keys follow
// the wire format consumed by the exam client.

type QuestionSnapshot struct {
	Text          string           `json:"text"`
	Type          QuestionType     `json:"type"`
	Point         float64          `json:"point"`
	QuestionValue json.RawMessage  `json:"questionValue,omitempty"`
	Answers       []AnswerSnapshot `json:"answers,omitempty"`
}

type AnswerSnapshot struct {
	AnswerID   uint   `json:"answerId"`
	Value      string `json:"value"`
	Result     bool   `json:"result"`
	OrderIndex int    `json:"orderIndex"`
}

// ===== TYPE-SPECIFIC QUESTION VALUES =====

type PlainTextValue struct {
	ExpectedAnswer string `json:"expectedAnswer"`
	CaseSensitive  bool   `json:"caseSensitive"`
	ExactMatch     bool   `json:"exactMatch"`
}

type EssayValue struct {
	MinWords        *int    `json:"minWords,omitempty"`
	MaxWords        *int    `json:"maxWords,omitempty"`
	SampleAnswer    *string `json:"sampleAnswer,omitempty"`
	GradingCriteria *string `json:"gradingCriteria,omitempty"`
}

type TableChoiceValue struct {
	Headers []string         `json:"headers"`
	Rows    []TableChoiceRow `json:"rows"`
}

type TableChoiceRow struct {
	Label        string `json:"label"`
	CorrectIndex int    `json:"correctIndex"`
}

// ===== STORED ANSWER PAYLOAD =====

// AnswerPayload is the persisted shape of a student answer. Exactly one
// field group is set depending on the question type: choice types use
// SelectedAnswerIDs (single choice wrapped in a one-element list), text
// types use Text, TABLE_CHOICE uses Rows.
type AnswerPayload struct {
	SelectedAnswerIDs []uint `json:"selectedAnswerIds,omitempty"`
	Text              string `json:"text,omitempty"`
	Rows              []int  `json:"rows,omitempty"`
}

// IsEmpty reports whether nothing was actually answered.
func (p AnswerPayload) IsEmpty() bool {
	return len(p.SelectedAnswerIDs) == 0 && p.Text == "" && p.Rows == nil
}
