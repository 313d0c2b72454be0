package services

import (
	"encoding/json"
	"testing"

	"github.com/DATN-2025/exam-service/internal/models"
)

func choiceAnswers() []models.AnswerSnapshot {
	return []models.AnswerSnapshot{
		{AnswerID: 1, Value: "red", Result: false},
		{AnswerID: 2, Value: "green", Result: true},
		{AnswerID: 3, Value: "blue", Result: false},
	}
}

func multiAnswers() []models.AnswerSnapshot {
	return []models.AnswerSnapshot{
		{AnswerID: 1, Value: "2", Result: true},
		{AnswerID: 2, Value: "3", Result: true},
		{AnswerID: 3, Value: "4", Result: false},
	}
}

func TestGradeSingleChoice(t *testing.T) {
	tests := []struct {
		name     string
		answers  []models.AnswerSnapshot
		selected []uint
		want     bool
	}{
		{"correct option", choiceAnswers(), []uint{2}, true},
		{"wrong option", choiceAnswers(), []uint{1}, false},
		{"nothing selected", choiceAnswers(), nil, false},
		{"two selected", choiceAnswers(), []uint{1, 2}, false},
		{"no correct option in snapshot", []models.AnswerSnapshot{{AnswerID: 1}}, []uint{1}, false},
		{"two correct options in snapshot", multiAnswers(), []uint{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeSingleChoice(tt.answers, tt.selected); got != tt.want {
				t.Errorf("gradeSingleChoice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGradeMultiChoice(t *testing.T) {
	tests := []struct {
		name     string
		selected []uint
		want     bool
	}{
		{"exact set", []uint{1, 2}, true},
		{"order does not matter", []uint{2, 1}, true},
		{"missing one", []uint{1}, false},
		{"extra wrong one", []uint{1, 2, 3}, false},
		{"duplicate selection", []uint{1, 1}, false},
		{"empty selection", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeMultiChoice(multiAnswers(), tt.selected); got != tt.want {
				t.Errorf("gradeMultiChoice(%v) = %v, want %v", tt.selected, got, tt.want)
			}
		})
	}

	if gradeMultiChoice([]models.AnswerSnapshot{{AnswerID: 1, Result: false}}, []uint{1}) {
		t.Error("a snapshot without correct options must never pass")
	}
}

func TestGradePlainText(t *testing.T) {
	tests := []struct {
		name  string
		value models.PlainTextValue
		text  string
		want  bool
	}{
		{"case and spacing ignored", models.PlainTextValue{ExpectedAnswer: "Ha Noi"}, "  ha   NOI ", true},
		{"contains by default", models.PlainTextValue{ExpectedAnswer: "hanoi"}, "the capital is hanoi today", true},
		{"exact match rejects extra text", models.PlainTextValue{ExpectedAnswer: "hanoi", ExactMatch: true}, "the capital is hanoi", false},
		{"exact match accepts normalized", models.PlainTextValue{ExpectedAnswer: "Ha Noi", ExactMatch: true}, "ha noi", true},
		{"case sensitive mismatch", models.PlainTextValue{ExpectedAnswer: "Hanoi", CaseSensitive: true, ExactMatch: true}, "hanoi", false},
		{"empty answer", models.PlainTextValue{ExpectedAnswer: "hanoi"}, "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradePlainText(tt.value, tt.text); got != tt.want {
				t.Errorf("gradePlainText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	if got := normalizeText("  Hello\t\n  World  ", false); got != "hello world" {
		t.Errorf("normalizeText() = %q", got)
	}
	if got := normalizeText("  Hello  World ", true); got != "Hello World" {
		t.Errorf("normalizeText(case sensitive) = %q", got)
	}
}

func TestGradeTableChoice(t *testing.T) {
	value := models.TableChoiceValue{
		Headers: []string{"TCP", "UDP"},
		Rows: []models.TableChoiceRow{
			{Label: "HTTP", CorrectIndex: 0},
			{Label: "DNS", CorrectIndex: 1},
		},
	}

	tests := []struct {
		name string
		rows []int
		want bool
	}{
		{"all correct", []int{0, 1}, true},
		{"one wrong", []int{0, 0}, false},
		{"too few rows", []int{0}, false},
		{"too many rows", []int{0, 1, 0}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeTableChoice(value, tt.rows); got != tt.want {
				t.Errorf("gradeTableChoice(%v) = %v, want %v", tt.rows, got, tt.want)
			}
		})
	}
}

func TestGradeQuestion(t *testing.T) {
	plainValue, _ := json.Marshal(models.PlainTextValue{ExpectedAnswer: "hanoi"})

	tests := []struct {
		name        string
		snapshot    models.QuestionSnapshot
		payload     *models.AnswerPayload
		wantCorrect *bool
		wantScore   float64
	}{
		{
			"one choice correct",
			models.QuestionSnapshot{Type: models.OneChoice, Point: 2, Answers: choiceAnswers()},
			&models.AnswerPayload{SelectedAnswerIDs: []uint{2}},
			boolPtr(true), 2,
		},
		{
			"one choice unanswered",
			models.QuestionSnapshot{Type: models.OneChoice, Point: 2, Answers: choiceAnswers()},
			nil,
			boolPtr(false), 0,
		},
		{
			"essay is never auto graded",
			models.QuestionSnapshot{Type: models.Essay, Point: 5},
			&models.AnswerPayload{Text: "a long answer"},
			nil, 0,
		},
		{
			"plain text without reference answer",
			models.QuestionSnapshot{Type: models.PlainText, Point: 1, QuestionValue: json.RawMessage(`{}`)},
			&models.AnswerPayload{Text: "anything"},
			nil, 0,
		},
		{
			"plain text correct",
			models.QuestionSnapshot{Type: models.PlainText, Point: 1, QuestionValue: plainValue},
			&models.AnswerPayload{Text: "Hanoi"},
			boolPtr(true), 1,
		},
		{
			"table choice with broken value",
			models.QuestionSnapshot{Type: models.TableChoice, Point: 2, QuestionValue: json.RawMessage(`not json`)},
			&models.AnswerPayload{Rows: []int{0}},
			nil, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, score := gradeQuestion(&tt.snapshot, tt.payload)
			if (correct == nil) != (tt.wantCorrect == nil) {
				t.Fatalf("correct = %v, want %v", correct, tt.wantCorrect)
			}
			if correct != nil && *correct != *tt.wantCorrect {
				t.Errorf("correct = %v, want %v", *correct, *tt.wantCorrect)
			}
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }
