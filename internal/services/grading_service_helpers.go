package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/DATN-2025/exam-service/internal/models"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ===== PER-TYPE GRADING =====
// Pure functions over the frozen snapshot and the stored payload. A nil
// correctness result means the question cannot be auto-graded.

// gradeQuestion scores one frozen question. Returns the correctness verdict
// (nil for manual-review types) and the points awarded.
func gradeQuestion(snapshot *models.QuestionSnapshot, payload *models.AnswerPayload) (*bool, float64) {
	switch snapshot.Type {
	case models.OneChoice, models.TrueFalse:
		correct := payload != nil && gradeSingleChoice(snapshot.Answers, payload.SelectedAnswerIDs)
		return &correct, pointsIf(correct, snapshot.Point)

	case models.MultiChoice:
		correct := payload != nil && gradeMultiChoice(snapshot.Answers, payload.SelectedAnswerIDs)
		return &correct, pointsIf(correct, snapshot.Point)

	case models.PlainText:
		var value models.PlainTextValue
		if err := json.Unmarshal(snapshot.QuestionValue, &value); err != nil || strings.TrimSpace(value.ExpectedAnswer) == "" {
			// No reference answer, leave it for manual review
			return nil, 0
		}
		text := ""
		if payload != nil {
			text = payload.Text
		}
		correct := gradePlainText(value, text)
		return &correct, pointsIf(correct, snapshot.Point)

	case models.TableChoice:
		var value models.TableChoiceValue
		if err := json.Unmarshal(snapshot.QuestionValue, &value); err != nil {
			return nil, 0
		}
		correct := payload != nil && gradeTableChoice(value, payload.Rows)
		return &correct, pointsIf(correct, snapshot.Point)

	default: // ESSAY
		return nil, 0
	}
}

// gradeSingleChoice passes only when the snapshot has exactly one correct
// option and exactly that option was selected.
func gradeSingleChoice(answers []models.AnswerSnapshot, selected []uint) bool {
	if len(selected) != 1 {
		return false
	}
	var correctID uint
	correctCount := 0
	for _, a := range answers {
		if a.Result {
			correctID = a.AnswerID
			correctCount++
		}
	}
	return correctCount == 1 && selected[0] == correctID
}

// gradeMultiChoice compares the selected set against the correct set, no
// partial credit.
func gradeMultiChoice(answers []models.AnswerSnapshot, selected []uint) bool {
	correct := make(map[uint]bool)
	for _, a := range answers {
		if a.Result {
			correct[a.AnswerID] = true
		}
	}
	if len(correct) == 0 || len(selected) != len(correct) {
		return false
	}
	seen := make(map[uint]bool, len(selected))
	for _, id := range selected {
		if seen[id] || !correct[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

func gradePlainText(value models.PlainTextValue, text string) bool {
	got := normalizeText(text, value.CaseSensitive)
	want := normalizeText(value.ExpectedAnswer, value.CaseSensitive)
	if got == "" {
		return false
	}
	if value.ExactMatch {
		return got == want
	}
	return strings.Contains(got, want)
}

// normalizeText trims, collapses internal whitespace runs and lowercases
// unless the question is case sensitive.
func normalizeText(s string, caseSensitive bool) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

func gradeTableChoice(value models.TableChoiceValue, rows []int) bool {
	if len(rows) != len(value.Rows) {
		return false
	}
	for i, row := range value.Rows {
		if rows[i] != row.CorrectIndex {
			return false
		}
	}
	return true
}

func pointsIf(correct bool, point float64) float64 {
	if correct {
		return point
	}
	return 0
}
