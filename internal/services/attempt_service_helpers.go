package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
)

// ===== SNAPSHOT BUILDING =====

// buildAttemptQuestions freezes the session questions into per-attempt
// snapshots. Question and answer order is shuffled per session settings so
// the frozen order survives later edits to the session.
func buildAttemptQuestions(attemptID uint, session *models.ExamSession) ([]*models.AttemptQuestion, error) {
	order := make([]int, len(session.Questions))
	for i := range order {
		order[i] = i
	}
	if session.ShuffleQuestions {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	questions := make([]*models.AttemptQuestion, 0, len(order))
	for pos, idx := range order {
		q := session.Questions[idx]

		snapshot, err := buildQuestionSnapshot(&q, session.ShuffleAnswers)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}

		questions = append(questions, &models.AttemptQuestion{
			AttemptID:  attemptID,
			QuestionID: q.ID,
			OrderIndex: pos,
			Type:       q.Type,
			Point:      q.Point,
			Snapshot:   snapshot,
		})
	}

	return questions, nil
}

func buildQuestionSnapshot(q *models.SessionQuestion, shuffleAnswers bool) (datatypes.JSON, error) {
	snapshot := models.QuestionSnapshot{
		Text:          q.Text,
		Type:          q.Type,
		Point:         q.Point,
		QuestionValue: json.RawMessage(q.QuestionValue),
	}

	if len(q.Answers) > 0 {
		answers := make([]models.AnswerSnapshot, len(q.Answers))
		for i, a := range q.Answers {
			answers[i] = models.AnswerSnapshot{
				AnswerID:   a.ID,
				Value:      a.Value,
				Result:     a.Result,
				OrderIndex: a.OrderIndex,
			}
		}
		// Row order is the whole point of TABLE_CHOICE, never shuffle it
		if shuffleAnswers && q.Type != models.TableChoice {
			rand.Shuffle(len(answers), func(i, j int) {
				answers[i], answers[j] = answers[j], answers[i]
			})
			for i := range answers {
				answers[i].OrderIndex = i
			}
		}
		snapshot.Answers = answers
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeSnapshot(q *models.AttemptQuestion) (*models.QuestionSnapshot, error) {
	var snapshot models.QuestionSnapshot
	if err := json.Unmarshal(q.Snapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of question %d: %w", q.ID, err)
	}
	return &snapshot, nil
}

func decodeAnswerPayload(a *models.AttemptAnswer) (*models.AnswerPayload, error) {
	if a == nil {
		return nil, nil
	}
	var payload models.AnswerPayload
	if err := json.Unmarshal(a.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode answer payload %d: %w", a.ID, err)
	}
	return &payload, nil
}

// ===== GUEST VIEW SANITIZATION =====

// sanitizeQuestionValue strips grading material out of the question value
// before it is shown to the guest.
func sanitizeQuestionValue(qType models.QuestionType, raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}

	switch qType {
	case models.PlainText:
		// Expected answer never leaves the server
		return nil

	case models.Essay:
		var value models.EssayValue
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil
		}
		return map[string]interface{}{
			"minWords": value.MinWords,
			"maxWords": value.MaxWords,
		}

	case models.TableChoice:
		var value models.TableChoiceValue
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil
		}
		labels := make([]string, len(value.Rows))
		for i, row := range value.Rows {
			labels[i] = row.Label
		}
		return map[string]interface{}{
			"headers": value.Headers,
			"rows":    labels,
		}

	default:
		return nil
	}
}

func (s *attemptService) buildAttemptResponse(ctx context.Context, attemptID uint) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetWithQuestions(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}

	now := time.Now()
	remaining := int(attempt.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 || attempt.Status != models.AttemptInProgress {
		remaining = 0
	}

	views := make([]AttemptQuestionView, 0, len(attempt.Questions))
	for i := range attempt.Questions {
		q := &attempt.Questions[i]

		snapshot, err := decodeSnapshot(q)
		if err != nil {
			return nil, err
		}
		payload, err := decodeAnswerPayload(q.Answer)
		if err != nil {
			return nil, err
		}

		view := AttemptQuestionView{
			ID:            q.ID,
			OrderIndex:    q.OrderIndex,
			Type:          q.Type,
			Text:          snapshot.Text,
			Point:         q.Point,
			QuestionValue: sanitizeQuestionValue(q.Type, snapshot.QuestionValue),
			Answer:        payload,
		}
		for _, a := range snapshot.Answers {
			view.Answers = append(view.Answers, AnswerOptionView{
				AnswerID:   a.AnswerID,
				Value:      a.Value,
				OrderIndex: a.OrderIndex,
			})
		}
		views = append(views, view)
	}

	return &AttemptResponse{
		ExamAttempt:   attempt,
		TimeRemaining: remaining,
		CanSubmit:     attempt.Status == models.AttemptInProgress && !now.After(attempt.ExpiresAt.Add(s.cfg.SubmitGrace)),
		Questions:     views,
	}, nil
}

// ===== SUBMISSION VALIDATION =====

// validateSubmission checks each answer against the shape its question type
// expects. Errors are keyed by the answer position in the request.
func validateSubmission(attempt *models.ExamAttempt, req *SubmitAttemptRequest) ValidationErrors {
	questionsByID := make(map[uint]*models.AttemptQuestion, len(attempt.Questions))
	for i := range attempt.Questions {
		questionsByID[attempt.Questions[i].ID] = &attempt.Questions[i]
	}

	var errs ValidationErrors
	for i, ans := range req.Answers {
		prefix := fmt.Sprintf("answers[%d]", i)

		question, ok := questionsByID[ans.AttemptQuestionID]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".attempt_question_id",
				Message: ErrInvalidAttemptQuestion.Error(),
				Value:   ans.AttemptQuestionID,
			})
			continue
		}

		// Each type accepts exactly one payload shape; fields belonging to
		// other types are rejected, not silently dropped.
		switch question.Type {
		case models.OneChoice, models.TrueFalse:
			if ans.SelectedAnswerID == nil {
				errs = append(errs, ValidationError{
					Field:   prefix + ".selected_answer_id",
					Message: "a single answer must be selected",
				})
			}
			errs = append(errs, rejectForeignFields(prefix, question.Type, ans, false, true, true, true)...)
		case models.MultiChoice:
			if len(ans.SelectedAnswerIDs) == 0 {
				errs = append(errs, ValidationError{
					Field:   prefix + ".selected_answer_ids",
					Message: "at least one answer must be selected",
				})
			}
			errs = append(errs, rejectForeignFields(prefix, question.Type, ans, true, false, true, true)...)
		case models.PlainText, models.Essay:
			if ans.Text == nil || strings.TrimSpace(*ans.Text) == "" {
				errs = append(errs, ValidationError{
					Field:   prefix + ".text",
					Message: "answer text must not be blank",
				})
			}
			errs = append(errs, rejectForeignFields(prefix, question.Type, ans, true, true, false, true)...)
		case models.TableChoice:
			if len(ans.Rows) == 0 {
				errs = append(errs, ValidationError{
					Field:   prefix + ".rows",
					Message: "row selections must not be empty",
				})
			}
			errs = append(errs, rejectForeignFields(prefix, question.Type, ans, true, true, true, false)...)
		}
	}

	return errs
}

// rejectForeignFields flags payload fields that do not belong to the question
// type. The four flags name which fields are foreign for this type.
func rejectForeignFields(prefix string, qType models.QuestionType, ans AnswerSubmission, single, multi, text, rows bool) ValidationErrors {
	message := fmt.Sprintf("not allowed for %s questions", qType)

	var errs ValidationErrors
	if single && ans.SelectedAnswerID != nil {
		errs = append(errs, ValidationError{Field: prefix + ".selected_answer_id", Message: message})
	}
	if multi && len(ans.SelectedAnswerIDs) > 0 {
		errs = append(errs, ValidationError{Field: prefix + ".selected_answer_ids", Message: message})
	}
	if text && ans.Text != nil {
		errs = append(errs, ValidationError{Field: prefix + ".text", Message: message})
	}
	if rows && len(ans.Rows) > 0 {
		errs = append(errs, ValidationError{Field: prefix + ".rows", Message: message})
	}
	return errs
}

// mapAnswerPayload converts a submitted answer into the stored payload shape
// for its question type. Fields of other types are dropped.
func mapAnswerPayload(qType models.QuestionType, ans AnswerSubmission) models.AnswerPayload {
	switch qType {
	case models.OneChoice, models.TrueFalse:
		if ans.SelectedAnswerID != nil {
			return models.AnswerPayload{SelectedAnswerIDs: []uint{*ans.SelectedAnswerID}}
		}
		return models.AnswerPayload{}
	case models.MultiChoice:
		return models.AnswerPayload{SelectedAnswerIDs: ans.SelectedAnswerIDs}
	case models.PlainText, models.Essay:
		if ans.Text != nil {
			return models.AnswerPayload{Text: strings.TrimSpace(*ans.Text)}
		}
		return models.AnswerPayload{}
	case models.TableChoice:
		return models.AnswerPayload{Rows: ans.Rows}
	default:
		return models.AnswerPayload{}
	}
}

func buildAnswerRecord(question *models.AttemptQuestion, payload models.AnswerPayload) (*models.AttemptAnswer, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &models.AttemptAnswer{
		AttemptQuestionID: question.ID,
		Payload:           datatypes.JSON(raw),
	}, nil
}
