package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
	"github.com/DATN-2025/exam-service/internal/validator"
)

// Hard cap on a single roster import
const maxImportRows = 5000

type whitelistService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewWhitelistService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) WhitelistService {
	return &whitelistService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== XLSX IMPORT =====

// ImportXLSX reads a roster spreadsheet and assigns every valid email to the
// session. The email column is located by header name, the optional column
// next to it is taken as the full name. Rows that fail validation are
// reported but do not abort the import.
func (s *whitelistService) ImportXLSX(ctx context.Context, sessionID uint, file io.Reader, userID string) (*WhitelistImportResult, error) {
	if err := s.checkStaffAccess(ctx, sessionID, userID, "import_whitelist"); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, NewValidationError("file", "file is not a valid xlsx workbook", nil)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "workbook has no sheets", nil)
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) > maxImportRows {
		return nil, NewValidationError("file", fmt.Sprintf("workbook exceeds %d rows", maxImportRows), len(rows))
	}

	emailCol, nameCol, dataStart := locateColumns(rows)

	result := &WhitelistImportResult{}
	seen := make(map[string]bool)
	var students []*models.SessionStudent

	for i := dataStart; i < len(rows); i++ {
		row := rows[i]
		if emailCol >= len(row) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(row[emailCol]))
		if email == "" {
			continue
		}
		if _, err := mail.ParseAddress(email); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid email %q", i+1, email))
			continue
		}
		if seen[email] {
			result.Skipped++
			continue
		}
		seen[email] = true

		student := &models.SessionStudent{SessionID: sessionID, Email: email}
		if nameCol >= 0 && nameCol < len(row) {
			student.FullName = strings.TrimSpace(row[nameCol])
		}
		students = append(students, student)
	}

	if len(students) > 0 {
		if err := s.repo.SessionStudent().AssignBatch(ctx, students); err != nil {
			return nil, fmt.Errorf("failed to assign students: %w", err)
		}
	}
	result.Imported = len(students)

	s.logger.Info("Whitelist imported from xlsx",
		"session_id", sessionID,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"user_id", userID)

	return result, nil
}

// locateColumns finds the email and full-name columns from the header row.
// Without a recognizable header the first column is assumed to hold emails
// and every row is data.
func locateColumns(rows [][]string) (emailCol, nameCol, dataStart int) {
	emailCol, nameCol, dataStart = 0, -1, 0
	if len(rows) == 0 {
		return
	}
	for col, header := range rows[0] {
		switch normalized := strings.ToLower(strings.TrimSpace(header)); normalized {
		case "email", "e-mail", "mail":
			emailCol = col
			dataStart = 1
		case "name", "full name", "fullname", "full_name", "ho ten", "họ tên":
			nameCol = col
			dataStart = 1
		}
	}
	return
}

// ===== ROSTER MANAGEMENT =====

func (s *whitelistService) Assign(ctx context.Context, sessionID uint, req *AssignStudentsRequest, userID string) (*WhitelistImportResult, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkStaffAccess(ctx, sessionID, userID, "assign_students"); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	result := &WhitelistImportResult{}
	seen := make(map[string]bool)
	var students []*models.SessionStudent

	for _, email := range req.Emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" || seen[email] {
			result.Skipped++
			continue
		}
		seen[email] = true
		students = append(students, &models.SessionStudent{SessionID: sessionID, Email: email})
	}

	if len(students) > 0 {
		if err := s.repo.SessionStudent().AssignBatch(ctx, students); err != nil {
			return nil, fmt.Errorf("failed to assign students: %w", err)
		}
	}
	result.Imported = len(students)

	s.logger.Info("Students assigned to session",
		"session_id", sessionID,
		"imported", result.Imported,
		"user_id", userID)

	return result, nil
}

func (s *whitelistService) List(ctx context.Context, sessionID uint, userID string) ([]*models.SessionStudent, error) {
	if err := s.checkStaffAccess(ctx, sessionID, userID, "list_whitelist"); err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	students, err := s.repo.SessionStudent().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list whitelist: %w", err)
	}
	return students, nil
}

func (s *whitelistService) Remove(ctx context.Context, sessionID uint, email string, userID string) error {
	if err := s.checkStaffAccess(ctx, sessionID, userID, "remove_student"); err != nil {
		return err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.repo.SessionStudent().Remove(ctx, sessionID, email); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudentNotAssigned
		}
		return fmt.Errorf("failed to remove student: %w", err)
	}

	s.logger.Info("Student removed from whitelist",
		"session_id", sessionID,
		"email", email,
		"user_id", userID)

	return nil
}

func (s *whitelistService) getSession(ctx context.Context, sessionID uint) (*models.ExamSession, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.Deleted {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *whitelistService) checkStaffAccess(ctx context.Context, sessionID uint, userID, action string) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.IsStaff() {
		return NewPermissionError(userID, sessionID, "session", action, "insufficient role permissions")
	}
	return nil
}
