package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/validator"
)

func newTestWhitelistService(t *testing.T) (WhitelistService, *mockRepository) {
	t.Helper()
	repo := newMockRepository()
	repo.users.addUser(&models.User{ID: "t1", Email: "teacher@example.com", Role: models.RoleTeacher})
	repo.users.addUser(&models.User{ID: "s1", Email: "student@example.com", Role: models.RoleStudent})
	svc := NewWhitelistService(repo, testLogger(), validator.New())
	return svc, repo
}

func buildRosterFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("bad cell coordinates: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cellRef, cell); err != nil {
				t.Fatalf("failed to set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	return buf
}

func TestWhitelistService_ImportXLSX(t *testing.T) {
	svc, repo := newTestWhitelistService(t)
	session := openPublicSession(1)
	session.AccessMode = models.AccessPrivate
	repo.sessions.add(session)
	ctx := context.Background()

	file := buildRosterFile(t, [][]interface{}{
		{"Email", "Full Name"},
		{"Alice@Example.com", "Alice Nguyen"},
		{"bob@example.com", "Bob Tran"},
		{"not-an-email", "Broken Row"},
		{"alice@example.com", "Duplicate Alice"},
		{"", ""},
	})

	result, err := svc.ImportXLSX(ctx, 1, file, "t1")
	if err != nil {
		t.Fatalf("ImportXLSX failed: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("expected 2 imported, got %d", result.Imported)
	}
	if result.Skipped == 0 || len(result.Errors) == 0 {
		t.Errorf("expected the broken row to be reported, got %+v", result)
	}

	students, err := svc.List(ctx, 1, "t1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 roster entries, got %d", len(students))
	}
	for _, s := range students {
		if s.Email != "alice@example.com" && s.Email != "bob@example.com" {
			t.Errorf("unexpected roster entry %q", s.Email)
		}
	}
}

func TestWhitelistService_ImportXLSX_BadFile(t *testing.T) {
	svc, repo := newTestWhitelistService(t)
	repo.sessions.add(openPublicSession(1))

	_, err := svc.ImportXLSX(context.Background(), 1, bytes.NewBufferString("not a workbook"), "t1")
	var validationErrs ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Fatalf("expected validation errors for a broken file, got %v", err)
	}
}

func TestWhitelistService_AssignAndRemove(t *testing.T) {
	svc, repo := newTestWhitelistService(t)
	repo.sessions.add(openPublicSession(1))
	ctx := context.Background()

	result, err := svc.Assign(ctx, 1, &AssignStudentsRequest{
		Emails: []string{"Carol@Example.com", "dave@example.com", "carol@example.com"},
	}, "t1")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("expected 2 assigned after dedupe, got %d", result.Imported)
	}

	if err := svc.Remove(ctx, 1, "CAROL@example.com", "t1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := svc.Remove(ctx, 1, "carol@example.com", "t1"); !errors.Is(err, ErrStudentNotAssigned) {
		t.Fatalf("expected ErrStudentNotAssigned on second remove, got %v", err)
	}

	students, err := svc.List(ctx, 1, "t1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(students) != 1 || students[0].Email != "dave@example.com" {
		t.Fatalf("unexpected roster after remove: %+v", students)
	}
}

func TestWhitelistService_StaffOnly(t *testing.T) {
	svc, repo := newTestWhitelistService(t)
	repo.sessions.add(openPublicSession(1))

	_, err := svc.List(context.Background(), 1, "s1")
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected permission error for student, got %v", err)
	}

	if _, err := svc.List(context.Background(), 99, "t1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
