package validator

import "testing"

func TestValidateVerifyOtpRequest(t *testing.T) {
	bv := New()

	tests := []struct {
		name    string
		req     VerifyOtpRequest
		wantErr bool
	}{
		{"valid", VerifyOtpRequest{SessionCode: "EXAM-2026", Email: "alice@example.com", OTP: "123456"}, false},
		{"missing session code", VerifyOtpRequest{Email: "alice@example.com", OTP: "123456"}, true},
		{"bad email", VerifyOtpRequest{SessionCode: "EXAM-2026", Email: "not-an-email", OTP: "123456"}, true},
		{"otp too short", VerifyOtpRequest{SessionCode: "EXAM-2026", Email: "alice@example.com", OTP: "12345"}, true},
		{"otp with letters", VerifyOtpRequest{SessionCode: "EXAM-2026", Email: "alice@example.com", OTP: "12a456"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.Validate(&tt.req)
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinByCodeRequest(t *testing.T) {
	bv := New()

	tests := []struct {
		name    string
		req     JoinByCodeRequest
		wantErr bool
	}{
		{"valid code", JoinByCodeRequest{Code: "EXAM-2026"}, false},
		{"valid with email", JoinByCodeRequest{Code: "EXAM-2026", Email: "alice@example.com"}, false},
		{"lowercase code", JoinByCodeRequest{Code: "exam-2026"}, true},
		{"too short", JoinByCodeRequest{Code: "AB"}, true},
		{"bad email", JoinByCodeRequest{Code: "EXAM-2026", Email: "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.Validate(&tt.req)
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidateAssignStudentsRequest(t *testing.T) {
	bv := New()

	if errs := bv.Validate(&AssignStudentsRequest{}); len(errs) == 0 {
		t.Error("empty email list should fail")
	}
	if errs := bv.Validate(&AssignStudentsRequest{Emails: []string{"alice@example.com", "broken"}}); len(errs) == 0 {
		t.Error("invalid entries should fail")
	}
	if errs := bv.Validate(&AssignStudentsRequest{Emails: []string{"alice@example.com"}}); len(errs) > 0 {
		t.Errorf("valid list should pass, got %v", errs)
	}
}

func TestValidateManualGradeRequest(t *testing.T) {
	bv := New()

	if errs := bv.Validate(&ManualGradeRequest{}); len(errs) == 0 {
		t.Error("empty grade list should fail")
	}
	if errs := bv.Validate(&ManualGradeRequest{Grades: []QuestionGrade{{AttemptQuestionID: 1, Score: -1}}}); len(errs) == 0 {
		t.Error("negative score should fail")
	}
	if errs := bv.Validate(&ManualGradeRequest{Grades: []QuestionGrade{{AttemptQuestionID: 1, Score: 2}}}); len(errs) > 0 {
		t.Errorf("valid grade should pass, got %v", errs)
	}
}
