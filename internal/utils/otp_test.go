package utils

import (
	"strconv"
	"testing"
)

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP failed: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("expected 6 digits, got %q", otp)
		}
		n, err := strconv.Atoi(otp)
		if err != nil || n < 100000 || n > 999999 {
			t.Fatalf("OTP out of range: %q", otp)
		}
	}
}

func TestRandomSalt(t *testing.T) {
	salt, err := RandomSalt(16)
	if err != nil {
		t.Fatalf("RandomSalt failed: %v", err)
	}
	if len(salt) != 32 { // hex doubles the byte length
		t.Fatalf("expected 32 hex chars, got %d", len(salt))
	}

	other, err := RandomSalt(16)
	if err != nil {
		t.Fatalf("RandomSalt failed: %v", err)
	}
	if salt == other {
		t.Fatal("two salts should not collide")
	}
}

func TestOTPMatches(t *testing.T) {
	salt, err := RandomSalt(16)
	if err != nil {
		t.Fatalf("RandomSalt failed: %v", err)
	}
	hash := HashOTP("123456", salt)

	if !OTPMatches("123456", salt, hash) {
		t.Error("correct code should match")
	}
	if OTPMatches("654321", salt, hash) {
		t.Error("wrong code should not match")
	}
	if OTPMatches("123456", "other-salt", hash) {
		t.Error("wrong salt should not match")
	}
}
