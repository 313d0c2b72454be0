package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOTP returns a random 6-digit one-time code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%d", 100000+n.Int64()), nil
}

// RandomSalt returns size random bytes hex-encoded.
func RandomSalt(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashOTP returns hex(SHA-256(salt || otp)). Only the hash and salt are
// stored; the raw code exists solely in the mail sent to the candidate.
func HashOTP(otp, salt string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(otp))
	return hex.EncodeToString(h.Sum(nil))
}

// OTPMatches recomputes the hash of a raw code and compares in constant time.
func OTPMatches(rawOTP, salt, hash string) bool {
	computed := HashOTP(rawOTP, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
