package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/DATN-2025/exam-service/internal/services"
)

type stubJoinService struct {
	services.JoinService
	token string
	guest *services.TokenValidationResponse
}

func (s *stubJoinService) ValidateSessionToken(ctx context.Context, token string) (*services.TokenValidationResponse, error) {
	if token != s.token {
		return nil, services.ErrSessionTokenInvalid
	}
	return s.guest, nil
}

func newGuestTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	mw := NewSessionTokenMiddleware(&stubJoinService{
		token: "valid-token",
		guest: &services.TokenValidationResponse{SessionID: 7, Email: "alice@example.com"},
	})

	router := gin.New()
	router.POST("/start", mw.RequireGuestWithBodyToken(), func(c *gin.Context) {
		guest, ok := GetGuestFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "no guest in context"})
			return
		}
		c.JSON(http.StatusOK, guest)
	})
	return router
}

func TestSessionTokenMiddleware_BodyToken(t *testing.T) {
	router := newGuestTestRouter()

	tests := []struct {
		name   string
		header string
		body   string
		status int
	}{
		{"header token", "valid-token", `{"session_id":7}`, http.StatusOK},
		{"body token", "", `{"session_id":7,"session_token":"valid-token"}`, http.StatusOK},
		{"header wins over body", "bogus", `{"session_token":"valid-token"}`, http.StatusUnauthorized},
		{"no token at all", "", `{"session_id":7}`, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				req.Header.Set(SessionTokenHeader, tt.header)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d (%s)", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status == http.StatusOK && !strings.Contains(rec.Body.String(), "alice@example.com") {
				t.Fatalf("guest identity missing from response: %s", rec.Body.String())
			}
		})
	}
}
