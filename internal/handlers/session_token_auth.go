package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/DATN-2025/exam-service/internal/services"
)

// SessionTokenHeader carries the guest token issued after OTP verification.
const SessionTokenHeader = "X-Session-Token"

// SessionTokenMiddleware authenticates guests by their Redis-backed session
// token and puts the resolved identity into the request context.
type SessionTokenMiddleware struct {
	joinService services.JoinService
}

func NewSessionTokenMiddleware(joinService services.JoinService) *SessionTokenMiddleware {
	return &SessionTokenMiddleware{joinService: joinService}
}

func (m *SessionTokenMiddleware) RequireGuest() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.authenticate(c, c.GetHeader(SessionTokenHeader))
	}
}

// RequireGuestWithBodyToken also accepts the token as a session_token field
// in the JSON body. The header takes precedence when both are present.
func (m *SessionTokenMiddleware) RequireGuestWithBodyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SessionTokenHeader)
		if token == "" {
			var body struct {
				SessionToken string `json:"session_token"`
			}
			if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
				token = body.SessionToken
			}
		}
		m.authenticate(c, token)
	}
}

func (m *SessionTokenMiddleware) authenticate(c *gin.Context, token string) {
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: services.ErrSessionTokenRequired.Error(),
		})
		c.Abort()
		return
	}

	validation, err := m.joinService.ValidateSessionToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: services.ErrSessionTokenInvalid.Error(),
		})
		c.Abort()
		return
	}

	c.Set(guestSessionIDKey, validation.SessionID)
	c.Set(guestEmailKey, validation.Email)

	c.Next()
}
