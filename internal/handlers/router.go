package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/DATN-2025/exam-service/internal/config"
	"github.com/DATN-2025/exam-service/internal/models"
	"github.com/DATN-2025/exam-service/internal/repositories"
	"github.com/DATN-2025/exam-service/internal/services"
	"github.com/DATN-2025/exam-service/internal/utils"
	"github.com/DATN-2025/exam-service/internal/validator"
)

type HandlerManager struct {
	joinHandler      *JoinHandler
	attemptHandler   *AttemptHandler
	gradingHandler   *GradingHandler
	whitelistHandler *WhitelistHandler
	userHandler      *UserHandler

	authMiddleware  *CasdoorAuthMiddleware
	guestMiddleware *SessionTokenMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		joinHandler:      NewJoinHandler(serviceManager.Join(), validator, logger),
		attemptHandler:   NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		gradingHandler:   NewGradingHandler(serviceManager.Grading(), validator, logger),
		whitelistHandler: NewWhitelistHandler(serviceManager.Whitelist(), validator, logger),
		userHandler:      NewUserHandler(userRepo, logger),
		authMiddleware:   NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
		guestMiddleware:  NewSessionTokenMiddleware(serviceManager.Join()),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		// Join flow: public, identity is established by OTP
		join := api.Group("/join")
		{
			join.POST("/by-code", hm.joinHandler.JoinByCode)
			join.POST("/otp/request", hm.joinHandler.RequestOtp)
			join.POST("/otp/resend", hm.joinHandler.ResendOtp)
			join.POST("/otp/verify", hm.joinHandler.VerifyOtp)
			join.GET("/token/validate", hm.joinHandler.ValidateToken)
			join.GET("/:joinToken", hm.joinHandler.GetSessionInfo)
		}

		attempts := api.Group("/exam-attempt")
		{
			// Guest endpoints, authenticated by session token. Start also
			// accepts the token in the request body.
			attempts.POST("/start", hm.guestMiddleware.RequireGuestWithBodyToken(), hm.attemptHandler.StartAttempt)

			guest := attempts.Group("")
			guest.Use(hm.guestMiddleware.RequireGuest())
			{
				guest.PUT("/:attemptId", hm.attemptHandler.SubmitAttempt)
				guest.GET("/current/:sessionId", hm.attemptHandler.GetCurrentAttempt)
			}

			// Staff endpoints - Teachers, Proctors and Admins
			staff := attempts.Group("")
			staff.Use(hm.authMiddleware.AuthMiddleware())
			staff.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleProctor, models.RoleAdmin))
			{
				staff.GET("/session/:sessionId", hm.attemptHandler.ListAttempts)
				staff.GET("/stats/:sessionId", hm.attemptHandler.GetSessionStats)
				staff.GET("/:attemptId/grading", hm.gradingHandler.GetAttemptForGrading)
				staff.POST("/:attemptId/grading", hm.gradingHandler.ApplyManualGrade)
			}
		}

		// Whitelist management - Teachers and Admins only
		sessions := api.Group("/sessions")
		sessions.Use(hm.authMiddleware.AuthMiddleware())
		sessions.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin))
		{
			sessions.GET("/:sessionId/whitelist", hm.whitelistHandler.ListWhitelist)
			sessions.POST("/:sessionId/whitelist", hm.whitelistHandler.AssignStudents)
			sessions.POST("/:sessionId/whitelist/import", hm.whitelistHandler.ImportWhitelist)
			sessions.DELETE("/:sessionId/whitelist/:email", hm.whitelistHandler.RemoveStudent)
		}

		users := api.Group("/users")
		users.Use(hm.authMiddleware.AuthMiddleware())
		{
			users.GET("/me", hm.userHandler.GetMe)
			users.GET("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})
}
