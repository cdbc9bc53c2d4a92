package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

// Pinger reports whether the backing database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerManager struct {
	paymentHandler    *PaymentHandler
	assessmentHandler *AssessmentHandler
	reviewHandler     *ReviewHandler
	adminHandler      *AdminHandler
	profileHandler    *ProfileHandler

	profiles ProfileEnsurer
	verifier auth.TokenVerifier
	db       Pinger
	logger   utils.Logger
}

func NewHandlerManager(
	serviceManager *services.ServiceManager,
	verifier auth.TokenVerifier,
	db Pinger,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		paymentHandler:    NewPaymentHandler(serviceManager.Payment, serviceManager.Verification, logger),
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment, logger),
		reviewHandler:     NewReviewHandler(serviceManager.Assessment, serviceManager.Question, serviceManager.Role, logger),
		adminHandler:      NewAdminHandler(serviceManager.Assessor, serviceManager.Export, logger),
		profileHandler:    NewProfileHandler(serviceManager.Profile, serviceManager.Role, serviceManager.Assessor, logger),
		profiles:          serviceManager.Profile,
		verifier:          verifier,
		db:                db,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(RequestContext())
	{
		v1.GET("/skills", ListSkills)
		v1.GET("/students/certified", hm.profileHandler.ListCertifiedStudents)

		// Payment routes are public: the webhook is signed and the redirect carries its own proof
		payments := v1.Group("/payments")
		{
			payments.POST("", hm.paymentHandler.CreatePayment)
			payments.POST("/verify", hm.paymentHandler.VerifyPayment)
		}

		authed := v1.Group("")
		authed.Use(RequireAuth(hm.verifier, hm.profiles, hm.logger))

		assessments := authed.Group("/assessments")
		{
			assessments.POST("", hm.assessmentHandler.CreateAssessment)
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.GET("/:id/questions", hm.assessmentHandler.GetQuestions)
			assessments.POST("/:id/start", hm.assessmentHandler.StartAssessment)
			assessments.POST("/:id/submit", hm.assessmentHandler.SubmitAssessment)
			assessments.POST("/:id/cancel", hm.assessmentHandler.CancelAssessment)
		}

		review := authed.Group("/review")
		{
			review.GET("/assessments", hm.reviewHandler.ListQueue)
			review.GET("/summary", hm.reviewHandler.Summary)
			review.POST("/assessments/:id/approve", hm.reviewHandler.Approve)
			review.POST("/assessments/:id/reject", hm.reviewHandler.Reject)
			review.GET("/questions", hm.reviewHandler.ListQuestions)
		}

		admin := authed.Group("/admin")
		{
			admin.GET("/assessments/export", hm.adminHandler.ExportAssessments)
			admin.GET("/assessor-requests", hm.adminHandler.ListAssessorRequests)
			admin.POST("/assessor-requests/:id/approve", hm.adminHandler.ApproveAssessorRequest)
			admin.POST("/assessor-requests/:id/reject", hm.adminHandler.RejectAssessorRequest)
		}

		authed.GET("/me/role", hm.profileHandler.GetRole)
		authed.GET("/me/profile", hm.profileHandler.GetProfile)
		authed.POST("/me/profile", hm.profileHandler.EnsureProfile)
		authed.POST("/assessor-requests", hm.profileHandler.ApplyAsAssessor)
	}
}

// HealthCheck reports service and database health
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if hm.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := hm.db.Ping(ctx); err != nil {
			hm.logger.Warn("Health check database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"service":  "assessment-service",
				"database": "down",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "assessment-service",
		"database": "up",
	})
}
