package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
}

func NewAssessmentHandler(assessmentService services.AssessmentService, logger utils.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
	}
}

// CreateAssessment materializes the assessment for a verified payment
// @Summary Create assessment from payment
// @Description Fallback used by the payment success page when the webhook has not created the assessment yet
// @Tags assessments
// @Accept json
// @Produce json
// @Param assessment body services.CreateAssessmentRequest true "Payment reference and assessment details"
// @Success 201 {object} services.AssessmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessments [post]
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	var req services.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating assessment from payment", "payment_request_id", req.PaymentRequestID)

	assessment, err := h.assessmentService.CreateFromPayment(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assessment)
}

// GetAssessment retrieves an assessment by ID
// @Summary Get assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.AssessmentResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// ListAssessments lists the caller's own assessments
// @Summary List my assessments
// @Tags assessments
// @Produce json
// @Param status query string false "Filter by status"
// @Param skill query string false "Filter by skill"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} services.AssessmentListResponse
// @Router /assessments [get]
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	filters, ok := parseAssessmentFilters(c)
	if !ok {
		return
	}

	assessments, err := h.assessmentService.ListMine(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessments)
}

// GetQuestions returns the question sheet for an assessment without answer keys
// @Summary Get assessment questions
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {array} services.QuestionResponse
// @Router /assessments/{id}/questions [get]
func (h *AssessmentHandler) GetQuestions(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	questions, err := h.assessmentService.GetQuestions(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// StartAssessment moves a pending assessment to in_progress
// @Summary Start assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.AssessmentResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/start [post]
func (h *AssessmentHandler) StartAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Start(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// SubmitAssessment scores the answers and queues the assessment for review
// @Summary Submit answers
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param answers body services.SubmitAnswersRequest true "Answers keyed by question ID"
// @Success 200 {object} services.SubmissionResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/submit [post]
func (h *AssessmentHandler) SubmitAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting assessment", "assessment_id", id, "answers", len(req.Answers))

	result, err := h.assessmentService.Submit(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelAssessment cancels an assessment that has not been reviewed
// @Summary Cancel assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.AssessmentResponse
// @Router /assessments/{id}/cancel [post]
func (h *AssessmentHandler) CancelAssessment(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Cancelling assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}
