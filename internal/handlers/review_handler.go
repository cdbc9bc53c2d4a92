package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

// ReviewHandler serves assessors and admins working the approval queue
type ReviewHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	questionService   services.QuestionService
	roleService       services.RoleService
}

func NewReviewHandler(
	assessmentService services.AssessmentService,
	questionService services.QuestionService,
	roleService services.RoleService,
	logger utils.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		questionService:   questionService,
		roleService:       roleService,
	}
}

// ListQueue lists assessments for review, awaiting_approval unless a status is given
// @Summary Review queue
// @Tags review
// @Produce json
// @Param status query string false "Filter by status"
// @Param skill query string false "Filter by skill"
// @Success 200 {object} services.AssessmentListResponse
// @Failure 403 {object} ErrorResponse
// @Router /review/assessments [get]
func (h *ReviewHandler) ListQueue(c *gin.Context) {
	reviewerID, ok := currentUserID(c)
	if !ok {
		return
	}
	filters, ok := parseAssessmentFilters(c)
	if !ok {
		return
	}

	queue, err := h.assessmentService.ReviewQueue(c.Request.Context(), reviewerID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, queue)
}

// Summary returns per-status assessment counts
// @Summary Review summary
// @Tags review
// @Produce json
// @Success 200 {object} services.ReviewSummary
// @Router /review/summary [get]
func (h *ReviewHandler) Summary(c *gin.Context) {
	reviewerID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.assessmentService.Summary(c.Request.Context(), reviewerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Approve certifies a submitted assessment
// @Summary Approve assessment
// @Tags review
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param review body services.ApproveAssessmentRequest false "Feedback and certificate links"
// @Success 200 {object} services.AssessmentResponse
// @Router /review/assessments/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.ApproveAssessmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	reviewerID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Approving assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Approve(c.Request.Context(), id, &req, reviewerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// Reject sends a submitted assessment back with a reason
// @Summary Reject assessment
// @Tags review
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param review body services.RejectAssessmentRequest true "Rejection reason"
// @Success 200 {object} services.AssessmentResponse
// @Router /review/assessments/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.RejectAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	reviewerID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Rejecting assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Reject(c.Request.Context(), id, &req, reviewerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// ListQuestions previews the question bank for a skill
// @Summary Question bank for a skill
// @Tags review
// @Produce json
// @Param skill query string true "Skill name"
// @Success 200 {array} services.QuestionResponse
// @Router /review/questions [get]
func (h *ReviewHandler) ListQuestions(c *gin.Context) {
	reviewerID, ok := currentUserID(c)
	if !ok {
		return
	}
	if !h.roleService.CanReview(c.Request.Context(), reviewerID) {
		h.RespondWithError(c, http.StatusForbidden, "Access denied", nil)
		return
	}

	questions, err := h.questionService.ListForSkill(c.Request.Context(), c.Query("skill"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}
