package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	BaseHandler
	assessorService services.AssessorService
	exportService   services.ExportService
}

func NewAdminHandler(
	assessorService services.AssessorService,
	exportService services.ExportService,
	logger utils.Logger,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler:     NewBaseHandler(logger),
		assessorService: assessorService,
		exportService:   exportService,
	}
}

// ExportAssessments downloads every assessment and transaction as a workbook
// @Summary Export assessments
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /admin/assessments/export [get]
func (h *AdminHandler) ExportAssessments(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting assessments")

	buf, err := h.exportService.ExportAssessments(c.Request.Context(), adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("assessments-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListAssessorRequests lists assessor applications
// @Summary List assessor requests
// @Tags admin
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} services.AssessorRequestListResponse
// @Router /admin/assessor-requests [get]
func (h *AdminHandler) ListAssessorRequests(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, offset := parsePage(c)
	filters := repositories.AssessorRequestFilters{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status := models.AssessorRequestStatus(raw)
		switch status {
		case models.AssessorRequestPending, models.AssessorRequestApproved, models.AssessorRequestRejected:
			filters.Status = &status
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid status", Details: raw})
			return
		}
	}

	requests, err := h.assessorService.List(c.Request.Context(), filters, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// ApproveAssessorRequest grants the assessor role
// @Summary Approve assessor request
// @Tags admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.AssessorRequest
// @Router /admin/assessor-requests/{id}/approve [post]
func (h *AdminHandler) ApproveAssessorRequest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Approving assessor request", "request_id", id)

	request, err := h.assessorService.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// RejectAssessorRequest declines an application
// @Summary Reject assessor request
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param review body services.RejectAssessorRequest true "Rejection reason"
// @Success 200 {object} models.AssessorRequest
// @Router /admin/assessor-requests/{id}/reject [post]
func (h *AdminHandler) RejectAssessorRequest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.RejectAssessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Rejecting assessor request", "request_id", id)

	request, err := h.assessorService.Reject(c.Request.Context(), id, &req, adminID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}
