package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

// ProfileHandler covers the signed-in user's profile, role and assessor application
type ProfileHandler struct {
	BaseHandler
	profileService  services.ProfileService
	roleService     services.RoleService
	assessorService services.AssessorService
}

func NewProfileHandler(profileService services.ProfileService, roleService services.RoleService, assessorService services.AssessorService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:     NewBaseHandler(logger),
		profileService:  profileService,
		roleService:     roleService,
		assessorService: assessorService,
	}
}

// GetProfile returns the caller's profile, resolved role and certified skills
// @Summary Get my profile
// @Tags profile
// @Produce json
// @Success 200 {object} services.ProfileResponse
// @Failure 404 {object} ErrorResponse
// @Router /me/profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// EnsureProfile provisions the caller's profile explicitly and reports any failure
// @Summary Create my profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 422 {object} ErrorResponse
// @Router /me/profile [post]
func (h *ProfileHandler) EnsureProfile(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Ensuring profile")

	profile, err := h.profileService.EnsureProfile(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// ListCertifiedStudents is the public directory of students holding at least one certificate
// @Summary List certified students
// @Tags students
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /students/certified [get]
func (h *ProfileHandler) ListCertifiedStudents(c *gin.Context) {
	students, err := h.profileService.ListCertifiedStudents(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"students": students,
		"total":    len(students),
	})
}

// GetRole tells the frontend which dashboard to route the user to
// @Summary Resolve role
// @Tags profile
// @Produce json
// @Success 200 {object} services.RoleResolution
// @Router /me/role [get]
func (h *ProfileHandler) GetRole(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.roleService.ResolveRole(c.Request.Context(), userID))
}

// ApplyAsAssessor files an assessor application for the caller
// @Summary Apply as assessor
// @Tags profile
// @Accept json
// @Produce json
// @Param application body services.AssessorApplicationRequest false "Qualifications"
// @Success 201 {object} models.AssessorRequest
// @Failure 409 {object} ErrorResponse
// @Router /assessor-requests [post]
func (h *ProfileHandler) ApplyAsAssessor(c *gin.Context) {
	var req services.AssessorApplicationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Applying as assessor")

	request, err := h.assessorService.Apply(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// ListSkills returns the skill catalogue
func ListSkills(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"skills": models.Skills})
}
