package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

func parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// parsePage reads page/size query params into limit and offset
func parsePage(c *gin.Context) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}

// parseAssessmentFilters returns false after writing a 400 for an unknown status
func parseAssessmentFilters(c *gin.Context) (repositories.AssessmentFilters, bool) {
	limit, offset := parsePage(c)
	filters := repositories.AssessmentFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseAssessmentStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid status", Details: raw})
			return filters, false
		}
		filters.Status = &status
	}
	if skill := strings.TrimSpace(c.Query("skill")); skill != "" {
		filters.Skill = &skill
	}
	return filters, true
}
