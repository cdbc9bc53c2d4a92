package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger)
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"remote_addr", c.ClientIP(),
		"user_id", c.GetString(userIDKey),
	}
	h.log(c).Info(message, append(fields, additionalFields...)...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"user_id", c.GetString(userIDKey),
	}
	h.log(c).LogError(err, message, append(fields, additionalFields...)...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"user_id", c.GetString(userIDKey),
	}
	h.log(c).Warn(message, append(fields, additionalFields...)...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "error", err)
	}

	c.JSON(statusCode, errorResp)
}

// handleServiceError maps service errors onto HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	status, resp := classifyError(err)
	h.RespondWithError(c, status, resp.Message, err, resp.Details)
}

// classifyError is shared by handlers that render errors in their own envelope
func classifyError(err error) (int, ErrorResponse) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		return http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: validationErrors, Code: "validation_failed"}
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
			Code: "business_rule",
		}
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		return http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
			Code: "forbidden",
		}
	}

	switch {
	case errors.Is(err, services.ErrInvalidSignature):
		return http.StatusUnauthorized, ErrorResponse{Message: "invalid signature", Code: "invalid_signature"}
	case services.IsUnauthorized(err):
		return http.StatusForbidden, ErrorResponse{Message: "Access denied", Code: "forbidden"}
	case services.IsValidation(err):
		return http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: err.Error(), Code: "validation_failed"}
	case errors.Is(err, services.ErrVerificationInProgress):
		return http.StatusConflict, ErrorResponse{Message: "verification already in progress", Code: "verification_in_progress"}
	case services.IsNotFound(err):
		return http.StatusNotFound, ErrorResponse{Message: notFoundMessage(err), Code: "not_found"}
	case services.IsConflict(err):
		return http.StatusConflict, ErrorResponse{Message: err.Error(), Code: "conflict"}
	case services.IsBusinessRule(err):
		return http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error(), Code: "business_rule"}
	case errors.Is(err, services.ErrProviderUnavailable):
		return http.StatusBadGateway, ErrorResponse{Message: "Payment provider unavailable", Code: "provider_unavailable"}
	case errors.Is(err, services.ErrPaymentConfiguration):
		return http.StatusInternalServerError, ErrorResponse{Message: "Payment provider not configured", Code: "configuration"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Code: "internal"}
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrAssessmentNotFound):
		return "Assessment not found"
	case errors.Is(err, services.ErrAssessorRequestNotFound):
		return "Assessor request not found"
	case errors.Is(err, services.ErrUserNotFound):
		return "Profile not found"
	default:
		return "Resource not found"
	}
}
