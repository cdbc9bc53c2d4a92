package services

import (
	"errors"
	"fmt"

	apperrors "github.com/skillbadge/assessment-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrValidationFailed = errors.New("validation failed")

	// Assessment specific errors
	ErrAssessmentNotFound      = errors.New("assessment not found")
	ErrAssessmentInvalidStatus = errors.New("invalid assessment status transition")
	ErrNoQuestions             = errors.New("no questions available for this skill")

	// Payment specific errors
	ErrInvalidSignature       = errors.New("invalid signature")
	ErrVerificationInProgress = errors.New("verification already in progress")
	ErrPayerNotIdentified     = errors.New("could not identify the paying user")
	ErrPaymentNotVerified     = errors.New("no verified payment found for this user")
	ErrProviderUnavailable    = errors.New("payment provider unavailable")
	ErrPaymentConfiguration   = errors.New("payment provider not configured")

	// Assessor onboarding errors
	ErrAssessorRequestNotFound = errors.New("assessor request not found")
	ErrAssessorRequestExists   = errors.New("assessor request already submitted")
	ErrAssessorRequestReviewed = errors.New("assessor request already reviewed")

	// Profile errors
	ErrUserNotFound = errors.New("user not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// fieldError wraps a single field problem so it maps to a 400
func fieldError(field, message, rule string) ValidationErrors {
	return ValidationErrors{*apperrors.NewValidationErrorWithRule(field, message, rule, nil)}
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssessmentNotFound) ||
		errors.Is(err, ErrAssessorRequestNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe) || errors.Is(err, ErrInvalidSignature)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre) ||
		errors.Is(err, ErrPayerNotIdentified) ||
		errors.Is(err, ErrPaymentNotVerified) ||
		errors.Is(err, ErrNoQuestions)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAssessmentInvalidStatus) ||
		errors.Is(err, ErrVerificationInProgress) ||
		errors.Is(err, ErrAssessorRequestExists) ||
		errors.Is(err, ErrAssessorRequestReviewed)
}
