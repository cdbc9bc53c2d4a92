package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
)

// buildAssessment is the single constructor for payment-backed assessments,
// used by both the webhook path and the client fallback
func buildAssessment(userID, paymentID, paymentRequestID string, payload *models.AssessmentPayload) *models.Assessment {
	skill, _ := models.CanonicalSkill(payload.Skill)
	return &models.Assessment{
		UserID:           userID,
		Skill:            skill,
		PinCode:          strings.TrimSpace(payload.PinCode),
		SchoolName:       strings.TrimSpace(payload.SchoolName),
		Status:           models.StatusPending,
		PaymentID:        &paymentID,
		PaymentRequestID: &paymentRequestID,
	}
}

// materializeAssessment inserts the pending assessment unless the payment request already has one.
// It returns the stored row and whether this call created it.
func materializeAssessment(ctx context.Context, repo repositories.Repository, userID, paymentID, paymentRequestID string, payload *models.AssessmentPayload) (*models.Assessment, bool, error) {
	assessment := buildAssessment(userID, paymentID, paymentRequestID, payload)

	created, err := repo.Assessment().CreateIfAbsent(ctx, assessment)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create assessment: %w", err)
	}
	if created {
		return assessment, true, nil
	}

	existing, err := repo.Assessment().GetByPaymentRequestID(ctx, paymentRequestID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing assessment: %w", err)
	}
	return existing, false, nil
}
