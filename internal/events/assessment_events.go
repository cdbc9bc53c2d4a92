package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/skillbadge/assessment-service/internal/models"
)

type EventType string

const (
	// Payment events
	EventPaymentVerified EventType = "payment.verified"

	// Assessment lifecycle events
	EventAssessmentMaterialized EventType = "assessment.materialized"
	EventAssessmentStarted      EventType = "assessment.started"
	EventAssessmentSubmitted    EventType = "assessment.submitted"
	EventAssessmentApproved     EventType = "assessment.approved"
	EventAssessmentRejected     EventType = "assessment.rejected"
	EventAssessmentCancelled    EventType = "assessment.cancelled"

	// Assessor onboarding
	EventAssessorRequested EventType = "assessor.requested"
	EventAssessorReviewed  EventType = "assessor.reviewed"
)

const (
	eventSource  = "skillbadge-assessment-service"
	eventVersion = "1.0"
)

// Event is the envelope for everything published on the events topic
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Key       string                 `json:"key,omitempty"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type PaymentVerifiedEvent struct {
	PaymentID        string `json:"payment_id"`
	PaymentRequestID string `json:"payment_request_id"`
	UserID           string `json:"user_id"`
	Amount           string `json:"amount"`
	Source           string `json:"source"` // webhook or redirect
}

type AssessmentEvent struct {
	AssessmentID string                  `json:"assessment_id"`
	UserID       string                  `json:"user_id"`
	Skill        string                  `json:"skill"`
	Status       models.AssessmentStatus `json:"status"`
	Score        *int                    `json:"score,omitempty"`
	Passed       *bool                   `json:"passed,omitempty"`
	ReviewerID   *string                 `json:"reviewer_id,omitempty"`
	Reason       *string                 `json:"reason,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

type AssessorReviewEvent struct {
	RequestID  string                       `json:"request_id"`
	UserID     string                       `json:"user_id"`
	Status     models.AssessorRequestStatus `json:"status"`
	ReviewerID *string                      `json:"reviewer_id,omitempty"`
	Reason     *string                      `json:"reason,omitempty"`
}

func newEvent(eventType EventType, key string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Key:       key,
		Data:      data,
	}
}

func NewPaymentVerifiedEvent(data PaymentVerifiedEvent) *Event {
	return newEvent(EventPaymentVerified, data.PaymentID, data)
}

// NewAssessmentEvent snapshots the assessment as it is after the change
func NewAssessmentEvent(eventType EventType, assessment *models.Assessment, reviewerID *string) *Event {
	return newEvent(eventType, assessment.ID, AssessmentEvent{
		AssessmentID: assessment.ID,
		UserID:       assessment.UserID,
		Skill:        assessment.Skill,
		Status:       assessment.Status,
		Score:        assessment.Score,
		Passed:       assessment.Passed,
		ReviewerID:   reviewerID,
		Reason:       assessment.RejectionReason,
		OccurredAt:   time.Now().UTC(),
	})
}

func NewAssessorEvent(eventType EventType, request *models.AssessorRequest) *Event {
	return newEvent(eventType, request.UserID, AssessorReviewEvent{
		RequestID:  request.ID,
		UserID:     request.UserID,
		Status:     request.Status,
		ReviewerID: request.ReviewedBy,
		Reason:     request.RejectionReason,
	})
}
