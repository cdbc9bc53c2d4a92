package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssessmentStatus string

const (
	StatusPending          AssessmentStatus = "pending"
	StatusInProgress       AssessmentStatus = "in_progress"
	StatusAwaitingApproval AssessmentStatus = "awaiting_approval"
	StatusCompleted        AssessmentStatus = "completed"
	StatusRejected         AssessmentStatus = "rejected"
	StatusCancelled        AssessmentStatus = "cancelled"
)

// PassingScore is the minimum percentage for a passing badge
const PassingScore = 70

var assessmentTransitions = map[AssessmentStatus][]AssessmentStatus{
	StatusPending:          {StatusInProgress, StatusAwaitingApproval, StatusCancelled},
	StatusInProgress:       {StatusAwaitingApproval, StatusCancelled},
	StatusAwaitingApproval: {StatusCompleted, StatusRejected, StatusCancelled},
}

var ErrRejectionReasonRequired = errors.New("rejection reason is required")

// InvalidTransitionError is returned when a status change is not allowed from the current status
type InvalidTransitionError struct {
	From AssessmentStatus
	To   AssessmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move assessment from %s to %s", e.From, e.To)
}

func ParseAssessmentStatus(value string) (AssessmentStatus, bool) {
	status := AssessmentStatus(strings.ToLower(strings.TrimSpace(value)))
	return status, status.IsValid()
}

func (s AssessmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusAwaitingApproval,
		StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s AssessmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

func (s AssessmentStatus) CanTransitionTo(next AssessmentStatus) bool {
	for _, allowed := range assessmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Assessment is one student's attempt at certification in one skill
type Assessment struct {
	ID         string  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID     string  `json:"user_id" gorm:"not null;size:255;index"`
	AssessorID *string `json:"assessor_id" gorm:"size:255;index"`

	Skill      string `json:"skill" gorm:"not null;size:100;index"`
	PinCode    string `json:"pin_code" gorm:"size:10"`
	SchoolName string `json:"school_name" gorm:"size:255"`

	Status AssessmentStatus `json:"status" gorm:"not null;size:32;default:pending;index"`

	// Outcome
	Score           *int       `json:"score"`
	Passed          *bool      `json:"passed"`
	Feedback        *string    `json:"feedback" gorm:"type:text"`
	CertificateURL  *string    `json:"certificate_url" gorm:"size:500"`
	BadgeURL        *string    `json:"badge_url" gorm:"size:500"`
	Approved        bool       `json:"approved" gorm:"not null;default:false"`
	ApprovedBy      *string    `json:"approved_by" gorm:"size:255"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason *string    `json:"rejection_reason" gorm:"type:text"`
	SubmittedAt     *time.Time `json:"submitted_at"`

	// Payment linkage, one assessment per payment request
	PaymentID        *string `json:"payment_id" gorm:"size:100;index"`
	PaymentRequestID *string `json:"payment_request_id" gorm:"size:100;uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// IsCertified reports whether the certificate can be shown to the student
func (a *Assessment) IsCertified() bool {
	return a.Approved && a.Status == StatusCompleted
}

func (a *Assessment) transition(next AssessmentStatus) error {
	if !a.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{From: a.Status, To: next}
	}
	a.Status = next
	return nil
}

func (a *Assessment) Start() error {
	return a.transition(StatusInProgress)
}

// RecordSubmission stores the quiz outcome and hands the assessment to reviewers
func (a *Assessment) RecordSubmission(score int, at time.Time) error {
	if err := a.transition(StatusAwaitingApproval); err != nil {
		return err
	}
	passed := score >= PassingScore
	a.Score = &score
	a.Passed = &passed
	a.SubmittedAt = &at
	return nil
}

func (a *Assessment) Approve(reviewerID string, at time.Time, feedback, certificateURL, badgeURL *string) error {
	if err := a.transition(StatusCompleted); err != nil {
		return err
	}
	a.Approved = true
	a.ApprovedBy = &reviewerID
	a.ApprovedAt = &at
	a.AssessorID = &reviewerID
	a.RejectionReason = nil
	if feedback != nil {
		a.Feedback = feedback
	}
	if certificateURL != nil {
		a.CertificateURL = certificateURL
	}
	if badgeURL != nil {
		a.BadgeURL = badgeURL
	}
	return nil
}

func (a *Assessment) Reject(reviewerID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrRejectionReasonRequired
	}
	if err := a.transition(StatusRejected); err != nil {
		return err
	}
	a.Approved = false
	a.AssessorID = &reviewerID
	a.RejectionReason = &reason
	return nil
}

func (a *Assessment) Cancel() error {
	return a.transition(StatusCancelled)
}

func (a *Assessment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	return nil
}
