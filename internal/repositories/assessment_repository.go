package repositories

import (
	"context"
	"time"

	"github.com/skillbadge/assessment-service/internal/models"
)

// AssessmentRepository interface for assessment-specific operations
type AssessmentRepository interface {
	// CreateIfAbsent inserts the row unless one exists for the same payment request.
	// It reports whether a new row was written.
	CreateIfAbsent(ctx context.Context, assessment *models.Assessment) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Assessment, error)
	GetByPaymentRequestID(ctx context.Context, paymentRequestID string) (*models.Assessment, error)

	// UpdateFromStatus saves the row only if it still has the given status, else ErrStaleStatus
	UpdateFromStatus(ctx context.Context, assessment *models.Assessment, from models.AssessmentStatus) error

	List(ctx context.Context, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	CountByStatus(ctx context.Context) (map[models.AssessmentStatus]int64, error)

	// ListCertified returns approved, completed assessments joined to their owner's profile
	ListCertified(ctx context.Context) ([]CertifiedAssessment, error)
}

// CertifiedAssessment is one certificate row of the public certified students list
type CertifiedAssessment struct {
	UserID         string
	FullName       string
	Email          string
	Skill          string
	ApprovedAt     *time.Time
	CertificateURL *string
	BadgeURL       *string
}

// TransactionRepository stores confirmed payments
type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByPaymentID(ctx context.Context, paymentID string) (*models.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]*models.Transaction, int64, error)
}

// GatewayEventRepository is the audit log of provider callbacks
type GatewayEventRepository interface {
	Create(ctx context.Context, event *models.PaymentGatewayEvent) error
	MarkStatus(ctx context.Context, id uint, status models.GatewayEventStatus, errMsg *string) error
}
