package repositories

import (
	"context"

	"github.com/skillbadge/assessment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	UserID    *string                  `json:"user_id"`
	Status    *models.AssessmentStatus `json:"status"`
	Skill     *string                  `json:"skill"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "created_at", "updated_at", "submitted_at", "score"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type AssessorRequestFilters struct {
	Status *models.AssessorRequestStatus `json:"status"`
	Limit  int                           `json:"limit"`
	Offset int                           `json:"offset"`
}

// Repository groups every store the service needs behind one handle
type Repository interface {
	Assessment() AssessmentRepository
	Transaction() TransactionRepository
	GatewayEvent() GatewayEventRepository
	Profile() ProfileRepository
	UserRole() UserRoleRepository
	AssessorRequest() AssessorRequestRepository
	Question() QuestionRepository

	// WithTransaction runs fn against repositories bound to a single database transaction
	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
