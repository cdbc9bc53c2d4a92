package repositories

import (
	"context"
	"time"

	"github.com/skillbadge/assessment-service/internal/models"
)

// ProfileRepository stores user profiles, keyed by auth identity id
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	// Upsert inserts the profile or refreshes the email of an existing one; other columns are left as stored
	Upsert(ctx context.Context, profile *models.Profile) error
	SetAssessorAssigned(ctx context.Context, userID string, at time.Time) error
}

type UserRoleRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Role, error)
	// Add is a no-op when the user already holds the role
	Add(ctx context.Context, userID string, role models.Role) error
}

type AssessorRequestRepository interface {
	Create(ctx context.Context, request *models.AssessorRequest) error
	GetByID(ctx context.Context, id string) (*models.AssessorRequest, error)
	GetByUserID(ctx context.Context, userID string) (*models.AssessorRequest, error)
	List(ctx context.Context, filters AssessorRequestFilters) ([]*models.AssessorRequest, int64, error)
	Update(ctx context.Context, request *models.AssessorRequest) error
}

type QuestionRepository interface {
	ListBySkill(ctx context.Context, skill string) ([]*models.Question, error)
	CountBySkill(ctx context.Context, skill string) (int64, error)
	CreateBatch(ctx context.Context, questions []*models.Question) error
	DeleteBySkill(ctx context.Context, skill string) error
}
