package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfilePostgreSQL struct {
	db *gorm.DB
}

func NewProfilePostgreSQL(db *gorm.DB) repositories.ProfileRepository {
	return &ProfilePostgreSQL{db: db}
}

func (p *ProfilePostgreSQL) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := p.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByEmail matches case-insensitively, buyers often type mixed case at checkout
func (p *ProfilePostgreSQL) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := p.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (p *ProfilePostgreSQL) Upsert(ctx context.Context, profile *models.Profile) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
		}).
		Create(profile).Error
}

func (p *ProfilePostgreSQL) SetAssessorAssigned(ctx context.Context, userID string, at time.Time) error {
	return p.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", userID).
		Update("assessor_assigned_at", at).Error
}

type UserRolePostgreSQL struct {
	db *gorm.DB
}

func NewUserRolePostgreSQL(db *gorm.DB) repositories.UserRoleRepository {
	return &UserRolePostgreSQL{db: db}
}

// ListByUser skips stored values that are not a known role
func (u *UserRolePostgreSQL) ListByUser(ctx context.Context, userID string) ([]models.Role, error) {
	var raw []string
	err := u.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role", &raw).Error
	if err != nil {
		return nil, err
	}
	return normalizeRoles(raw), nil
}

func normalizeRoles(raw []string) []models.Role {
	roles := make([]models.Role, 0, len(raw))
	for _, value := range raw {
		if role, ok := models.ParseRole(value); ok {
			roles = append(roles, role)
		}
	}
	return roles
}

func (u *UserRolePostgreSQL) Add(ctx context.Context, userID string, role models.Role) error {
	return u.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, Role: role}).Error
}

type AssessorRequestPostgreSQL struct {
	db *gorm.DB
}

func NewAssessorRequestPostgreSQL(db *gorm.DB) repositories.AssessorRequestRepository {
	return &AssessorRequestPostgreSQL{db: db}
}

func (a *AssessorRequestPostgreSQL) Create(ctx context.Context, request *models.AssessorRequest) error {
	return a.db.WithContext(ctx).Create(request).Error
}

func (a *AssessorRequestPostgreSQL) GetByID(ctx context.Context, id string) (*models.AssessorRequest, error) {
	var request models.AssessorRequest
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (a *AssessorRequestPostgreSQL) GetByUserID(ctx context.Context, userID string) (*models.AssessorRequest, error) {
	var request models.AssessorRequest
	if err := a.db.WithContext(ctx).Where("user_id = ?", userID).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (a *AssessorRequestPostgreSQL) List(ctx context.Context, filters repositories.AssessorRequestFilters) ([]*models.AssessorRequest, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.AssessorRequest{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []*models.AssessorRequest
	err := applyPaginationAndSort(query, "created_at", "asc", nil, filters.Limit, filters.Offset).Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

func (a *AssessorRequestPostgreSQL) Update(ctx context.Context, request *models.AssessorRequest) error {
	return a.db.WithContext(ctx).Save(request).Error
}
