package postgres

import (
	"context"
	"fmt"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var assessmentSortColumns = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"submitted_at": true,
	"score":        true,
}

type AssessmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssessmentPostgreSQL(db *gorm.DB) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{db: db}
}

// CreateIfAbsent relies on the unique payment_request_id index so that webhook and
// redirect paths racing each other still produce a single row
func (a *AssessmentPostgreSQL) CreateIfAbsent(ctx context.Context, assessment *models.Assessment) (bool, error) {
	result := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_request_id"}},
			DoNothing: true,
		}).
		Create(assessment)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create assessment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetByID retrieves an assessment by ID
func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&assessment).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) GetByPaymentRequestID(ctx context.Context, paymentRequestID string) (*models.Assessment, error) {
	var assessment models.Assessment
	err := a.db.WithContext(ctx).
		Where("payment_request_id = ?", paymentRequestID).
		First(&assessment).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// UpdateFromStatus writes every column, guarded on the status the caller read
func (a *AssessmentPostgreSQL) UpdateFromStatus(ctx context.Context, assessment *models.Assessment, from models.AssessmentStatus) error {
	result := a.db.WithContext(ctx).
		Model(assessment).
		Where("status = ?", from).
		Select("*").
		Omit("id", "created_at").
		Updates(assessment)
	if result.Error != nil {
		return fmt.Errorf("failed to update assessment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrStaleStatus
	}
	return nil
}

// List retrieves assessments with filters and pagination
func (a *AssessmentPostgreSQL) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	query := a.applyFilters(a.db.WithContext(ctx).Model(&models.Assessment{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, assessmentSortColumns, filters.Limit, filters.Offset)

	var assessments []*models.Assessment
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, err
	}
	return assessments, total, nil
}

func (a *AssessmentPostgreSQL) CountByStatus(ctx context.Context) (map[models.AssessmentStatus]int64, error) {
	var rows []struct {
		Status models.AssessmentStatus
		Count  int64
	}
	err := a.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.AssessmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (a *AssessmentPostgreSQL) ListCertified(ctx context.Context) ([]repositories.CertifiedAssessment, error) {
	var rows []repositories.CertifiedAssessment
	err := a.db.WithContext(ctx).
		Table("assessments AS a").
		Select("a.user_id, p.full_name, p.email, a.skill, a.approved_at, a.certificate_url, a.badge_url").
		Joins("JOIN profiles AS p ON p.id = a.user_id").
		Where("a.approved = ? AND a.status = ?", true, models.StatusCompleted).
		Order("p.full_name ASC, a.user_id ASC, a.approved_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (a *AssessmentPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AssessmentFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Skill != nil {
		query = query.Where("LOWER(skill) = LOWER(?)", *filters.Skill)
	}
	return query
}
