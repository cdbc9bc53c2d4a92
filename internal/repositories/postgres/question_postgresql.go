package postgres

import (
	"context"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

const questionBatchSize = 100

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) ListBySkill(ctx context.Context, skill string) ([]*models.Question, error) {
	var questions []*models.Question
	err := q.db.WithContext(ctx).
		Where("LOWER(skill) = LOWER(?)", skill).
		Order("created_at ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (q *QuestionPostgreSQL) CountBySkill(ctx context.Context, skill string) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("LOWER(skill) = LOWER(?)", skill).
		Count(&count).Error
	return count, err
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return q.db.WithContext(ctx).CreateInBatches(questions, questionBatchSize).Error
}

func (q *QuestionPostgreSQL) DeleteBySkill(ctx context.Context, skill string) error {
	return q.db.WithContext(ctx).
		Where("LOWER(skill) = LOWER(?)", skill).
		Delete(&models.Question{}).Error
}
