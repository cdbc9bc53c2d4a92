package postgres

import (
	"context"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB

	assessment      repositories.AssessmentRepository
	transaction     repositories.TransactionRepository
	gatewayEvent    repositories.GatewayEventRepository
	profile         repositories.ProfileRepository
	userRole        repositories.UserRoleRepository
	assessorRequest repositories.AssessorRequestRepository
	question        repositories.QuestionRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:              db,
		assessment:      NewAssessmentPostgreSQL(db),
		transaction:     NewTransactionPostgreSQL(db),
		gatewayEvent:    NewGatewayEventPostgreSQL(db),
		profile:         NewProfilePostgreSQL(db),
		userRole:        NewUserRolePostgreSQL(db),
		assessorRequest: NewAssessorRequestPostgreSQL(db),
		question:        NewQuestionPostgreSQL(db),
	}
}

func (r *Repository) Assessment() repositories.AssessmentRepository {
	return r.assessment
}

func (r *Repository) Transaction() repositories.TransactionRepository {
	return r.transaction
}

func (r *Repository) GatewayEvent() repositories.GatewayEventRepository {
	return r.gatewayEvent
}

func (r *Repository) Profile() repositories.ProfileRepository {
	return r.profile
}

func (r *Repository) UserRole() repositories.UserRoleRepository {
	return r.userRole
}

func (r *Repository) AssessorRequest() repositories.AssessorRequestRepository {
	return r.assessorRequest
}

func (r *Repository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.UserRole{},
		&models.AssessorRequest{},
		&models.Assessment{},
		&models.Transaction{},
		&models.PaymentGatewayEvent{},
		&models.Question{},
	)
}
