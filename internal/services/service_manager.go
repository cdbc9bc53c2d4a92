package services

import (
	"log/slog"

	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/cache"
	"github.com/skillbadge/assessment-service/internal/config"
	"github.com/skillbadge/assessment-service/internal/events"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/validator"
)

// ServiceManager wires every service against shared infrastructure
type ServiceManager struct {
	Payment      PaymentService
	Verification VerificationService
	Assessment   AssessmentService
	Role         RoleService
	Profile      ProfileService
	Assessor     AssessorService
	Question     QuestionService
	Export       ExportService
	Notifier     EventNotifier
}

type Dependencies struct {
	Repo           repositories.Repository
	Gateway        PaymentGateway
	Cache          cache.CacheService
	Verifier       auth.TokenVerifier
	EventPublisher events.EventPublisher
	Config         *config.Config
	Logger         *slog.Logger
	Validator      *validator.Validator
}

func NewServiceManager(deps Dependencies) *ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopCache()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}

	notifier := NewEventNotifier(deps.EventPublisher, deps.Logger)
	roles := NewRoleService(deps.Repo, deps.Cache, deps.Logger)

	return &ServiceManager{
		Payment:      NewPaymentService(deps.Gateway, deps.Config, deps.Logger, deps.Validator),
		Verification: NewVerificationService(deps.Repo, deps.Gateway, deps.Cache, deps.Verifier, notifier, deps.Config, deps.Logger, deps.Validator),
		Assessment:   NewAssessmentService(deps.Repo, roles, notifier, deps.Logger, deps.Validator),
		Role:         roles,
		Profile:      NewProfileService(deps.Repo, roles, deps.Cache, deps.Logger),
		Assessor:     NewAssessorService(deps.Repo, roles, notifier, deps.Logger, deps.Validator),
		Question:     NewQuestionService(deps.Repo, deps.Logger, deps.Validator),
		Export:       NewExportService(deps.Repo, roles, deps.Logger),
		Notifier:     notifier,
	}
}
