package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
	"github.com/stretchr/testify/mock"
)

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) CreatePayment(ctx context.Context, req *services.CreatePaymentRequest, origin string) (*services.CreatePaymentResponse, error) {
	args := m.Called(ctx, req, origin)
	if v := args.Get(0); v != nil {
		return v.(*services.CreatePaymentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockVerificationService struct{ mock.Mock }

func (m *MockVerificationService) VerifyPayment(ctx context.Context, req *services.VerifyPaymentRequest) (*services.VerifyPaymentResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*services.VerifyPaymentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAssessmentService struct{ mock.Mock }

func (m *MockAssessmentService) response(args mock.Arguments) (*services.AssessmentResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*services.AssessmentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssessmentService) list(args mock.Arguments) (*services.AssessmentListResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*services.AssessmentListResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssessmentService) CreateFromPayment(ctx context.Context, req *services.CreateAssessmentRequest, userID string) (*services.AssessmentResponse, error) {
	return m.response(m.Called(ctx, req, userID))
}

func (m *MockAssessmentService) GetByID(ctx context.Context, id string, userID string) (*services.AssessmentResponse, error) {
	return m.response(m.Called(ctx, id, userID))
}

func (m *MockAssessmentService) ListMine(ctx context.Context, userID string, filters repositories.AssessmentFilters) (*services.AssessmentListResponse, error) {
	return m.list(m.Called(ctx, userID, filters))
}

func (m *MockAssessmentService) GetQuestions(ctx context.Context, id string, userID string) ([]*services.QuestionResponse, error) {
	args := m.Called(ctx, id, userID)
	if v := args.Get(0); v != nil {
		return v.([]*services.QuestionResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssessmentService) Start(ctx context.Context, id string, userID string) (*services.AssessmentResponse, error) {
	return m.response(m.Called(ctx, id, userID))
}

func (m *MockAssessmentService) Submit(ctx context.Context, id string, req *services.SubmitAnswersRequest, userID string) (*services.SubmissionResult, error) {
	args := m.Called(ctx, id, req, userID)
	if v := args.Get(0); v != nil {
		return v.(*services.SubmissionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssessmentService) Cancel(ctx context.Context, id string, userID string) (*services.AssessmentResponse, error) {
	return m.response(m.Called(ctx, id, userID))
}

func (m *MockAssessmentService) Approve(ctx context.Context, id string, req *services.ApproveAssessmentRequest, reviewerID string) (*services.AssessmentResponse, error) {
	return m.response(m.Called(ctx, id, req, reviewerID))
}

func (m *MockAssessmentService) Reject(ctx context.Context, id string, req *services.RejectAssessmentRequest, reviewerID string) (*services.AssessmentResponse, error) {
	return m.response(m.Called(ctx, id, req, reviewerID))
}

func (m *MockAssessmentService) ReviewQueue(ctx context.Context, reviewerID string, filters repositories.AssessmentFilters) (*services.AssessmentListResponse, error) {
	return m.list(m.Called(ctx, reviewerID, filters))
}

func (m *MockAssessmentService) Summary(ctx context.Context, reviewerID string) (*services.ReviewSummary, error) {
	args := m.Called(ctx, reviewerID)
	if v := args.Get(0); v != nil {
		return v.(*services.ReviewSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRoleService struct{ mock.Mock }

func (m *MockRoleService) ResolveRole(ctx context.Context, userID string) *services.RoleResolution {
	return m.Called(ctx, userID).Get(0).(*services.RoleResolution)
}

func (m *MockRoleService) CanReview(ctx context.Context, userID string) bool {
	return m.Called(ctx, userID).Bool(0)
}

func (m *MockRoleService) IsAdmin(ctx context.Context, userID string) bool {
	return m.Called(ctx, userID).Bool(0)
}

func (m *MockRoleService) Invalidate(ctx context.Context, userID string) {
	m.Called(ctx, userID)
}

type MockProfileService struct{ mock.Mock }

func (m *MockProfileService) EnsureProfile(ctx context.Context, identity *auth.Identity) (*models.Profile, error) {
	args := m.Called(ctx, identity)
	if v := args.Get(0); v != nil {
		return v.(*models.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileService) GetProfile(ctx context.Context, userID string) (*services.ProfileResponse, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.(*services.ProfileResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileService) ListCertifiedStudents(ctx context.Context) ([]*services.CertifiedStudent, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*services.CertifiedStudent), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAssessorService struct{ mock.Mock }

func (m *MockAssessorService) request(args mock.Arguments) (*models.AssessorRequest, error) {
	if v := args.Get(0); v != nil {
		return v.(*models.AssessorRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssessorService) Apply(ctx context.Context, req *services.AssessorApplicationRequest, userID string) (*models.AssessorRequest, error) {
	return m.request(m.Called(ctx, req, userID))
}

func (m *MockAssessorService) List(ctx context.Context, filters repositories.AssessorRequestFilters, adminID string) (*services.AssessorRequestListResponse, error) {
	args := m.Called(ctx, filters, adminID)
	if v := args.Get(0); v != nil {
		return v.(*services.AssessorRequestListResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssessorService) Approve(ctx context.Context, requestID string, adminID string) (*models.AssessorRequest, error) {
	return m.request(m.Called(ctx, requestID, adminID))
}

func (m *MockAssessorService) Reject(ctx context.Context, requestID string, req *services.RejectAssessorRequest, adminID string) (*models.AssessorRequest, error) {
	return m.request(m.Called(ctx, requestID, req, adminID))
}

type MockQuestionService struct{ mock.Mock }

func (m *MockQuestionService) ListForSkill(ctx context.Context, skill string) ([]*services.QuestionResponse, error) {
	args := m.Called(ctx, skill)
	if v := args.Get(0); v != nil {
		return v.([]*services.QuestionResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionService) Import(ctx context.Context, questions []*models.Question, replace bool) (*services.ImportResult, error) {
	args := m.Called(ctx, questions, replace)
	if v := args.Get(0); v != nil {
		return v.(*services.ImportResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockExportService struct{ mock.Mock }

func (m *MockExportService) ExportAssessments(ctx context.Context, adminID string) (*bytes.Buffer, error) {
	args := m.Called(ctx, adminID)
	if v := args.Get(0); v != nil {
		return v.(*bytes.Buffer), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }
