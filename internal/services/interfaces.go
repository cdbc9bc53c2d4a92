package services

import (
	"bytes"
	"context"
	"time"

	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/payment"
	"github.com/skillbadge/assessment-service/internal/repositories"
)

// PaymentGateway is the subset of the provider client the services depend on
type PaymentGateway interface {
	CreatePaymentRequest(ctx context.Context, in payment.CreateRequest) (*payment.PaymentRequest, error)
	GetPaymentRequest(ctx context.Context, paymentRequestID string) (*payment.PaymentRequest, error)
}

type PaymentService interface {
	CreatePayment(ctx context.Context, req *CreatePaymentRequest, origin string) (*CreatePaymentResponse, error)
}

type VerificationService interface {
	VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerifyPaymentResponse, error)
}

type AssessmentService interface {
	// CreateFromPayment is the client fallback when the webhook could not materialize the row
	CreateFromPayment(ctx context.Context, req *CreateAssessmentRequest, userID string) (*AssessmentResponse, error)
	GetByID(ctx context.Context, id string, userID string) (*AssessmentResponse, error)
	ListMine(ctx context.Context, userID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error)
	GetQuestions(ctx context.Context, id string, userID string) ([]*QuestionResponse, error)

	Start(ctx context.Context, id string, userID string) (*AssessmentResponse, error)
	Submit(ctx context.Context, id string, req *SubmitAnswersRequest, userID string) (*SubmissionResult, error)
	Cancel(ctx context.Context, id string, userID string) (*AssessmentResponse, error)

	// Reviewer operations
	Approve(ctx context.Context, id string, req *ApproveAssessmentRequest, reviewerID string) (*AssessmentResponse, error)
	Reject(ctx context.Context, id string, req *RejectAssessmentRequest, reviewerID string) (*AssessmentResponse, error)
	ReviewQueue(ctx context.Context, reviewerID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error)
	Summary(ctx context.Context, reviewerID string) (*ReviewSummary, error)
}

type RoleService interface {
	// ResolveRole never fails, lookup errors resolve to student
	ResolveRole(ctx context.Context, userID string) *RoleResolution
	CanReview(ctx context.Context, userID string) bool
	IsAdmin(ctx context.Context, userID string) bool
	Invalidate(ctx context.Context, userID string)
}

type ProfileService interface {
	// EnsureProfile is idempotent and runs on every authenticated request
	EnsureProfile(ctx context.Context, identity *auth.Identity) (*models.Profile, error)
	GetProfile(ctx context.Context, userID string) (*ProfileResponse, error)
	ListCertifiedStudents(ctx context.Context) ([]*CertifiedStudent, error)
}

type AssessorService interface {
	Apply(ctx context.Context, req *AssessorApplicationRequest, userID string) (*models.AssessorRequest, error)
	List(ctx context.Context, filters repositories.AssessorRequestFilters, adminID string) (*AssessorRequestListResponse, error)
	Approve(ctx context.Context, requestID string, adminID string) (*models.AssessorRequest, error)
	Reject(ctx context.Context, requestID string, req *RejectAssessorRequest, adminID string) (*models.AssessorRequest, error)
}

type QuestionService interface {
	ListForSkill(ctx context.Context, skill string) ([]*QuestionResponse, error)
	Import(ctx context.Context, questions []*models.Question, replace bool) (*ImportResult, error)
}

type ExportService interface {
	ExportAssessments(ctx context.Context, adminID string) (*bytes.Buffer, error)
}

// ===== REQUESTS =====

type CreatePaymentRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Mobile     string `json:"mobile" validate:"required,mobile"`
	Age        int    `json:"age" validate:"required,gte=5,lte=100"`
	Skill      string `json:"skill" validate:"required,skill"`
	PinCode    string `json:"pinCode" validate:"required,pin_code"`
	SchoolName string `json:"schoolName" validate:"required,max=255"`
}

// Verification sources
const (
	SourceWebhook  = "webhook"
	SourceRedirect = "redirect"
)

// VerifyPaymentRequest unifies the provider webhook and the browser redirect call
type VerifyPaymentRequest struct {
	Source           string                    `json:"-"`
	PaymentID        string                    `json:"payment_id" validate:"required,max=100"`
	PaymentRequestID string                    `json:"payment_request_id" validate:"required,max=100"`
	Status           string                    `json:"status"`
	BuyerName        string                    `json:"buyer_name"`
	BuyerEmail       string                    `json:"buyer_email"`
	Amount           string                    `json:"amount"`
	Notes            string                    `json:"notes"`
	AssessmentData   *models.AssessmentPayload `json:"assessment_data"`

	// Webhook only: the raw form fields and their signature
	Fields map[string]string `json:"-"`
	MAC    string            `json:"-"`

	// Redirect only: the caller's bearer token
	BearerToken string `json:"-"`
}

type CreateAssessmentRequest struct {
	PaymentID        string `json:"payment_id" validate:"required,max=100"`
	PaymentRequestID string `json:"payment_request_id" validate:"required,max=100"`
	Skill            string `json:"skill" validate:"required,skill"`
	PinCode          string `json:"pin_code" validate:"omitempty,pin_code"`
	SchoolName       string `json:"school_name" validate:"max=255"`
}

// SubmitAnswersRequest maps question id to the chosen option index
type SubmitAnswersRequest struct {
	Answers map[string]int `json:"answers" validate:"required,min=1"`
}

type ApproveAssessmentRequest struct {
	Feedback       *string `json:"feedback" validate:"omitempty,max=2000"`
	CertificateURL *string `json:"certificate_url" validate:"omitempty,url"`
	BadgeURL       *string `json:"badge_url" validate:"omitempty,url"`
}

type RejectAssessmentRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type AssessorApplicationRequest struct {
	Qualifications *string `json:"qualifications" validate:"omitempty,max=2000"`
}

type RejectAssessorRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ===== RESPONSES =====

type CreatePaymentResponse struct {
	Success        bool                     `json:"success"`
	PaymentURL     string                   `json:"paymentUrl"`
	PaymentID      string                   `json:"paymentId"`
	AssessmentData models.AssessmentPayload `json:"assessmentData"`
}

type VerifyPaymentResponse struct {
	Success           bool   `json:"success"`
	Verified          bool   `json:"verified"`
	Message           string `json:"message,omitempty"`
	UserID            string `json:"user_id,omitempty"`
	AssessmentCreated bool   `json:"assessment_created"`
}

type AssessmentResponse struct {
	*models.Assessment
	Certified bool `json:"certified"`
}

type AssessmentListResponse struct {
	Assessments []*AssessmentResponse `json:"assessments"`
	Total       int64                 `json:"total"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}

type QuestionResponse struct {
	ID           string   `json:"id"`
	Skill        string   `json:"skill"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
}

type SubmissionResult struct {
	Assessment *AssessmentResponse `json:"assessment"`
	Correct    int                 `json:"correct"`
	Total      int                 `json:"total"`
	Score      int                 `json:"score"`
	Passed     bool                `json:"passed"`
}

type ReviewSummary struct {
	Counts           map[models.AssessmentStatus]int64 `json:"counts"`
	Total            int64                             `json:"total"`
	AwaitingApproval int64                             `json:"awaiting_approval"`
	GeneratedAt      time.Time                         `json:"generated_at"`
}

// DashboardView names the page a signed-in user lands on
type DashboardView string

const (
	ViewStudentProfile    DashboardView = "student_profile"
	ViewAssessorPending   DashboardView = "assessor_pending"
	ViewAssessorDashboard DashboardView = "assessor_dashboard"
	ViewAdminDashboard    DashboardView = "admin_dashboard"
)

type RoleResolution struct {
	Role             models.Role   `json:"role"`
	View             DashboardView `json:"view"`
	AssessorApproved bool          `json:"assessor_approved"`
	Roles            []models.Role `json:"roles"`
}

type ProfileResponse struct {
	Profile         *models.Profile `json:"profile"`
	Role            *RoleResolution `json:"role"`
	CertifiedSkills []string        `json:"certified_skills"`
}

type CertificateSummary struct {
	Skill          string     `json:"skill"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	CertificateURL *string    `json:"certificate_url,omitempty"`
	BadgeURL       *string    `json:"badge_url,omitempty"`
}

// CertifiedStudent is one entry of the public certified students list
type CertifiedStudent struct {
	UserID       string               `json:"user_id"`
	FullName     string               `json:"full_name"`
	Email        string               `json:"email"`
	Skills       []string             `json:"skills"`
	Certificates []CertificateSummary `json:"certificates"`
}

type AssessorRequestListResponse struct {
	Requests []*models.AssessorRequest `json:"requests"`
	Total    int64                     `json:"total"`
}

type ImportResult struct {
	Created       int      `json:"created"`
	SkippedSkills []string `json:"skipped_skills,omitempty"`
}

func newAssessmentResponse(a *models.Assessment) *AssessmentResponse {
	return &AssessmentResponse{Assessment: a, Certified: a.IsCertified()}
}
