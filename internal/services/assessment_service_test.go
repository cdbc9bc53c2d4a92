package services

import (
	"context"
	"testing"
	"time"

	"github.com/skillbadge/assessment-service/internal/events"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assessmentFixture struct {
	repo      *memoryRepository
	publisher *events.MockEventPublisher
	service   AssessmentService
}

func newAssessmentFixture(t *testing.T) *assessmentFixture {
	t.Helper()
	repo := newMemoryRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	roles := NewRoleService(repo, newMemoryCache(), testLogger())

	repo.addProfile("student-1", "s1@example.com")
	repo.addProfile("student-2", "s2@example.com")
	repo.addProfile("assessor-1", "a1@example.com")
	repo.addProfile("pending-assessor", "pa@example.com")
	repo.addProfile("admin-1", "admin@example.com")
	repo.userRoles["assessor-1"] = []models.Role{models.RoleAssessor}
	repo.userRoles["pending-assessor"] = []models.Role{models.RoleAssessor}
	repo.userRoles["admin-1"] = []models.Role{models.RoleSchoolAdmin}
	repo.assessorReqs["req-1"] = &models.AssessorRequest{ID: "req-1", UserID: "assessor-1", Status: models.AssessorRequestApproved}
	repo.assessorReqs["req-2"] = &models.AssessorRequest{ID: "req-2", UserID: "pending-assessor", Status: models.AssessorRequestPending}

	return &assessmentFixture{
		repo:      repo,
		publisher: publisher,
		service:   NewAssessmentService(repo, roles, NewEventNotifier(publisher, testLogger()), testLogger(), validator.New()),
	}
}

func (f *assessmentFixture) seedAssessment(t *testing.T, id, userID string, status models.AssessmentStatus) *models.Assessment {
	t.Helper()
	prID := "pr-" + id
	payID := "pay-" + id
	a := &models.Assessment{
		ID:               id,
		UserID:           userID,
		Skill:            "Teamwork",
		Status:           status,
		PaymentID:        &payID,
		PaymentRequestID: &prID,
	}
	created, err := f.repo.Assessment().CreateIfAbsent(context.Background(), a)
	require.NoError(t, err)
	require.True(t, created)
	return a
}

func TestAssessmentService_FullLifecycle(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	questions := f.repo.addQuestions("Teamwork", 0, 1, 2, 3, 0, 1, 2, 3, 0, 1)
	f.seedAssessment(t, "a-1", "student-1", models.StatusPending)

	started, err := f.service.Start(ctx, "a-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)

	answers := make(map[string]int)
	for i, q := range questions {
		if i < 8 {
			answers[q.ID] = q.CorrectAnswer
		}
	}
	result, err := f.service.Submit(ctx, "a-1", &SubmitAnswersRequest{Answers: answers}, "student-1")
	require.NoError(t, err)
	assert.Equal(t, 8, result.Correct)
	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 80, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, models.StatusAwaitingApproval, result.Assessment.Status)
	require.NotNil(t, result.Assessment.SubmittedAt)

	cert := "https://cdn.example.com/cert.pdf"
	approved, err := f.service.Approve(ctx, "a-1", &ApproveAssessmentRequest{CertificateURL: &cert}, "assessor-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, approved.Status)
	assert.True(t, approved.Certified)
	assert.Equal(t, "assessor-1", *approved.ApprovedBy)
	assert.Equal(t, cert, *approved.CertificateURL)

	for _, eventType := range []events.EventType{
		events.EventAssessmentStarted, events.EventAssessmentSubmitted, events.EventAssessmentApproved,
	} {
		assert.Len(t, f.publisher.EventsOfType(eventType), 1, eventType)
	}
}

func TestAssessmentService_FailingSubmissionStillAwaitsApproval(t *testing.T) {
	f := newAssessmentFixture(t)
	f.repo.addQuestions("Teamwork", 1, 1, 1)
	f.seedAssessment(t, "a-1", "student-1", models.StatusPending)

	result, err := f.service.Submit(context.Background(), "a-1", &SubmitAnswersRequest{Answers: map[string]int{"Teamwork-q1": 0}}, "student-1")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, models.StatusAwaitingApproval, result.Assessment.Status)
}

func TestAssessmentService_SubmitGuards(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.repo.addQuestions("Teamwork", 1)
	f.seedAssessment(t, "done", "student-1", models.StatusCompleted)
	f.seedAssessment(t, "mine", "student-1", models.StatusPending)

	_, err := f.service.Submit(ctx, "done", &SubmitAnswersRequest{Answers: map[string]int{"Teamwork-q1": 1}}, "student-1")
	assert.ErrorIs(t, err, ErrAssessmentInvalidStatus)

	_, err = f.service.Submit(ctx, "mine", &SubmitAnswersRequest{Answers: map[string]int{"Teamwork-q1": 1}}, "student-2")
	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)

	_, err = f.service.Submit(ctx, "mine", &SubmitAnswersRequest{Answers: map[string]int{}}, "student-1")
	assert.True(t, IsValidation(err))

	_, err = f.service.Submit(ctx, "missing", &SubmitAnswersRequest{Answers: map[string]int{"x": 1}}, "student-1")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAssessmentService_ReviewTransitions(t *testing.T) {
	tests := []struct {
		name   string
		status models.AssessmentStatus
		ok     bool
	}{
		{"awaiting approval", models.StatusAwaitingApproval, true},
		{"pending", models.StatusPending, false},
		{"in progress", models.StatusInProgress, false},
		{"rejected", models.StatusRejected, false},
		{"completed", models.StatusCompleted, false},
		{"cancelled", models.StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAssessmentFixture(t)
			ctx := context.Background()
			f.seedAssessment(t, "approve-me", "student-1", tt.status)
			f.seedAssessment(t, "reject-me", "student-1", tt.status)

			_, approveErr := f.service.Approve(ctx, "approve-me", &ApproveAssessmentRequest{}, "assessor-1")
			_, rejectErr := f.service.Reject(ctx, "reject-me", &RejectAssessmentRequest{Reason: "incomplete"}, "admin-1")
			if tt.ok {
				assert.NoError(t, approveErr)
				assert.NoError(t, rejectErr)
			} else {
				assert.ErrorIs(t, approveErr, ErrAssessmentInvalidStatus)
				assert.ErrorIs(t, rejectErr, ErrAssessmentInvalidStatus)
				assert.True(t, IsConflict(approveErr))
			}
		})
	}
}

func TestAssessmentService_RejectRecordsReason(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.seedAssessment(t, "a-1", "student-1", models.StatusAwaitingApproval)

	_, err := f.service.Reject(ctx, "a-1", &RejectAssessmentRequest{Reason: "   "}, "assessor-1")
	assert.True(t, IsValidation(err))

	rejected, err := f.service.Reject(ctx, "a-1", &RejectAssessmentRequest{Reason: "Answers copied"}, "assessor-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Answers copied", *rejected.RejectionReason)
	assert.False(t, rejected.Certified)
}

func TestAssessmentService_ReviewRequiresApprovedReviewer(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.seedAssessment(t, "a-1", "student-1", models.StatusAwaitingApproval)

	for _, userID := range []string{"student-2", "pending-assessor", "student-1"} {
		_, err := f.service.Approve(ctx, "a-1", &ApproveAssessmentRequest{}, userID)
		var permErr *PermissionError
		assert.ErrorAs(t, err, &permErr, userID)
	}

	_, err := f.service.ReviewQueue(ctx, "pending-assessor", repositories.AssessmentFilters{})
	assert.True(t, IsUnauthorized(err))
}

func TestAssessmentService_ReviewersCannotReviewTheirOwnWork(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.seedAssessment(t, "own-1", "assessor-1", models.StatusAwaitingApproval)
	f.seedAssessment(t, "own-2", "assessor-1", models.StatusAwaitingApproval)
	f.seedAssessment(t, "admin-own", "admin-1", models.StatusAwaitingApproval)

	_, err := f.service.Approve(ctx, "own-1", &ApproveAssessmentRequest{}, "assessor-1")
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "self_review", ruleErr.Rule)
	assert.Equal(t, "own-1", ruleErr.Context["assessment_id"])
	assert.True(t, IsBusinessRule(err))

	_, err = f.service.Reject(ctx, "own-2", &RejectAssessmentRequest{Reason: "redo"}, "assessor-1")
	assert.ErrorAs(t, err, &ruleErr)

	stored, err := f.repo.Assessment().GetByID(ctx, "own-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingApproval, stored.Status)
	assert.False(t, stored.Approved)

	approved, err := f.service.Approve(ctx, "admin-own", &ApproveAssessmentRequest{}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, approved.Status)
}

func TestAssessmentService_StaleUpdateIsConflict(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.seedAssessment(t, "a-1", "student-1", models.StatusAwaitingApproval)

	// Another reviewer settles the row between our read and write
	service := f.service.(*assessmentService)
	service.repo = &interferingRepository{memoryRepository: f.repo, status: models.StatusRejected}

	_, err := f.service.Approve(ctx, "a-1", &ApproveAssessmentRequest{}, "assessor-1")
	assert.ErrorIs(t, err, ErrAssessmentInvalidStatus)

	stored, err := f.repo.Assessment().GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.False(t, stored.Approved)
}

func TestAssessmentService_Cancel(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.seedAssessment(t, "a-1", "student-1", models.StatusInProgress)
	f.seedAssessment(t, "a-2", "student-1", models.StatusAwaitingApproval)
	f.seedAssessment(t, "a-3", "student-1", models.StatusCompleted)

	_, err := f.service.Cancel(ctx, "a-1", "student-2")
	assert.True(t, IsUnauthorized(err))

	cancelled, err := f.service.Cancel(ctx, "a-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	cancelled, err = f.service.Cancel(ctx, "a-2", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.service.Cancel(ctx, "a-3", "student-1")
	assert.ErrorIs(t, err, ErrAssessmentInvalidStatus)
}

func TestAssessmentService_Reads(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	f.repo.addQuestions("Teamwork", 2, 3)
	f.seedAssessment(t, "a-1", "student-1", models.StatusPending)
	f.seedAssessment(t, "a-2", "student-1", models.StatusAwaitingApproval)
	f.seedAssessment(t, "b-1", "student-2", models.StatusAwaitingApproval)

	mine, err := f.service.ListMine(ctx, "student-1", repositories.AssessmentFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)

	_, err = f.service.GetByID(ctx, "b-1", "student-1")
	assert.True(t, IsUnauthorized(err))

	byReviewer, err := f.service.GetByID(ctx, "b-1", "assessor-1")
	require.NoError(t, err)
	assert.Equal(t, "student-2", byReviewer.UserID)

	queue, err := f.service.ReviewQueue(ctx, "assessor-1", repositories.AssessmentFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, queue.Total)

	summary, err := f.service.Summary(ctx, "admin-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.Total)
	assert.EqualValues(t, 2, summary.AwaitingApproval)
	assert.EqualValues(t, 1, summary.Counts[models.StatusPending])

	questions, err := f.service.GetQuestions(ctx, "a-1", "student-1")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, []string{"a", "b", "c", "d"}, questions[0].Options)

	_, err = f.service.GetQuestions(ctx, "b-1", "student-1")
	assert.True(t, IsUnauthorized(err))
}

func TestAssessmentService_CreateFromPayment(t *testing.T) {
	f := newAssessmentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Transaction().Create(ctx, &models.Transaction{
		UserID: "student-1", PaymentID: "pay-9", PaymentRequestID: "pr-9", Status: models.TransactionCompleted,
	}))
	req := &CreateAssessmentRequest{PaymentID: "pay-9", PaymentRequestID: "pr-9", Skill: "Communication"}

	_, err := f.service.CreateFromPayment(ctx, &CreateAssessmentRequest{
		PaymentID: "unknown", PaymentRequestID: "pr-x", Skill: "Communication",
	}, "student-1")
	assert.ErrorIs(t, err, ErrPaymentNotVerified)

	_, err = f.service.CreateFromPayment(ctx, req, "student-2")
	assert.True(t, IsUnauthorized(err))

	first, err := f.service.CreateFromPayment(ctx, req, "student-1")
	require.NoError(t, err)
	again, err := f.service.CreateFromPayment(ctx, req, "student-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, f.publisher.EventsOfType(events.EventAssessmentMaterialized), 1)

	_, err = f.service.CreateFromPayment(ctx, &CreateAssessmentRequest{
		PaymentID: "pay-9", PaymentRequestID: "pr-other", Skill: "Communication",
	}, "student-1")
	assert.True(t, IsValidation(err))
}

// interferingRepository moves the row to another status just before a guarded update
type interferingRepository struct {
	*memoryRepository
	status models.AssessmentStatus
}

func (r *interferingRepository) Assessment() repositories.AssessmentRepository {
	return interferingAssessments{memAssessments: memAssessments{r.memoryRepository}, status: r.status}
}

type interferingAssessments struct {
	memAssessments
	status models.AssessmentStatus
}

func (a interferingAssessments) UpdateFromStatus(ctx context.Context, assessment *models.Assessment, from models.AssessmentStatus) error {
	a.r.mu.Lock()
	a.r.assessments[assessment.ID].Status = a.status
	a.r.assessments[assessment.ID].UpdatedAt = time.Now()
	a.r.mu.Unlock()
	return a.memAssessments.UpdateFromStatus(ctx, assessment, from)
}
