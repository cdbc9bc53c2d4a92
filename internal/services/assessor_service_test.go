package services

import (
	"context"
	"testing"

	"github.com/skillbadge/assessment-service/internal/events"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assessorFixture struct {
	repo      *memoryRepository
	publisher *events.MockEventPublisher
	roles     RoleService
	service   AssessorService
}

func newAssessorFixture(t *testing.T) *assessorFixture {
	t.Helper()
	repo := newMemoryRepository()
	repo.addProfile("applicant", "app@example.com")
	repo.addProfile("admin-1", "admin@example.com")
	repo.userRoles["admin-1"] = []models.Role{models.RoleAdmin}

	publisher := events.NewMockEventPublisher(testLogger())
	roles := NewRoleService(repo, newMemoryCache(), testLogger())
	return &assessorFixture{
		repo:      repo,
		publisher: publisher,
		roles:     roles,
		service:   NewAssessorService(repo, roles, NewEventNotifier(publisher, testLogger()), testLogger(), validator.New()),
	}
}

func TestAssessorService_ApplyAndApprove(t *testing.T) {
	f := newAssessorFixture(t)
	ctx := context.Background()

	assert.Equal(t, ViewStudentProfile, f.roles.ResolveRole(ctx, "applicant").View)

	request, err := f.service.Apply(ctx, &AssessorApplicationRequest{}, "applicant")
	require.NoError(t, err)
	assert.Equal(t, models.AssessorRequestPending, request.Status)
	assert.Contains(t, f.repo.userRoles["applicant"], models.RoleAssessor)
	assert.Equal(t, ViewAssessorPending, f.roles.ResolveRole(ctx, "applicant").View)

	_, err = f.service.Apply(ctx, &AssessorApplicationRequest{}, "applicant")
	assert.ErrorIs(t, err, ErrAssessorRequestExists)

	_, err = f.service.Approve(ctx, request.ID, "applicant")
	assert.True(t, IsUnauthorized(err))

	approved, err := f.service.Approve(ctx, request.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AssessorRequestApproved, approved.Status)
	assert.Equal(t, "admin-1", *approved.ReviewedBy)
	assert.NotNil(t, f.repo.profiles["applicant"].AssessorAssignedAt)

	resolution := f.roles.ResolveRole(ctx, "applicant")
	assert.Equal(t, ViewAssessorDashboard, resolution.View)
	assert.True(t, resolution.AssessorApproved)

	_, err = f.service.Approve(ctx, request.ID, "admin-1")
	assert.ErrorIs(t, err, ErrAssessorRequestReviewed)

	assert.Len(t, f.publisher.EventsOfType(events.EventAssessorRequested), 1)
	assert.Len(t, f.publisher.EventsOfType(events.EventAssessorReviewed), 1)
}

func TestAssessorService_RejectAndReapply(t *testing.T) {
	f := newAssessorFixture(t)
	ctx := context.Background()

	request, err := f.service.Apply(ctx, &AssessorApplicationRequest{}, "applicant")
	require.NoError(t, err)

	_, err = f.service.Reject(ctx, request.ID, &RejectAssessorRequest{Reason: "  "}, "admin-1")
	assert.True(t, IsValidation(err))

	rejected, err := f.service.Reject(ctx, request.ID, &RejectAssessorRequest{Reason: "No teaching background"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AssessorRequestRejected, rejected.Status)
	assert.Equal(t, ViewStudentProfile, f.roles.ResolveRole(ctx, "applicant").View)

	reopened, err := f.service.Apply(ctx, &AssessorApplicationRequest{}, "applicant")
	require.NoError(t, err)
	assert.Equal(t, request.ID, reopened.ID)
	assert.Equal(t, models.AssessorRequestPending, reopened.Status)
	assert.Nil(t, reopened.RejectionReason)
}

func TestAssessorService_ListIsAdminOnly(t *testing.T) {
	f := newAssessorFixture(t)
	ctx := context.Background()
	_, err := f.service.Apply(ctx, &AssessorApplicationRequest{}, "applicant")
	require.NoError(t, err)

	_, err = f.service.List(ctx, repositories.AssessorRequestFilters{}, "applicant")
	assert.True(t, IsUnauthorized(err))

	pending := models.AssessorRequestPending
	list, err := f.service.List(ctx, repositories.AssessorRequestFilters{Status: &pending}, "admin-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}
