package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillbadge/assessment-service/internal/events"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/validator"
)

type assessmentService struct {
	repo          repositories.Repository
	roles         RoleService
	notifier      EventNotifier
	logger        *slog.Logger
	serviceLogger *ServiceLogger
	validator     *validator.Validator
}

func NewAssessmentService(
	repo repositories.Repository,
	roles RoleService,
	notifier EventNotifier,
	logger *slog.Logger,
	validator *validator.Validator,
) AssessmentService {
	return &assessmentService{
		repo:          repo,
		roles:         roles,
		notifier:      notifier,
		logger:        logger,
		serviceLogger: NewServiceLogger(logger, LogConfig{Service: "assessments", Component: "lifecycle"}),
		validator:     validator,
	}
}

// ===== CREATION =====

func (s *assessmentService) CreateFromPayment(ctx context.Context, req *CreateAssessmentRequest, userID string) (*AssessmentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	txn, err := s.repo.Transaction().GetByPaymentID(ctx, req.PaymentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPaymentNotVerified
		}
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}
	if txn.UserID != userID {
		return nil, NewPermissionError(userID, req.PaymentID, "payment", "claim", "payment belongs to another user")
	}
	if txn.PaymentRequestID != "" && txn.PaymentRequestID != req.PaymentRequestID {
		return nil, fieldError("payment_request_id", "does not match the verified payment", "match")
	}

	payload := &models.AssessmentPayload{
		Skill:      req.Skill,
		PinCode:    req.PinCode,
		SchoolName: req.SchoolName,
	}
	assessment, created, err := materializeAssessment(ctx, s.repo, userID, req.PaymentID, req.PaymentRequestID, payload)
	if err != nil {
		return nil, err
	}
	if assessment.UserID != userID {
		return nil, NewPermissionError(userID, assessment.ID, "assessment", "claim", "assessment belongs to another user")
	}

	if created {
		s.logger.Info("Assessment created by client fallback",
			"assessment_id", assessment.ID,
			"user_id", userID,
			"payment_id", req.PaymentID)
		s.notifier.AssessmentChanged(ctx, events.EventAssessmentMaterialized, assessment, nil)
	}

	return newAssessmentResponse(assessment), nil
}

// ===== READS =====

func (s *assessmentService) GetByID(ctx context.Context, id string, userID string) (*AssessmentResponse, error) {
	assessment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if assessment.UserID != userID && !s.roles.CanReview(ctx, userID) {
		return nil, NewPermissionError(userID, id, "assessment", "read", "not owner or reviewer")
	}
	return newAssessmentResponse(assessment), nil
}

func (s *assessmentService) ListMine(ctx context.Context, userID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error) {
	filters.UserID = &userID
	return s.list(ctx, filters)
}

// GetQuestions returns the quiz for the assessment's skill without the answer key
func (s *assessmentService) GetQuestions(ctx context.Context, id string, userID string) ([]*QuestionResponse, error) {
	assessment, err := s.loadOwned(ctx, id, userID, "read_questions")
	if err != nil {
		return nil, err
	}

	questions, err := s.repo.Question().ListBySkill(ctx, assessment.Skill)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return toQuestionResponses(questions)
}

// ===== OWNER TRANSITIONS =====

func (s *assessmentService) Start(ctx context.Context, id string, userID string) (*AssessmentResponse, error) {
	op := s.serviceLogger.WithOperation(ctx, "start_assessment", userID)

	assessment, err := s.loadOwned(ctx, id, userID, "start")
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	from := assessment.Status
	if err := s.apply(ctx, assessment, from, assessment.Start); err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	op.LogResult(id, "assessment", nil)
	s.notifier.AssessmentChanged(ctx, events.EventAssessmentStarted, assessment, nil)
	return newAssessmentResponse(assessment), nil
}

// Submit grades the answers and hands the assessment to reviewers, pass or fail
func (s *assessmentService) Submit(ctx context.Context, id string, req *SubmitAnswersRequest, userID string) (*SubmissionResult, error) {
	op := s.serviceLogger.WithOperation(ctx, "submit_assessment", userID)

	if err := s.validator.Validate(req); err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	assessment, err := s.loadOwned(ctx, id, userID, "submit")
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}
	if !assessment.Status.CanTransitionTo(models.StatusAwaitingApproval) {
		err := mapTransitionError(&models.InvalidTransitionError{From: assessment.Status, To: models.StatusAwaitingApproval})
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	questions, err := s.repo.Question().ListBySkill(ctx, assessment.Skill)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	card, err := ScoreAnswers(questions, req.Answers)
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	from := assessment.Status
	submittedAt := time.Now().UTC()
	err = s.apply(ctx, assessment, from, func() error {
		return assessment.RecordSubmission(card.Score, submittedAt)
	})
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	op.LogResult(id, "assessment", nil)
	op.LogAudit(AuditEventUpdate, id, "assessment", from, map[string]interface{}{
		"status": assessment.Status,
		"score":  card.Score,
		"passed": card.Passed,
	})
	s.notifier.AssessmentChanged(ctx, events.EventAssessmentSubmitted, assessment, nil)

	return &SubmissionResult{
		Assessment: newAssessmentResponse(assessment),
		Correct:    card.Correct,
		Total:      card.Total,
		Score:      card.Score,
		Passed:     card.Passed,
	}, nil
}

func (s *assessmentService) Cancel(ctx context.Context, id string, userID string) (*AssessmentResponse, error) {
	assessment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if assessment.UserID != userID && !s.roles.IsAdmin(ctx, userID) {
		return nil, NewPermissionError(userID, id, "assessment", "cancel", "not owner or admin")
	}

	if err := s.apply(ctx, assessment, assessment.Status, assessment.Cancel); err != nil {
		return nil, err
	}

	s.logger.Info("Assessment cancelled", "assessment_id", id, "user_id", userID)
	s.notifier.AssessmentChanged(ctx, events.EventAssessmentCancelled, assessment, &userID)
	return newAssessmentResponse(assessment), nil
}

// ===== REVIEW =====

func (s *assessmentService) Approve(ctx context.Context, id string, req *ApproveAssessmentRequest, reviewerID string) (*AssessmentResponse, error) {
	op := s.serviceLogger.WithOperation(ctx, "approve_assessment", reviewerID)

	if err := s.validator.Validate(req); err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}
	if !s.roles.CanReview(ctx, reviewerID) {
		err := NewPermissionError(reviewerID, id, "assessment", "approve", "not an approved assessor or admin")
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	assessment, err := s.load(ctx, id)
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}
	if err := s.checkNotSelfReview(ctx, assessment, reviewerID); err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	from := assessment.Status
	err = s.apply(ctx, assessment, from, func() error {
		return assessment.Approve(reviewerID, time.Now().UTC(), req.Feedback, req.CertificateURL, req.BadgeURL)
	})
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	op.LogResult(id, "assessment", nil)
	op.LogAudit(AuditEventUpdate, id, "assessment", from, assessment.Status)
	s.notifier.AssessmentChanged(ctx, events.EventAssessmentApproved, assessment, &reviewerID)
	return newAssessmentResponse(assessment), nil
}

func (s *assessmentService) Reject(ctx context.Context, id string, req *RejectAssessmentRequest, reviewerID string) (*AssessmentResponse, error) {
	op := s.serviceLogger.WithOperation(ctx, "reject_assessment", reviewerID)

	if err := s.validator.Validate(req); err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}
	if !s.roles.CanReview(ctx, reviewerID) {
		err := NewPermissionError(reviewerID, id, "assessment", "reject", "not an approved assessor or admin")
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	assessment, err := s.load(ctx, id)
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}
	if err := s.checkNotSelfReview(ctx, assessment, reviewerID); err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	from := assessment.Status
	err = s.apply(ctx, assessment, from, func() error {
		return assessment.Reject(reviewerID, req.Reason)
	})
	if err != nil {
		op.LogResult(id, "assessment", err)
		return nil, err
	}

	op.LogResult(id, "assessment", nil)
	op.LogAudit(AuditEventUpdate, id, "assessment", from, assessment.Status)
	s.notifier.AssessmentChanged(ctx, events.EventAssessmentRejected, assessment, &reviewerID)
	return newAssessmentResponse(assessment), nil
}

func (s *assessmentService) ReviewQueue(ctx context.Context, reviewerID string, filters repositories.AssessmentFilters) (*AssessmentListResponse, error) {
	if !s.roles.CanReview(ctx, reviewerID) {
		return nil, NewPermissionError(reviewerID, "", "assessment", "review", "not an approved assessor or admin")
	}
	if filters.Status == nil {
		status := models.StatusAwaitingApproval
		filters.Status = &status
	}
	return s.list(ctx, filters)
}

func (s *assessmentService) Summary(ctx context.Context, reviewerID string) (*ReviewSummary, error) {
	if !s.roles.CanReview(ctx, reviewerID) {
		return nil, NewPermissionError(reviewerID, "", "assessment", "summary", "not an approved assessor or admin")
	}

	counts, err := s.repo.Assessment().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count assessments: %w", err)
	}

	summary := &ReviewSummary{
		Counts:           counts,
		AwaitingApproval: counts[models.StatusAwaitingApproval],
		GeneratedAt:      time.Now().UTC(),
	}
	for _, count := range counts {
		summary.Total += count
	}
	return summary, nil
}

// ===== HELPERS =====

func (s *assessmentService) load(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (s *assessmentService) loadOwned(ctx context.Context, id, userID, action string) (*models.Assessment, error) {
	assessment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if assessment.UserID != userID {
		return nil, NewPermissionError(userID, id, "assessment", action, "not owner")
	}
	return assessment, nil
}

// apply runs a model transition and persists it only if the stored status is still from
// checkNotSelfReview stops assessors from grading their own work; admins are exempt
func (s *assessmentService) checkNotSelfReview(ctx context.Context, assessment *models.Assessment, reviewerID string) error {
	if assessment.UserID != reviewerID || s.roles.IsAdmin(ctx, reviewerID) {
		return nil
	}
	return NewBusinessRuleError("self_review", "reviewers cannot review their own assessment", map[string]interface{}{
		"assessment_id": assessment.ID,
	})
}

func (s *assessmentService) apply(ctx context.Context, assessment *models.Assessment, from models.AssessmentStatus, transition func() error) error {
	if err := transition(); err != nil {
		return mapTransitionError(err)
	}
	if err := s.repo.Assessment().UpdateFromStatus(ctx, assessment, from); err != nil {
		if errors.Is(err, repositories.ErrStaleStatus) {
			return mapTransitionError(err)
		}
		return fmt.Errorf("failed to update assessment: %w", err)
	}
	return nil
}

func (s *assessmentService) list(ctx context.Context, filters repositories.AssessmentFilters) (*AssessmentListResponse, error) {
	assessments, total, err := s.repo.Assessment().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	response := &AssessmentListResponse{
		Assessments: make([]*AssessmentResponse, len(assessments)),
		Total:       total,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}
	for i, a := range assessments {
		response.Assessments[i] = newAssessmentResponse(a)
	}
	return response, nil
}

func mapTransitionError(err error) error {
	if errors.Is(err, models.ErrRejectionReasonRequired) {
		return fieldError("reason", err.Error(), "required")
	}
	var transitionErr *models.InvalidTransitionError
	if errors.As(err, &transitionErr) || errors.Is(err, repositories.ErrStaleStatus) {
		return fmt.Errorf("%w: %v", ErrAssessmentInvalidStatus, err)
	}
	return err
}

func toQuestionResponses(questions []*models.Question) ([]*QuestionResponse, error) {
	responses := make([]*QuestionResponse, len(questions))
	for i, q := range questions {
		options, err := q.OptionList()
		if err != nil {
			return nil, fmt.Errorf("failed to read options of question %s: %w", q.ID, err)
		}
		responses[i] = &QuestionResponse{
			ID:           q.ID,
			Skill:        q.Skill,
			QuestionText: q.QuestionText,
			Options:      options,
		}
	}
	return responses, nil
}
