package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skillbadge/assessment-service/internal/events"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/validator"
)

type assessorService struct {
	repo          repositories.Repository
	roles         RoleService
	notifier      EventNotifier
	logger        *slog.Logger
	serviceLogger *ServiceLogger
	validator     *validator.Validator
}

func NewAssessorService(
	repo repositories.Repository,
	roles RoleService,
	notifier EventNotifier,
	logger *slog.Logger,
	validator *validator.Validator,
) AssessorService {
	return &assessorService{
		repo:          repo,
		roles:         roles,
		notifier:      notifier,
		logger:        logger,
		serviceLogger: NewServiceLogger(logger, LogConfig{Service: "assessors", Component: "onboarding"}),
		validator:     validator,
	}
}

// Apply files an assessor request and tags the user with the assessor role.
// The role stays unapproved until an admin reviews the request.
func (s *assessorService) Apply(ctx context.Context, req *AssessorApplicationRequest, userID string) (*models.AssessorRequest, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var request *models.AssessorRequest
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		existing, err := tx.AssessorRequest().GetByUserID(ctx, userID)
		switch {
		case err == nil:
			if existing.Status != models.AssessorRequestRejected {
				return ErrAssessorRequestExists
			}
			// A rejected applicant may apply again
			existing.Status = models.AssessorRequestPending
			existing.Qualifications = req.Qualifications
			existing.ReviewedBy = nil
			existing.ReviewedAt = nil
			existing.RejectionReason = nil
			if err := tx.AssessorRequest().Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to reopen assessor request: %w", err)
			}
			request = existing
		case repositories.IsNotFoundError(err):
			request = &models.AssessorRequest{
				UserID:         userID,
				Status:         models.AssessorRequestPending,
				Qualifications: req.Qualifications,
			}
			if err := tx.AssessorRequest().Create(ctx, request); err != nil {
				if repositories.IsUniqueViolation(err) {
					return ErrAssessorRequestExists
				}
				return fmt.Errorf("failed to create assessor request: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up assessor request: %w", err)
		}

		if err := tx.UserRole().Add(ctx, userID, models.RoleAssessor); err != nil {
			return fmt.Errorf("failed to add assessor role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.roles.Invalidate(ctx, userID)
	s.logger.Info("Assessor request submitted", "request_id", request.ID, "user_id", userID)
	s.notifier.AssessorRequestChanged(ctx, events.EventAssessorRequested, request)
	return request, nil
}

func (s *assessorService) List(ctx context.Context, filters repositories.AssessorRequestFilters, adminID string) (*AssessorRequestListResponse, error) {
	if err := s.requireAdmin(ctx, adminID, "", "list"); err != nil {
		return nil, err
	}

	requests, total, err := s.repo.AssessorRequest().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessor requests: %w", err)
	}
	return &AssessorRequestListResponse{Requests: requests, Total: total}, nil
}

func (s *assessorService) Approve(ctx context.Context, requestID string, adminID string) (*models.AssessorRequest, error) {
	if err := s.requireAdmin(ctx, adminID, requestID, "approve"); err != nil {
		return nil, err
	}

	request, err := s.review(ctx, requestID, adminID, func(tx repositories.Repository, request *models.AssessorRequest, at time.Time) error {
		request.Status = models.AssessorRequestApproved
		if err := tx.Profile().SetAssessorAssigned(ctx, request.UserID, at); err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to stamp assessor assignment: %w", err)
		}
		return tx.UserRole().Add(ctx, request.UserID, models.RoleAssessor)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assessor request approved", "request_id", requestID, "user_id", request.UserID, "admin_id", adminID)
	return request, nil
}

func (s *assessorService) Reject(ctx context.Context, requestID string, req *RejectAssessorRequest, adminID string) (*models.AssessorRequest, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, fieldError("reason", "reason is required", "required")
	}
	if err := s.requireAdmin(ctx, adminID, requestID, "reject"); err != nil {
		return nil, err
	}

	request, err := s.review(ctx, requestID, adminID, func(_ repositories.Repository, request *models.AssessorRequest, _ time.Time) error {
		request.Status = models.AssessorRequestRejected
		request.RejectionReason = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assessor request rejected", "request_id", requestID, "user_id", request.UserID, "admin_id", adminID)
	return request, nil
}

// review settles a pending request inside one transaction, then refreshes the applicant's role
func (s *assessorService) review(
	ctx context.Context,
	requestID, adminID string,
	decide func(tx repositories.Repository, request *models.AssessorRequest, at time.Time) error,
) (*models.AssessorRequest, error) {
	var request *models.AssessorRequest
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		request, err = tx.AssessorRequest().GetByID(ctx, requestID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAssessorRequestNotFound
			}
			return fmt.Errorf("failed to get assessor request: %w", err)
		}
		if request.Status != models.AssessorRequestPending {
			return ErrAssessorRequestReviewed
		}

		now := time.Now().UTC()
		request.ReviewedBy = &adminID
		request.ReviewedAt = &now
		if err := decide(tx, request, now); err != nil {
			return err
		}
		if err := tx.AssessorRequest().Update(ctx, request); err != nil {
			return fmt.Errorf("failed to update assessor request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.roles.Invalidate(ctx, request.UserID)
	s.notifier.AssessorRequestChanged(ctx, events.EventAssessorReviewed, request)
	return request, nil
}

func (s *assessorService) requireAdmin(ctx context.Context, userID, resourceID, action string) error {
	if s.roles.IsAdmin(ctx, userID) {
		return nil
	}
	s.serviceLogger.WithOperation(ctx, action+"_assessor_request", userID).
		LogSecurity(SecurityEventUnauthorizedAccess, SecuritySeverityMedium, "non-admin attempted assessor request review", map[string]interface{}{
			"request_id": resourceID,
		})
	return NewPermissionError(userID, resourceID, "assessor_request", action, "admin only")
}
