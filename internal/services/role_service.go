package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/skillbadge/assessment-service/internal/cache"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
)

const roleCacheTTL = 5 * time.Minute

type roleService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger *slog.Logger
}

func NewRoleService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger) RoleService {
	return &roleService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

// ResolveRole picks the single routing role for a user: admin > assessor > student
func (s *roleService) ResolveRole(ctx context.Context, userID string) *RoleResolution {
	var cached RoleResolution
	if err := s.cache.Get(ctx, cache.RoleKey(userID), &cached); err == nil {
		return &cached
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Role cache read failed", "user_id", userID, "error", err)
	}

	resolution, err := s.resolve(ctx, userID)
	if err != nil {
		s.logger.Warn("Role lookup failed, defaulting to student", "user_id", userID, "error", err)
		return studentResolution(nil)
	}

	if err := s.cache.Set(ctx, cache.RoleKey(userID), resolution, roleCacheTTL); err != nil {
		s.logger.Warn("Role cache write failed", "user_id", userID, "error", err)
	}
	return resolution
}

func (s *roleService) resolve(ctx context.Context, userID string) (*RoleResolution, error) {
	roles, err := s.repo.UserRole().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var profile *models.Profile
	if len(roles) == 0 {
		profile, err = s.repo.Profile().GetByID(ctx, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return studentResolution(nil), nil
			}
			return nil, err
		}
		if profile.Role != nil {
			roles = append(roles, *profile.Role)
		}
		if profile.AssessorAssignedAt != nil {
			roles = append(roles, models.RoleAssessor)
		}
	}

	hasAdmin, hasAssessor := false, false
	for _, role := range roles {
		switch {
		case role.IsAdminEquivalent():
			hasAdmin = true
		case role == models.RoleAssessor:
			hasAssessor = true
		}
	}

	if hasAdmin {
		return &RoleResolution{Role: models.RoleAdmin, View: ViewAdminDashboard, Roles: roles}, nil
	}
	if !hasAssessor {
		return studentResolution(roles), nil
	}

	approved, rejected, err := s.assessorApproval(ctx, userID, profile)
	if err != nil {
		return nil, err
	}
	switch {
	case approved:
		return &RoleResolution{Role: models.RoleAssessor, View: ViewAssessorDashboard, AssessorApproved: true, Roles: roles}, nil
	case rejected:
		return studentResolution(roles), nil
	default:
		return &RoleResolution{Role: models.RoleAssessor, View: ViewAssessorPending, Roles: roles}, nil
	}
}

// assessorApproval reports whether the assessor role is backed by an approved request
// or by the legacy assignment stamp on the profile
func (s *roleService) assessorApproval(ctx context.Context, userID string, profile *models.Profile) (approved, rejected bool, err error) {
	request, err := s.repo.AssessorRequest().GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if request.Status == models.AssessorRequestApproved {
			return true, false, nil
		}
		if request.Status == models.AssessorRequestRejected {
			return false, true, nil
		}
	case !repositories.IsNotFoundError(err):
		return false, false, err
	}

	if profile == nil {
		profile, err = s.repo.Profile().GetByID(ctx, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return false, false, nil
			}
			return false, false, err
		}
	}
	return profile.AssessorAssignedAt != nil, false, nil
}

func (s *roleService) CanReview(ctx context.Context, userID string) bool {
	resolution := s.ResolveRole(ctx, userID)
	return resolution.Role == models.RoleAdmin || resolution.AssessorApproved
}

func (s *roleService) IsAdmin(ctx context.Context, userID string) bool {
	return s.ResolveRole(ctx, userID).Role == models.RoleAdmin
}

func (s *roleService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, cache.RoleKey(userID)); err != nil {
		s.logger.Warn("Role cache invalidation failed", "user_id", userID, "error", err)
	}
}

func studentResolution(roles []models.Role) *RoleResolution {
	return &RoleResolution{Role: models.RoleStudent, View: ViewStudentProfile, Roles: roles}
}
