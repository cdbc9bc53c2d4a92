package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/cache"
	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
)

const (
	profileCacheTTL = 10 * time.Minute
	maxFullNameLen  = 100
)

type profileService struct {
	repo          repositories.Repository
	roles         RoleService
	cache         cache.CacheService
	logger        *slog.Logger
	serviceLogger *ServiceLogger
}

func NewProfileService(repo repositories.Repository, roles RoleService, cacheService cache.CacheService, logger *slog.Logger) ProfileService {
	return &profileService{
		repo:          repo,
		roles:         roles,
		cache:         cacheService,
		logger:        logger,
		serviceLogger: NewServiceLogger(logger, LogConfig{Service: "profiles", Component: "profile"}),
	}
}

// EnsureProfile creates the profile and student role of a first-time user and keeps the stored
// email in step with the identity provider, so payments can be matched to the payer by email.
func (s *profileService) EnsureProfile(ctx context.Context, identity *auth.Identity) (*models.Profile, error) {
	if identity == nil || strings.TrimSpace(identity.UserID) == "" {
		return nil, fieldError("user_id", "is required", "required")
	}
	email := strings.TrimSpace(identity.Email)

	key := cache.ProfileKey(identity.UserID)
	var cached models.Profile
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		if email == "" || strings.EqualFold(cached.Email, email) {
			return &cached, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Profile cache read failed", "user_id", identity.UserID, "error", err)
	}

	profile, err := s.repo.Profile().GetByID(ctx, identity.UserID)
	switch {
	case err == nil:
		if email != "" && !strings.EqualFold(profile.Email, email) {
			profile, err = s.refreshEmail(ctx, profile, email)
			if err != nil {
				return nil, err
			}
		}
	case repositories.IsNotFoundError(err):
		profile, err = s.create(ctx, identity, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if err := s.cache.Set(ctx, key, profile, profileCacheTTL); err != nil {
		s.logger.Warn("Profile cache write failed", "user_id", identity.UserID, "error", err)
	}
	return profile, nil
}

func (s *profileService) create(ctx context.Context, identity *auth.Identity, email string) (*models.Profile, error) {
	op := s.serviceLogger.WithOperation(ctx, "create_profile", identity.UserID)

	if email == "" {
		err := fieldError("email", "is required to create a profile", "required")
		op.LogResult(identity.UserID, "profile", err)
		return nil, err
	}

	profile := &models.Profile{
		ID:       identity.UserID,
		FullName: displayName(identity.Name, email),
		Email:    email,
	}
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Profile().Upsert(ctx, profile); err != nil {
			return err
		}
		return tx.UserRole().Add(ctx, identity.UserID, models.RoleStudent)
	})
	if err != nil {
		err = s.mapWriteError(err, email)
		op.LogResult(identity.UserID, "profile", err)
		return nil, err
	}

	s.roles.Invalidate(ctx, identity.UserID)
	op.LogResult(identity.UserID, "profile", nil)
	op.LogAudit(AuditEventCreate, identity.UserID, "profile", nil, models.RoleStudent)
	return profile, nil
}

func (s *profileService) refreshEmail(ctx context.Context, profile *models.Profile, email string) (*models.Profile, error) {
	op := s.serviceLogger.WithOperation(ctx, "refresh_profile_email", profile.ID)

	previous := profile.Email
	profile.Email = email
	if err := s.repo.Profile().Upsert(ctx, profile); err != nil {
		err = s.mapWriteError(err, email)
		op.LogResult(profile.ID, "profile", err)
		return nil, err
	}

	op.LogResult(profile.ID, "profile", nil)
	op.LogAudit(AuditEventUpdate, profile.ID, "profile", previous, email)
	return profile, nil
}

// mapWriteError turns a clash on the unique email column into a rule violation
func (s *profileService) mapWriteError(err error, email string) error {
	if repositories.IsUniqueViolation(err) {
		return NewBusinessRuleError("email_in_use", "another profile already uses this email", map[string]interface{}{
			"email": email,
		})
	}
	return fmt.Errorf("failed to save profile: %w", err)
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*ProfileResponse, error) {
	profile, err := s.repo.Profile().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	completed := models.StatusCompleted
	assessments, _, err := s.repo.Assessment().List(ctx, repositories.AssessmentFilters{
		UserID: &userID,
		Status: &completed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	skills := []string{}
	for _, assessment := range assessments {
		if assessment.IsCertified() {
			skills = appendUnique(skills, assessment.Skill)
		}
	}

	return &ProfileResponse{
		Profile:         profile,
		Role:            s.roles.ResolveRole(ctx, userID),
		CertifiedSkills: skills,
	}, nil
}

// ListCertifiedStudents groups every certificate under its student, in profile name order
func (s *profileService) ListCertifiedStudents(ctx context.Context) ([]*CertifiedStudent, error) {
	rows, err := s.repo.Assessment().ListCertified(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list certified assessments: %w", err)
	}

	students := []*CertifiedStudent{}
	byUser := make(map[string]*CertifiedStudent)
	for _, row := range rows {
		student, ok := byUser[row.UserID]
		if !ok {
			student = &CertifiedStudent{
				UserID:   row.UserID,
				FullName: row.FullName,
				Email:    row.Email,
				Skills:   []string{},
			}
			byUser[row.UserID] = student
			students = append(students, student)
		}
		student.Skills = appendUnique(student.Skills, row.Skill)
		student.Certificates = append(student.Certificates, CertificateSummary{
			Skill:          row.Skill,
			ApprovedAt:     row.ApprovedAt,
			CertificateURL: row.CertificateURL,
			BadgeURL:       row.BadgeURL,
		})
	}
	return students, nil
}

// displayName falls back to the local part of the email when the identity carries no name
func displayName(name, email string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if runes := []rune(name); len(runes) > maxFullNameLen {
		name = string(runes[:maxFullNameLen])
	}
	return name
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if strings.EqualFold(existing, value) {
			return values
		}
	}
	return append(values, value)
}
