package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories"
	"github.com/skillbadge/assessment-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *questionService) ListForSkill(ctx context.Context, skill string) ([]*QuestionResponse, error) {
	canonical, ok := models.CanonicalSkill(skill)
	if !ok {
		return nil, fieldError("skill", fmt.Sprintf("unknown skill %q", skill), "skill")
	}

	questions, err := s.repo.Question().ListBySkill(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	return toQuestionResponses(questions)
}

// Import loads a question bank. Skills that already have questions are skipped
// unless replace is set, in which case their questions are swapped out.
func (s *questionService) Import(ctx context.Context, questions []*models.Question, replace bool) (*ImportResult, error) {
	if err := s.validator.Question().ValidateBatch(questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	bySkill := make(map[string][]*models.Question)
	for _, q := range questions {
		q.Skill, _ = models.CanonicalSkill(q.Skill)
		bySkill[q.Skill] = append(bySkill[q.Skill], q)
	}
	skills := make([]string, 0, len(bySkill))
	for skill := range bySkill {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	result := &ImportResult{}
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		for _, skill := range skills {
			if replace {
				if err := tx.Question().DeleteBySkill(ctx, skill); err != nil {
					return fmt.Errorf("failed to clear %s questions: %w", skill, err)
				}
			} else {
				count, err := tx.Question().CountBySkill(ctx, skill)
				if err != nil {
					return fmt.Errorf("failed to count %s questions: %w", skill, err)
				}
				if count > 0 {
					result.SkippedSkills = append(result.SkippedSkills, skill)
					continue
				}
			}

			if err := tx.Question().CreateBatch(ctx, bySkill[skill]); err != nil {
				return fmt.Errorf("failed to insert %s questions: %w", skill, err)
			}
			result.Created += len(bySkill[skill])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question import finished",
		"created", result.Created,
		"skipped_skills", result.SkippedSkills,
		"replace", replace)
	return result, nil
}
