package validator

import (
	"fmt"
	"strings"

	"github.com/skillbadge/assessment-service/internal/models"
)

const (
	minOptions = 2
	maxOptions = 6
)

// QuestionValidator checks multiple choice questions before they enter the bank
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

func (v *QuestionValidator) ValidateQuestion(question *models.Question) error {
	if strings.TrimSpace(question.QuestionText) == "" {
		return fmt.Errorf("question text is required")
	}
	if !models.IsKnownSkill(question.Skill) {
		return fmt.Errorf("unknown skill %q", question.Skill)
	}

	options, err := question.OptionList()
	if err != nil {
		return fmt.Errorf("options must be a JSON array of strings: %w", err)
	}
	if len(options) < minOptions || len(options) > maxOptions {
		return fmt.Errorf("question must have between %d and %d options", minOptions, maxOptions)
	}

	seen := make(map[string]struct{}, len(options))
	for i, option := range options {
		key := strings.ToLower(strings.TrimSpace(option))
		if key == "" {
			return fmt.Errorf("option %d cannot be empty", i+1)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("option %q appears more than once", option)
		}
		seen[key] = struct{}{}
	}

	if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(options) {
		return fmt.Errorf("correct answer index %d is out of range", question.CorrectAnswer)
	}
	return nil
}

// ValidateBatch validates multiple questions
func (v *QuestionValidator) ValidateBatch(questions []*models.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("question batch cannot be empty")
	}

	for i, question := range questions {
		if err := v.ValidateQuestion(question); err != nil {
			return fmt.Errorf("validation failed for question %d: %w", i+1, err)
		}
	}

	return nil
}
